// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/slidesmith/internal/events"
)

func newEventBus(t *testing.T) *events.MemoryBus {
	t.Helper()
	bus := events.NewMemoryBus(events.HistoryConfig{})
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestEventHandler_History(t *testing.T) {
	bus := newEventBus(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)

	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.GenerationStarted, Item: "intro", Timestamp: base}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.GenerationFinished, Item: "intro", Timestamp: base.Add(time.Second)}))
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.DesignSystemChanged, Item: events.ItemDesignSystem, Timestamp: base.Add(2 * time.Second)}))

	h := NewEventHandler(bus)

	get := func(query string) []events.Event {
		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest("GET", "/api/events?"+query, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var list []events.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return list
	}

	assert.Len(t, get(""), 3)
	assert.Len(t, get("type=generation.*"), 2)
	assert.Len(t, get("item=design-system"), 1)

	latest := get("type=generation.*&limit=1")
	require.Len(t, latest, 1)
	assert.Equal(t, events.GenerationFinished, latest[0].Type)

	since := base.Add(500 * time.Millisecond).Format(time.RFC3339Nano)
	assert.Len(t, get("since="+since), 2)
}

func TestEventHandler_HistoryEmpty(t *testing.T) {
	h := NewEventHandler(newEventBus(t))

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest("GET", "/api/events", nil))
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestEventHandler_HistoryBadParams(t *testing.T) {
	h := NewEventHandler(newEventBus(t))

	for _, q := range []string{"limit=abc", "limit=-1", "since=yesterday", "until=2026"} {
		rec := httptest.NewRecorder()
		h.History(rec, httptest.NewRequest("GET", "/api/events?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestEventHandler_WebSocket(t *testing.T) {
	bus := newEventBus(t)
	h := NewEventHandler(bus)
	srv := httptest.NewServer(http.HandlerFunc(h.WebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?pattern=generation.*"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep publishing
	// until the first event arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				bus.Publish(context.Background(), events.Event{Type: events.DesignSystemChanged})
				bus.Publish(context.Background(), events.Event{Type: events.GenerationStarted, Item: "intro"})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.GenerationStarted, ev.Type)
	assert.Equal(t, "intro", ev.Item)
}
