// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/slidesmith/internal/events"
)

const (
	wsPingInterval = 54 * time.Second
	wsPongWait     = 60 * time.Second
	wsBuffer       = 100
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventHandler handles event-related API requests.
type EventHandler struct {
	bus events.Bus
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus events.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

// History returns past events. Query parameters: type (repeatable pattern), item,
// limit, since and until (RFC 3339).
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := events.Filter{
		Types: query["type"],
		Item:  query.Get("item"),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	for name, dst := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		if v := query.Get(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, name+" must be an RFC 3339 timestamp")
				return
			}
			*dst = t
		}
	}

	list, err := h.bus.History(filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []events.Event{}
	}
	WriteJSON(w, http.StatusOK, list)
}

// WebSocket streams live events matching the pattern query parameter (default "*").
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	if _, err := events.CompilePattern(pattern); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	eventCh, stop, err := h.bus.Watch(pattern, wsBuffer)
	if err != nil {
		conn.WriteJSON(ErrorResponse{Error: err.Error()})
		return
	}
	defer stop()

	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	pingTicker := time.NewTicker(wsPingInterval)
	defer pingTicker.Stop()

	// Read goroutine (for close detection)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
