// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wingedpig/slidesmith/internal/api/handlers"
	"github.com/wingedpig/slidesmith/internal/config"
	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/internal/generator"
	"github.com/wingedpig/slidesmith/internal/prompt"
)

type countingSpawner struct {
	calls atomic.Int32
}

func (s *countingSpawner) Spawn(ctx context.Context, req generator.Request) (*generator.Adapter, error) {
	s.calls.Add(1)
	return nil, context.Canceled
}

func newTestRouter(t *testing.T) (http.Handler, *countingSpawner) {
	t.Helper()
	cfg := config.Default()
	bus := events.NewMemoryBus(events.HistoryConfig{})
	t.Cleanup(func() { bus.Close() })

	spawner := &countingSpawner{}
	gen := handlers.NewGenerationHandler(context.Background(), spawner, bus, prompt.NewStager(t.TempDir()), handlers.GenerationSettings{
		Root:         t.TempDir(),
		Slides:       cfg.Slides,
		DesignSystem: cfg.DesignSystem,
	})
	return NewRouter(Dependencies{Generation: gen, EventBus: bus, Pool: generator.NewPool()}), spawner
}

func TestRouter_ValidationBeforeSpawn(t *testing.T) {
	router, spawner := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/edit", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"prompt is required"}`, rec.Body.String())
	assert.Equal(t, int32(0), spawner.calls.Load())
}

func TestRouter_SpawnFailure(t *testing.T) {
	router, spawner := newTestRouter(t)

	req := httptest.NewRequest("POST", "/api/generate", strings.NewReader(`{"prompt":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"start generator`)
	assert.Equal(t, int32(1), spawner.calls.Load())
}

func TestRouter_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/api/nope", "/elsewhere"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/edit"},
		{"GET", "/api/assess-design-system"},
		{"POST", "/api/health"},
		{"DELETE", "/api/events"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, tc.path)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String(), tc.path)
	}
}

func TestRouter_Preflight(t *testing.T) {
	router, spawner := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/generate", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, int32(0), spawner.calls.Load())
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"generators":0,"pids":[]}`, rec.Body.String())
}
