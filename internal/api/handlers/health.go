// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"net/http"

	"github.com/wingedpig/slidesmith/internal/generator"
)

// HealthResponse reports server liveness and running generators.
type HealthResponse struct {
	OK         bool  `json:"ok"`
	Generators int   `json:"generators"`
	PIDs       []int `json:"pids"`
}

// HealthHandler serves /api/health.
type HealthHandler struct {
	pool *generator.Pool
}

// NewHealthHandler creates a health handler. pool may be nil.
func NewHealthHandler(pool *generator.Pool) *HealthHandler {
	return &HealthHandler{pool: pool}
}

// Health returns {"ok":true} with the live generator processes.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{OK: true, PIDs: []int{}}
	if h.pool != nil {
		if pids := h.pool.PIDs(); pids != nil {
			resp.PIDs = pids
		}
		resp.Generators = len(resp.PIDs)
	}
	WriteJSON(w, http.StatusOK, resp)
}
