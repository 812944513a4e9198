// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wingedpig/slidesmith/internal/config"
	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/internal/generator"
	"github.com/wingedpig/slidesmith/internal/prompt"
)

const defaultKeepalive = 15 * time.Second

// GenerationSettings carries the project layout the prompts refer to.
type GenerationSettings struct {
	Root         string
	Slides       config.SlidesConfig
	DesignSystem config.DesignSystemConfig
	CheckResume  bool
	Keepalive    time.Duration
}

// GenerationHandler serves the streaming generation endpoints.
type GenerationHandler struct {
	spawner  generator.Spawner
	bus      events.Bus
	stager   *prompt.Stager
	settings GenerationSettings

	// Processes outlive the request context so that a disconnect is observed as
	// a kill rather than a context error; baseCtx ends them on shutdown.
	baseCtx context.Context

	resumeAvailable func(workDir, sessionID string) bool
}

// NewGenerationHandler creates a generation handler. bus may be nil.
func NewGenerationHandler(ctx context.Context, spawner generator.Spawner, bus events.Bus, stager *prompt.Stager, settings GenerationSettings) *GenerationHandler {
	if settings.Keepalive <= 0 {
		settings.Keepalive = defaultKeepalive
	}
	return &GenerationHandler{
		spawner:         spawner,
		bus:             bus,
		stager:          stager,
		settings:        settings,
		baseCtx:         ctx,
		resumeAvailable: generator.ResumeAvailable,
	}
}

// Request bodies.

type generateRequest struct {
	Prompt string `json:"prompt"`
	Image  string `json:"image,omitempty"`
}

type editRequest struct {
	Prompt    string `json:"prompt"`
	FilePath  string `json:"filePath"`
	SessionID string `json:"sessionId,omitempty"`
}

type editDesignSystemRequest struct {
	Prompt    string   `json:"prompt"`
	SessionID string   `json:"sessionId,omitempty"`
	Images    []string `json:"images,omitempty"`
}

type applyDesignSystemRequest struct {
	FileKey string `json:"fileKey"`
}

type createDesignSystemRequest struct {
	Description string   `json:"description"`
	URLs        []string `json:"urls,omitempty"`
	Images      []string `json:"images,omitempty"`
	ImagePaths  []string `json:"imagePaths,omitempty"`
	PlanOnly    bool     `json:"planOnly,omitempty"`
}

type assessDesignSystemRequest struct {
	Description string   `json:"description"`
	ImagePaths  []string `json:"imagePaths,omitempty"`
}

// job is one resolved generation request.
type job struct {
	params  prompt.Params
	item    string
	resume  string
	cleanup []string // staged files removed once the process exits
}

// Generate creates a new slide.
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	j := job{params: h.params(prompt.KindGenerate)}
	j.params.Prompt = req.Prompt
	if req.Image != "" {
		path, err := h.stager.Stage(req.Image)
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("image: %v", err))
			return
		}
		j.params.ImagePaths = []string{path}
		j.cleanup = j.params.ImagePaths
	}
	h.stream(w, r, j)
}

// Edit edits one slide file, resuming the item's conversation when a session id is given.
func (h *GenerationHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if strings.TrimSpace(req.FilePath) == "" {
		WriteError(w, http.StatusBadRequest, "filePath is required")
		return
	}
	filePath, err := prompt.CleanRelPath(req.FilePath)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("filePath: %v", err))
		return
	}

	j := job{params: h.params(prompt.KindEdit), item: filePath}
	j.params.Prompt = req.Prompt
	j.params.FilePath = filePath
	j.resume = h.checkResume(req.SessionID)
	j.params.Resume = j.resume != ""
	h.stream(w, r, j)
}

// EditDesignSystem edits the design system. The first request of a conversation gets
// the prompt that lists the design-system files; follow-ups send the user text as is.
func (h *GenerationHandler) EditDesignSystem(w http.ResponseWriter, r *http.Request) {
	var req editDesignSystemRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	j := job{params: h.params(prompt.KindEditDesignSystem), item: events.ItemDesignSystem}
	j.params.Prompt = req.Prompt
	j.resume = h.checkResume(req.SessionID)
	j.params.Resume = j.resume != ""
	if len(req.Images) > 0 {
		paths, err := h.stager.StageAll(req.Images)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		j.params.ImagePaths = paths
		j.cleanup = paths
	}
	h.stream(w, r, j)
}

// ApplyDesignSystem restyles one slide against the current design system. It never
// resumes a session.
func (h *GenerationHandler) ApplyDesignSystem(w http.ResponseWriter, r *http.Request) {
	var req applyDesignSystemRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FileKey) == "" {
		WriteError(w, http.StatusBadRequest, "fileKey is required")
		return
	}
	filePath, err := prompt.SlideFile(req.FileKey, h.settings.Slides.Dir, h.settings.Slides.Extension)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("fileKey: %v", err))
		return
	}

	j := job{params: h.params(prompt.KindApplyDesignSystem), item: req.FileKey}
	j.params.FilePath = filePath
	h.stream(w, r, j)
}

// CreateDesignSystem designs a new design system from a description.
func (h *GenerationHandler) CreateDesignSystem(w http.ResponseWriter, r *http.Request) {
	var req createDesignSystemRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	existing, err := h.projectPaths(req.ImagePaths)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	j := job{params: h.params(prompt.KindCreateDesignSystem), item: events.ItemDesignSystem}
	j.params.Description = req.Description
	j.params.PlanOnly = req.PlanOnly
	j.params.URLs = nonEmpty(req.URLs)
	if len(req.Images) > 0 {
		staged, err := h.stager.StageAll(req.Images)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		j.cleanup = staged
		existing = append(existing, staged...)
	}
	j.params.ImagePaths = existing
	h.stream(w, r, j)
}

// AssessDesignSystem starts an assessment run in the background and returns at once.
// The result is written to the brief file, which the watcher reports.
func (h *GenerationHandler) AssessDesignSystem(w http.ResponseWriter, r *http.Request) {
	var req assessDesignSystemRequest
	if err := decodeBody(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		WriteError(w, http.StatusBadRequest, "description is required")
		return
	}
	imagePaths, err := h.projectPaths(req.ImagePaths)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	j := job{params: h.params(prompt.KindAssessDesignSystem), item: events.ItemDesignSystem}
	j.params.Description = req.Description
	j.params.ImagePaths = imagePaths

	adapter, err := h.start(j)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	go h.consume(adapter, j, nil, nil)

	WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// params returns prompt parameters carrying the project layout.
func (h *GenerationHandler) params(kind prompt.Kind) prompt.Params {
	ds := h.settings.DesignSystem
	return prompt.Params{
		Kind:              kind,
		SlidesDir:         filepath.ToSlash(h.settings.Slides.Dir),
		Extension:         h.settings.Slides.Extension,
		DesignSystemDir:   filepath.ToSlash(ds.Dir),
		DesignSystemFiles: toSlash(ds.FilePaths()),
		Changelog:         filepath.ToSlash(ds.ChangelogPath()),
		Brief:             filepath.ToSlash(ds.BriefPath()),
	}
}

// checkResume returns sessionID, or "" when the CLI no longer has that session.
func (h *GenerationHandler) checkResume(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" || !h.settings.CheckResume {
		return sessionID
	}
	if !h.resumeAvailable(h.settings.Root, sessionID) {
		log.Printf("gateway: session %s not found, starting a new conversation", sessionID)
		return ""
	}
	return sessionID
}

// projectPaths resolves client-supplied project-relative paths to absolute ones.
func (h *GenerationHandler) projectPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		clean, err := prompt.CleanRelPath(p)
		if err != nil {
			return nil, fmt.Errorf("imagePaths: %s: %v", p, err)
		}
		out = append(out, filepath.Join(h.settings.Root, filepath.FromSlash(clean)))
	}
	return out, nil
}

// start builds the prompt and spawns the generator.
func (h *GenerationHandler) start(j job) (*generator.Adapter, error) {
	text, err := prompt.Build(j.params)
	if err != nil {
		removeAll(j.cleanup)
		return nil, err
	}

	adapter, err := h.spawner.Spawn(h.baseCtx, generator.Request{
		Prompt:          text,
		WorkDir:         h.settings.Root,
		ResumeSessionID: j.resume,
	})
	if err != nil {
		removeAll(j.cleanup)
		return nil, fmt.Errorf("start generator: %w", err)
	}

	h.publish(events.GenerationStarted, j.item, map[string]interface{}{
		"kind":   string(j.params.Kind),
		"pid":    adapter.PID(),
		"resume": j.resume != "",
	})
	return adapter, nil
}

// frameWriter receives the frames of a streamed generation.
type frameWriter interface {
	Data(payload []byte) error
	Comment(text string) error
}

// stream runs j and relays its events as SSE frames until the terminal event or a
// client disconnect.
func (h *GenerationHandler) stream(w http.ResponseWriter, r *http.Request, j job) {
	if _, ok := w.(http.Flusher); !ok {
		WriteError(w, http.StatusInternalServerError, errStreamingUnsupported.Error())
		return
	}

	adapter, err := h.start(j)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sse, err := StartSSE(w)
	if err != nil {
		adapter.Kill()
		h.consume(adapter, j, nil, nil)
		return
	}
	h.consume(adapter, j, sse, r.Context().Done())
}

// consume reads every event of adapter, writing each payload to out while out is
// non-nil. A closed cancel channel or a failed write kills the process and the rest
// is drained without writing. A run killed after its result line counts as finished.
func (h *GenerationHandler) consume(adapter *generator.Adapter, j job, out frameWriter, cancel <-chan struct{}) {
	defer removeAll(j.cleanup)

	var (
		sessionID string
		last      generator.Event
		cancelled bool
		completed bool // the result line was relayed
		killed    bool
	)
	evs := adapter.Events()

	var keepalive <-chan time.Time
	if out != nil {
		t := time.NewTicker(h.settings.Keepalive)
		defer t.Stop()
		keepalive = t.C
	}

	abort := func(reason string) {
		out, cancel, keepalive = nil, nil, nil
		if last.IsTerminal() {
			return
		}
		log.Printf("gateway: %s, killing pid %d", reason, adapter.PID())
		cancelled = !completed
		killed = true
		adapter.Kill()
	}

loop:
	for {
		select {
		case ev, ok := <-evs:
			if !ok {
				break loop
			}
			if ev.Kind == generator.KindSession {
				sessionID = ev.SessionID
			}
			if ev.IsTerminal() {
				last = ev
			}
			if ev.Kind == generator.KindResult {
				completed = true
			}
			if out == nil {
				continue
			}
			if err := out.Data(ev.Payload()); err != nil {
				abort(fmt.Sprintf("write to client failed (%v)", err))
			}
		case <-cancel:
			abort("client disconnected")
		case <-keepalive:
			if err := out.Comment("keepalive"); err != nil {
				abort(fmt.Sprintf("keepalive failed (%v)", err))
			}
		}
	}

	payload := map[string]interface{}{
		"kind": string(j.params.Kind),
		"pid":  adapter.PID(),
	}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	switch {
	case cancelled:
		h.publish(events.GenerationCancelled, j.item, payload)
	case completed && killed,
		last.Kind == generator.KindDone && last.ExitCode != nil && *last.ExitCode == 0:
		h.publish(events.GenerationFinished, j.item, payload)
	default:
		if last.Kind == generator.KindError {
			payload["error"] = last.Err
		} else if last.ExitCode != nil {
			payload["code"] = *last.ExitCode
		}
		h.publish(events.GenerationFailed, j.item, payload)
	}
}

func (h *GenerationHandler) publish(eventType, item string, payload map[string]interface{}) {
	if h.bus == nil {
		return
	}
	err := h.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		Item:    item,
		Payload: payload,
	})
	if err != nil {
		log.Printf("gateway: publish %s: %v", eventType, err)
	}
}

func removeAll(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Printf("gateway: remove %s: %v", p, err)
		}
	}
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func toSlash(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}
