// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/slidesmith/internal/config"
	"github.com/wingedpig/slidesmith/internal/events"
	"github.com/wingedpig/slidesmith/internal/generator"
	"github.com/wingedpig/slidesmith/internal/prompt"
)

// recordingSpawner runs a shell script in place of the CLI and records every request.
// The built prompt is passed to the script as $1.
type recordingSpawner struct {
	inner generator.Spawner

	mu       sync.Mutex
	requests []generator.Request
	adapters []*generator.Adapter
}

func newRecordingSpawner(script string) *recordingSpawner {
	return &recordingSpawner{inner: &generator.CLISpawner{
		Command:     "/bin/sh",
		Args:        []string{"-c", script, "sh"},
		StopTimeout: time.Second,
	}}
}

func (s *recordingSpawner) Spawn(ctx context.Context, req generator.Request) (*generator.Adapter, error) {
	a, err := s.inner.Spawn(ctx, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if a != nil {
		s.adapters = append(s.adapters, a)
	}
	return a, err
}

func (s *recordingSpawner) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *recordingSpawner) request(i int) generator.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func (s *recordingSpawner) adapter(i int) *generator.Adapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapters[i]
}

const happyScript = `
echo '{"type":"system","subtype":"init","session_id":"s1"}'
echo '{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}]}}'
echo 'warming up' >&2
echo '{"type":"result","subtype":"success","result":"hi","session_id":"s1"}'
`

type testEnv struct {
	handler *GenerationHandler
	spawner *recordingSpawner
	bus     *events.MemoryBus
	root    string
	scratch string
}

func newTestEnv(t *testing.T, script string) *testEnv {
	t.Helper()
	cfg := config.Default()
	root := t.TempDir()
	scratch := filepath.Join(root, ".slidesmith", "uploads")

	bus := events.NewMemoryBus(events.HistoryConfig{})
	t.Cleanup(func() { bus.Close() })

	spawner := newRecordingSpawner(script)
	h := NewGenerationHandler(context.Background(), spawner, bus, prompt.NewStager(scratch), GenerationSettings{
		Root:         root,
		Slides:       cfg.Slides,
		DesignSystem: cfg.DesignSystem,
	})
	return &testEnv{handler: h, spawner: spawner, bus: bus, root: root, scratch: scratch}
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func (e *testEnv) history(t *testing.T, pattern string) []events.Event {
	t.Helper()
	list, err := e.bus.History(events.Filter{Types: []string{pattern}})
	require.NoError(t, err)
	return list
}

func TestValidation_NoSpawn(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	h := env.handler

	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
		want    string
	}{
		{"edit empty", h.Edit, `{}`, "prompt is required"},
		{"edit prompt checked first", h.Edit, `{"filePath":"src/slides/a.tsx"}`, "prompt is required"},
		{"edit missing file", h.Edit, `{"prompt":"bigger title"}`, "filePath is required"},
		{"generate empty", h.Generate, `{}`, "prompt is required"},
		{"generate blank", h.Generate, `{"prompt":"   "}`, "prompt is required"},
		{"edit design system", h.EditDesignSystem, `{}`, "prompt is required"},
		{"apply design system", h.ApplyDesignSystem, `{}`, "fileKey is required"},
		{"create design system", h.CreateDesignSystem, `{"urls":["https://example.com"]}`, "description is required"},
		{"assess design system", h.AssessDesignSystem, `{}`, "description is required"},
		{"empty body", h.Generate, ``, "prompt is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(tt.handler, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
	assert.Equal(t, 0, env.spawner.calls())
}

func TestValidation_InvalidJSON(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	rec := post(env.handler.Edit, `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON")
	assert.Equal(t, 0, env.spawner.calls())
}

func TestValidation_UnsafePaths(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	h := env.handler

	for _, tc := range []struct {
		handler http.HandlerFunc
		body    string
	}{
		{h.Edit, `{"prompt":"x","filePath":"../../etc/passwd"}`},
		{h.Edit, `{"prompt":"x","filePath":"/etc/passwd"}`},
		{h.ApplyDesignSystem, `{"fileKey":"../secrets"}`},
		{h.CreateDesignSystem, `{"description":"x","imagePaths":["../a.png"]}`},
		{h.AssessDesignSystem, `{"description":"x","imagePaths":["/tmp/a.png"]}`},
	} {
		rec := post(tc.handler, tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
	}
	assert.Equal(t, 0, env.spawner.calls())
}

func TestGenerate_StreamsFrames(t *testing.T) {
	env := newTestEnv(t, happyScript)
	srv := httptest.NewServer(http.HandlerFunc(env.handler.Generate))
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/json", strings.NewReader(`{"prompt":"a title slide"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	s := string(body)

	assert.Contains(t, s, "data: {\"type\":\"session\",\"session_id\":\"s1\"}\n\n")
	assert.Contains(t, s, "data: {\"type\":\"assistant\",\"message\":{\"content\":[{\"type\":\"text\",\"text\":\"hi\"}]}}\n\n")
	assert.Contains(t, s, "data: {\"type\":\"stderr\",\"text\":\"warming up\"}\n\n")
	assert.Contains(t, s, "data: {\"type\":\"result\"")
	assert.True(t, strings.HasSuffix(s, "data: {\"type\":\"done\",\"code\":0}\n\n"), s)
	assert.NotContains(t, s, `"subtype":"init"`)

	// Session precedes the assistant frame
	assert.Less(t, strings.Index(s, `"type":"session"`), strings.Index(s, `"type":"assistant"`))

	require.Equal(t, 1, env.spawner.calls())
	req := env.spawner.request(0)
	assert.Equal(t, env.root, req.WorkDir)
	assert.Empty(t, req.ResumeSessionID)
	assert.Contains(t, req.Prompt, "a title slide")

	finished := env.history(t, events.GenerationFinished)
	require.Len(t, finished, 1)
	assert.Equal(t, "s1", finished[0].Payload["session_id"])
	assert.Len(t, env.history(t, events.GenerationStarted), 1)
}

func TestGenerate_NonZeroExit(t *testing.T) {
	env := newTestEnv(t, "echo boom >&2; exit 2")

	rec := post(env.handler.Generate, `{"prompt":"x"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Body.String(), "data: {\"type\":\"done\",\"code\":2}\n\n"))

	failed := env.history(t, events.GenerationFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Payload["code"])
}

func TestGenerate_StagesImage(t *testing.T) {
	env := newTestEnv(t, `test -f "$(echo "$1" | grep -o '/[^ ]*\.png' | head -n1)" && echo found`)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	body := `{"prompt":"match this","image":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(png) + `"}`

	rec := post(env.handler.Generate, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "data: found\n\n")

	req := env.spawner.request(0)
	assert.Contains(t, req.Prompt, env.scratch)

	// Staged files are removed once the run ends
	entries, _ := os.ReadDir(env.scratch)
	assert.Empty(t, entries)
}

func TestGenerate_InvalidImage(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	rec := post(env.handler.Generate, `{"prompt":"x","image":"data:text/plain;base64,aGVsbG8="}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, env.spawner.calls())
}

func TestEdit_Resume(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	rec := post(env.handler.Edit, `{"prompt":"make it blue","filePath":"src/slides/intro.tsx","sessionId":"abc"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := env.spawner.request(0)
	assert.Equal(t, "abc", req.ResumeSessionID)
	assert.Contains(t, req.Prompt, "make it blue")
	assert.NotContains(t, req.Prompt, "Read the file first")
}

func TestEdit_ResumeDroppedWhenSessionMissing(t *testing.T) {
	env := newTestEnv(t, "exit 0")
	env.handler.settings.CheckResume = true
	var checked string
	env.handler.resumeAvailable = func(workDir, sessionID string) bool {
		checked = sessionID
		return false
	}

	rec := post(env.handler.Edit, `{"prompt":"make it blue","filePath":"src/slides/intro.tsx","sessionId":"gone"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "gone", checked)
	req := env.spawner.request(0)
	assert.Empty(t, req.ResumeSessionID)
	assert.Contains(t, req.Prompt, "Edit the slide in src/slides/intro.tsx")
}

func TestEditDesignSystem_FirstRequestListsFiles(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	post(env.handler.EditDesignSystem, `{"prompt":"warmer palette"}`)
	post(env.handler.EditDesignSystem, `{"prompt":"a bit more","sessionId":"s1"}`)

	first := env.spawner.request(0)
	assert.Contains(t, first.Prompt, "src/design-system/tokens.css")
	assert.Contains(t, first.Prompt, "warmer palette")

	second := env.spawner.request(1)
	assert.Equal(t, "s1", second.ResumeSessionID)
	assert.Equal(t, "a bit more", second.Prompt)
}

func TestApplyDesignSystem_NeverResumes(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	rec := post(env.handler.ApplyDesignSystem, `{"fileKey":"intro","sessionId":"ignored"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := env.spawner.request(0)
	assert.Empty(t, req.ResumeSessionID)
	assert.Contains(t, req.Prompt, "src/slides/intro.tsx")

	started := env.history(t, events.GenerationStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "intro", started[0].Item)
}

func TestCreateDesignSystem_PlanOnly(t *testing.T) {
	env := newTestEnv(t, "exit 0")

	rec := post(env.handler.CreateDesignSystem, `{"description":"calm, editorial","urls":["https://example.com"," "],"imagePaths":["refs/a.png"],"planOnly":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := env.spawner.request(0)
	assert.Contains(t, req.Prompt, "Produce a plan only")
	assert.Contains(t, req.Prompt, "- https://example.com")
	assert.Contains(t, req.Prompt, filepath.Join(env.root, "refs", "a.png"))
	assert.Empty(t, req.ResumeSessionID)
}

func TestAssessDesignSystem_ReturnsImmediately(t *testing.T) {
	env := newTestEnv(t, "sleep 0.2; exit 0")

	rec := post(env.handler.AssessDesignSystem, `{"description":"how consistent are the slides?"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	require.Eventually(t, func() bool {
		return len(env.history(t, events.GenerationFinished)) == 1
	}, 5*time.Second, 20*time.Millisecond)

	finished := env.history(t, events.GenerationFinished)
	assert.Equal(t, events.ItemDesignSystem, finished[0].Item)
	assert.Contains(t, env.spawner.request(0).Prompt, "src/design-system/BRIEF.md")
}

func TestStream_DisconnectKillsProcess(t *testing.T) {
	env := newTestEnv(t, `echo '{"type":"system","subtype":"init","session_id":"s1"}'; sleep 30`)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/api/edit", strings.NewReader(`{"prompt":"x","filePath":"src/slides/a.tsx"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()

	returned := make(chan struct{})
	go func() {
		defer close(returned)
		env.handler.Edit(rec, req)
	}()

	require.Eventually(t, func() bool { return env.spawner.calls() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after disconnect")
	}

	select {
	case <-env.spawner.adapter(0).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after disconnect")
	}

	assert.NotContains(t, rec.Body.String(), `"type":"done"`)
	cancelled := env.history(t, events.GenerationCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "src/slides/a.tsx", cancelled[0].Item)
}

func TestStream_DisconnectAfterResultKillsProcess(t *testing.T) {
	env := newTestEnv(t, `
echo '{"type":"system","subtype":"init","session_id":"s1"}'
echo '{"type":"result","subtype":"success","result":"ok","session_id":"s1"}'
sleep 30`)
	srv := httptest.NewServer(http.HandlerFunc(env.handler.Edit))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "POST", srv.URL, strings.NewReader(`{"prompt":"x","filePath":"src/slides/a.tsx"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.Contains(line, `"type":"result"`) {
			break
		}
	}
	cancel()

	require.Eventually(t, func() bool { return env.spawner.calls() == 1 }, time.Second, 10*time.Millisecond)
	select {
	case <-env.spawner.adapter(0).Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after disconnect")
	}

	require.Eventually(t, func() bool {
		return len(env.history(t, events.GenerationFinished)) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, env.history(t, events.GenerationCancelled))
	assert.Empty(t, env.history(t, events.GenerationFailed))
}

func TestStream_ShutdownContextKillsProcess(t *testing.T) {
	env := newTestEnv(t, "sleep 30")
	ctx, cancel := context.WithCancel(context.Background())
	env.handler.baseCtx = ctx

	returned := make(chan *httptest.ResponseRecorder)
	go func() {
		returned <- post(env.handler.Generate, `{"prompt":"x"}`)
	}()

	require.Eventually(t, func() bool { return env.spawner.calls() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case rec := <-returned:
		assert.Contains(t, rec.Body.String(), "data: {\"type\":\"done\",\"code\":null}\n\n")
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not return after shutdown")
	}
}
