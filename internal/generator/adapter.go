// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package generator runs the external generation CLI and turns its output into an
// ordered stream of events.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/wingedpig/slidesmith/internal/config"
)

const (
	defaultStopTimeout = 5 * time.Second
	eventBuffer        = 64
	readChunk          = 32 * 1024
)

// Request describes one generation run.
type Request struct {
	Prompt          string
	WorkDir         string
	ResumeSessionID string
}

// Spawner starts generation processes.
type Spawner interface {
	Spawn(ctx context.Context, req Request) (*Adapter, error)
}

// CLISpawner spawns the configured CLI in stream-json mode.
type CLISpawner struct {
	Command     string
	Args        []string
	PromptFlag  string
	ResumeFlag  string
	Env         map[string]string
	StopTimeout time.Duration
	MaxDuration time.Duration
	MaxLine     int // longest accepted output line; 0 means DefaultMaxLine

	pool *Pool
}

// NewCLISpawner builds a spawner from generator config. Adapters are tracked in pool
// when it is non-nil.
func NewCLISpawner(cfg config.GeneratorConfig, pool *Pool) *CLISpawner {
	return &CLISpawner{
		Command:     cfg.Command,
		Args:        cfg.Args,
		PromptFlag:  cfg.PromptFlag,
		ResumeFlag:  cfg.ResumeFlag,
		Env:         cfg.Env,
		StopTimeout: config.ParseDuration(cfg.StopTimeout, defaultStopTimeout),
		MaxDuration: config.ParseDuration(cfg.MaxDuration, 0),
		MaxLine:     cfg.MaxLineBytes,
		pool:        pool,
	}
}

// CommandArgs returns the argument vector for req, excluding the command itself.
func (s *CLISpawner) CommandArgs(req Request) []string {
	args := make([]string, 0, len(s.Args)+4)
	args = append(args, s.Args...)
	if s.PromptFlag != "" {
		args = append(args, s.PromptFlag)
	}
	args = append(args, req.Prompt)
	if req.ResumeSessionID != "" && s.ResumeFlag != "" {
		args = append(args, s.ResumeFlag, req.ResumeSessionID)
	}
	return args
}

// Spawn starts one process for req. A process that fails to start still yields an
// adapter, whose only event is the start error.
func (s *CLISpawner) Spawn(ctx context.Context, req Request) (*Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(s.Command, s.CommandArgs(req)...)
	cmd.Dir = req.WorkDir
	cmd.Stdin = nil // /dev/null

	// Own process group so Kill reaches tools the CLI spawns
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	cmd.Env = os.Environ()
	for k, v := range s.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	a := newAdapter(cmd, s.StopTimeout)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		log.Printf("generator: failed to start %s: %v", s.Command, err)
		a.fail(fmt.Sprintf("failed to start generator: %v", err))
		return a, nil
	}
	a.pid = cmd.Process.Pid
	a.maxLine = s.MaxLine
	if a.maxLine <= 0 {
		a.maxLine = DefaultMaxLine
	}
	log.Printf("generator: started pid %d in %s (resume=%t)", a.pid, req.WorkDir, req.ResumeSessionID != "")

	if s.pool != nil {
		s.pool.Track(a)
	}
	go a.run(stdout, stderr)

	// Server shutdown reaches running generators through ctx
	go func() {
		select {
		case <-ctx.Done():
			a.Kill()
		case <-a.exited:
		}
	}()

	if s.MaxDuration > 0 {
		timer := time.AfterFunc(s.MaxDuration, func() {
			a.abort(fmt.Sprintf("generation exceeded %s", s.MaxDuration))
		})
		go func() {
			<-a.exited
			timer.Stop()
		}()
	}

	return a, nil
}

// Adapter wraps one running generation process.
//
// Stdout and stderr are read concurrently but all events pass through a single
// emitter, so Events delivers them one at a time and in stdout order.
type Adapter struct {
	cmd         *exec.Cmd
	pid         int
	stopTimeout time.Duration
	maxLine     int

	out    chan Event    // readers -> emitter
	events chan Event    // emitter -> consumer
	exited chan struct{} // closed after the process has been reaped

	sessionSent bool                   // touched only by the stdout reader
	abortMsg    atomic.Pointer[string] // replaces the exit status with an error event
	killOnce    sync.Once
}

func newAdapter(cmd *exec.Cmd, stopTimeout time.Duration) *Adapter {
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}
	a := &Adapter{
		cmd:         cmd,
		stopTimeout: stopTimeout,
		out:         make(chan Event, eventBuffer),
		events:      make(chan Event, eventBuffer),
		exited:      make(chan struct{}),
	}
	go a.emit()
	return a
}

// Events returns the ordered event channel. It is closed after the terminal event.
// Callers must drain it; the process is not reaped while events are pending.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

// PID returns the process id, or 0 if the process never started.
func (a *Adapter) PID() int {
	return a.pid
}

// Done returns a channel closed once the process has exited.
func (a *Adapter) Done() <-chan struct{} {
	return a.exited
}

// Wait blocks until the process has exited.
func (a *Adapter) Wait() {
	<-a.exited
}

// Kill terminates the process group: SIGTERM first, SIGKILL after the stop timeout.
// It returns immediately, is idempotent, and does nothing once the process has exited.
func (a *Adapter) Kill() {
	select {
	case <-a.exited:
		return
	default:
	}
	if a.pid == 0 {
		return
	}

	a.killOnce.Do(func() {
		pgid := a.pid
		if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			log.Printf("generator: SIGTERM pid %d: %v", pgid, err)
		}
		go func() {
			select {
			case <-a.exited:
			case <-time.After(a.stopTimeout):
				log.Printf("generator: pid %d ignored SIGTERM, sending SIGKILL", pgid)
				syscall.Kill(-pgid, syscall.SIGKILL)
			}
		}()
	})
}

// abort kills the process and reports msg as its terminal error. Only the first
// reason is kept.
func (a *Adapter) abort(msg string) {
	if a.abortMsg.CompareAndSwap(nil, &msg) {
		log.Printf("generator: pid %d: %s, killing", a.pid, msg)
	}
	a.Kill()
}

// emit is the only writer of the consumer channel.
func (a *Adapter) emit() {
	defer close(a.events)
	for ev := range a.out {
		a.events <- ev
	}
}

// fail ends a never-started adapter with a single error event.
func (a *Adapter) fail(msg string) {
	a.out <- errorEvent(msg)
	close(a.out)
	close(a.exited)
}

func (a *Adapter) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.readLines("stdout", stdout, a.handleStdout)
	}()
	go func() {
		defer wg.Done()
		a.readLines("stderr", stderr, a.handleStderr)
	}()
	wg.Wait()

	err := a.cmd.Wait()
	close(a.exited)

	switch msg := a.abortMsg.Load(); {
	case msg != nil:
		a.out <- errorEvent(*msg)
	case err == nil:
		code := 0
		a.out <- doneEvent(&code)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			var code *int
			// ExitCode is -1 when the process was terminated by a signal
			if c := exitErr.ExitCode(); c >= 0 {
				code = &c
			}
			a.out <- doneEvent(code)
		} else {
			a.out <- errorEvent(err.Error())
		}
	}
	log.Printf("generator: pid %d exited (%v)", a.pid, err)
	close(a.out)
}

func (a *Adapter) readLines(name string, r io.Reader, handle func([]byte)) {
	lb := LineBuffer{Max: a.maxLine}
	chunk := make([]byte, readChunk)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			lines, lineErr := lb.Write(chunk[:n])
			for _, line := range lines {
				handle(line)
			}
			if lineErr != nil {
				a.abort(fmt.Sprintf("generator %s line exceeded %d bytes", name, a.maxLine))
				// Drain so the process is not blocked writing while it exits
				io.Copy(io.Discard, r)
				return
			}
		}
		if err != nil {
			if err != io.EOF && !errors.Is(err, os.ErrClosed) {
				log.Printf("generator: pid %d read error: %v", a.pid, err)
			}
			break
		}
	}
	if line := lb.Flush(); line != nil {
		handle(line)
	}
}

func (a *Adapter) handleStdout(line []byte) {
	if len(line) == 0 {
		return
	}
	ev, init := Classify(line)
	if init {
		if !a.sessionSent && ev.SessionID != "" {
			a.sessionSent = true
			a.out <- ev
		}
		return
	}
	a.out <- ev
}

func (a *Adapter) handleStderr(line []byte) {
	if len(line) == 0 {
		return
	}
	a.out <- stderrEvent(string(line))
}
