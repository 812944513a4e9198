// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package batch drives the apply-to-many workflow: pick a set of items, run one
// generation per item strictly in order, then review the outcome.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Phase is the orchestrator state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelecting Phase = "selecting"
	PhaseApplying  Phase = "applying"
	PhaseReviewing Phase = "reviewing"
)

// Status is the state of one item in a batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// CancelledReason is the error recorded on the item that was running when the
// batch was cancelled.
const CancelledReason = "cancelled"

var (
	ErrEmptySelection = errors.New("no items selected")
	ErrInvalidPhase   = errors.New("not allowed in the current phase")
	ErrUnknownItem    = errors.New("unknown item")
	ErrCancelled      = errors.New("batch cancelled")
)

// RunFunc performs the one-shot operation for key. It must return promptly once
// ctx is done.
type RunFunc func(ctx context.Context, key string) error

// Item is one entry of a batch.
type Item struct {
	Key    string `json:"key"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Snapshot is a copy of the orchestrator state.
type Snapshot struct {
	Phase    Phase    `json:"phase"`
	Selected []string `json:"selected"`
	Items    []Item   `json:"items"`
}

// Summary counts batch outcomes.
type Summary struct {
	Total  int    `json:"total"`
	Done   int    `json:"done"`
	Failed int    `json:"failed"`
	Items  []Item `json:"items"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithOnChange registers fn to receive a snapshot after every state change.
// Calls are serialised.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *Orchestrator) {
		o.onChange = fn
	}
}

// Orchestrator is the batch state machine:
//
//	idle -> selecting -> applying -> reviewing -> idle
//
// with Cancel returning selecting or applying to idle. Methods are safe to call
// from any goroutine; Apply blocks until the batch ends.
type Orchestrator struct {
	run      RunFunc
	onChange func(Snapshot)
	notifyMu sync.Mutex

	mu        sync.Mutex
	phase     Phase
	available []string
	selected  []string
	items     []Item
	cancel    context.CancelFunc
}

// New returns an idle orchestrator that runs items with run.
func New(run RunFunc, opts ...Option) *Orchestrator {
	o := &Orchestrator{run: run, phase: PhaseIdle}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin starts selecting among keys, with nothing selected.
func (o *Orchestrator) Begin(keys []string) error {
	o.mu.Lock()
	if o.phase != PhaseIdle {
		defer o.mu.Unlock()
		return o.phaseErr("begin")
	}
	o.phase = PhaseSelecting
	o.available = dedupe(keys)
	o.selected = nil
	o.items = nil
	o.mu.Unlock()

	o.notify()
	return nil
}

// Toggle adds key to the selection, or removes it if already selected.
// Selected keys keep the order they were added in.
func (o *Orchestrator) Toggle(key string) error {
	o.mu.Lock()
	if o.phase != PhaseSelecting {
		defer o.mu.Unlock()
		return o.phaseErr("toggle")
	}
	if !contains(o.available, key) {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownItem, key)
	}
	if i := indexOf(o.selected, key); i >= 0 {
		o.selected = append(o.selected[:i:i], o.selected[i+1:]...)
	} else {
		o.selected = append(o.selected, key)
	}
	o.mu.Unlock()

	o.notify()
	return nil
}

// SelectAll selects every available key in the order given to Begin.
func (o *Orchestrator) SelectAll() error {
	return o.setSelection("select all", func() []string {
		return append([]string(nil), o.available...)
	})
}

// DeselectAll clears the selection.
func (o *Orchestrator) DeselectAll() error {
	return o.setSelection("deselect all", func() []string { return nil })
}

func (o *Orchestrator) setSelection(op string, fn func() []string) error {
	o.mu.Lock()
	if o.phase != PhaseSelecting {
		defer o.mu.Unlock()
		return o.phaseErr(op)
	}
	o.selected = fn()
	o.mu.Unlock()

	o.notify()
	return nil
}

// Apply runs every selected item in selection order, one at a time, and blocks
// until the batch ends. An item's failure is recorded and the batch moves on.
//
// When ctx is done or Cancel is called, the running item is aborted and marked
// as an error, later items stay pending, the phase returns to idle and
// ErrCancelled is returned. Otherwise the phase becomes reviewing.
func (o *Orchestrator) Apply(ctx context.Context) (Summary, error) {
	o.mu.Lock()
	if o.phase != PhaseSelecting {
		defer o.mu.Unlock()
		return Summary{}, o.phaseErr("apply")
	}
	if len(o.selected) == 0 {
		o.mu.Unlock()
		return Summary{}, ErrEmptySelection
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.cancel = cancel
	o.phase = PhaseApplying
	o.items = make([]Item, len(o.selected))
	for i, key := range o.selected {
		o.items[i] = Item{Key: key, Status: StatusPending}
	}
	o.mu.Unlock()
	o.notify()

	cancelled := false
	for i := range o.items {
		if runCtx.Err() != nil {
			cancelled = true
			break
		}
		key := o.setStatus(i, StatusProcessing, "")

		err := o.run(runCtx, key)
		switch {
		case runCtx.Err() != nil:
			cancelled = true
			o.setStatus(i, StatusError, CancelledReason)
		case err != nil:
			o.setStatus(i, StatusError, err.Error())
		default:
			o.setStatus(i, StatusDone, "")
		}
		if cancelled {
			break
		}
	}

	o.mu.Lock()
	o.cancel = nil
	if cancelled {
		o.phase = PhaseIdle
	} else {
		o.phase = PhaseReviewing
	}
	summary := o.summaryLocked()
	o.mu.Unlock()
	o.notify()

	if cancelled {
		return summary, ErrCancelled
	}
	return summary, nil
}

// Cancel leaves the selecting phase, or aborts a running batch. Apply returns
// once the running item has stopped.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	switch o.phase {
	case PhaseSelecting:
		o.phase = PhaseIdle
		o.available = nil
		o.selected = nil
		o.mu.Unlock()
		o.notify()
		return nil
	case PhaseApplying:
		cancel := o.cancel
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
	defer o.mu.Unlock()
	return o.phaseErr("cancel")
}

// FinishReview closes the review and clears the batch.
func (o *Orchestrator) FinishReview() error {
	o.mu.Lock()
	if o.phase != PhaseReviewing {
		defer o.mu.Unlock()
		return o.phaseErr("finish review")
	}
	o.phase = PhaseIdle
	o.available = nil
	o.selected = nil
	o.items = nil
	o.mu.Unlock()

	o.notify()
	return nil
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		Phase:    o.phase,
		Selected: append([]string(nil), o.selected...),
		Items:    append([]Item(nil), o.items...),
	}
}

// Summary counts the outcomes of the current or last batch.
func (o *Orchestrator) Summary() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.summaryLocked()
}

func (o *Orchestrator) summaryLocked() Summary {
	s := Summary{Total: len(o.items), Items: append([]Item(nil), o.items...)}
	for _, it := range o.items {
		switch it.Status {
		case StatusDone:
			s.Done++
		case StatusError:
			s.Failed++
		}
	}
	return s
}

func (o *Orchestrator) setStatus(i int, status Status, reason string) string {
	o.mu.Lock()
	o.items[i].Status = status
	o.items[i].Error = reason
	key := o.items[i].Key
	o.mu.Unlock()

	o.notify()
	return key
}

func (o *Orchestrator) phaseErr(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidPhase, op, o.phase)
}

func (o *Orchestrator) notify() {
	if o.onChange == nil {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	o.onChange(o.Snapshot())
}

func dedupe(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !contains(out, k) {
			out = append(out, k)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	return indexOf(list, s) >= 0
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
