// query/handle.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package query provides cancelable handles to asynchronous spatial
// searches and the machinery to consume their results, either by
// callbacks drained on an owning goroutine or by blocking until a set of
// searches has settled.
package query

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type State int

const (
	Pending State = iota
	Done
	Error
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Error:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether s is final; Cancelled counts as terminal.
func (s State) Terminal() bool {
	return s != Pending
}

// Handle represents one outstanding or completed search that produces a
// sequence of T. It is shared by the goroutine that issued the search and
// the worker that runs it.
//
// A handle makes at most one transition out of Pending. Its result is
// written once, at that transition, and is not modified afterward.
//
// A nil *Handle stands for a search that could not be issued because no
// engine was available; all methods may be called on it and report it
// as failed with no result.
type Handle[T any] struct {
	mu        sync.Mutex
	state     State
	err       error
	result    []T
	executing bool
	done      chan struct{}

	action    func(context.Context) ([]T, error)
	interrupt func()

	subscriptions []*callback
	notifiers     []func()
}

// NewHandle returns a Pending handle that will run action when a worker
// calls Execute. If the handle is canceled while action is running,
// interrupt (which may be nil) is called; it should make the context
// passed to Execute done.
func NewHandle[T any](action func(context.Context) ([]T, error), interrupt func()) *Handle[T] {
	return &Handle[T]{
		action:    action,
		interrupt: interrupt,
		done:      make(chan struct{}),
	}
}

// Completed returns a handle that is already Done with the given result.
func Completed[T any](result []T) *Handle[T] {
	h := NewHandle[T](nil, nil)
	h.state = Done
	h.result = result
	close(h.done)
	return h
}

// State returns the handle's current state; a nil handle is in Error.
func (h *Handle[T]) State() State {
	if h == nil {
		return Error
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// IsDone returns true once the handle has reached any terminal state.
func (h *Handle[T]) IsDone() bool { return h.State().Terminal() }

func (h *Handle[T]) IsError() bool { return h.State() == Error }

func (h *Handle[T]) IsCancelled() bool { return h.State() == Cancelled }

// Succeeded returns true if the search completed and its result is valid.
func (h *Handle[T]) Succeeded() bool { return h.State() == Done }

// Result returns the search's candidates in the order the engine produced
// them. It returns nil unless the handle is Done; once it is, every call
// returns the same slice, which callers must not modify.
func (h *Handle[T]) Result() []T {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Done {
		return nil
	}
	return h.result
}

// Err returns the error that the search failed with, or nil if it hasn't
// failed.
func (h *Handle[T]) Err() error {
	if h == nil {
		return ErrEngineUnavailable
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Done returns a channel that is closed when the handle reaches a
// terminal state.
func (h *Handle[T]) Done() <-chan struct{} {
	if h == nil {
		return closedChan
	}
	return h.done
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Wait blocks until the handle is terminal or ctx is done.
func (h *Handle[T]) Wait(ctx context.Context) error {
	select {
	case <-h.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe arranges for fn to be called exactly once, from d's Drain,
// after the handle becomes terminal. This holds even if the handle is
// already terminal: fn is never called from Subscribe itself.
func (h *Handle[T]) Subscribe(d *Dispatcher, fn func()) {
	if h == nil {
		// There is no search to wait for; the failure is delivered like
		// any other.
		d.ready(d.register(fn))
		return
	}

	cb := d.register(fn)

	h.mu.Lock()
	// Subscriptions are kept after completion so that Cancel can still
	// drop callbacks that haven't been drained yet.
	h.subscriptions = append(h.subscriptions, cb)
	terminal := h.state.Terminal()
	h.mu.Unlock()

	if terminal {
		d.ready(cb)
	}
}

// Notify registers fn to be called directly when the handle reaches a
// terminal state other than Cancelled, on the goroutine that completes
// it. If the handle is already terminal, fn is called before Notify
// returns. fn may race with Cancel; callers that need to ignore stale
// notifications must check for that themselves.
func (h *Handle[T]) Notify(fn func()) {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.state.Terminal() {
		h.notifiers = append(h.notifiers, fn)
		h.mu.Unlock()
		return
	}
	cancelled := h.state == Cancelled
	h.mu.Unlock()

	if !cancelled {
		fn()
	}
}

// Execute runs the search on the calling goroutine, unless the handle
// has already reached a terminal state. It is called by engine workers.
func (h *Handle[T]) Execute(ctx context.Context) {
	h.mu.Lock()
	if h.state.Terminal() {
		h.mu.Unlock()
		return
	}
	h.executing = true
	action := h.action
	h.mu.Unlock()

	result, err := runAction(ctx, action)
	h.complete(result, err)
}

// runAction calls action, turning a panic into an ErrSearchPanicked
// error so that the handle still reaches a terminal state.
func runAction[T any](ctx context.Context, action func(context.Context) ([]T, error)) (result []T, err error) {
	if action == nil {
		return nil, ErrNoAction
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", ErrSearchPanicked, r)
		}
	}()
	return action(ctx)
}

// SetError moves a Pending handle to the Error state; engines use it for
// searches that will never run, e.g. when they are shutting down.
func (h *Handle[T]) SetError(err error) {
	if err == nil {
		err = ErrEngineUnavailable
	}
	h.complete(nil, err)
}

// complete performs the handle's terminal transition, unless another one
// got there first.
func (h *Handle[T]) complete(result []T, err error) {
	h.mu.Lock()
	h.executing = false
	if h.state.Terminal() {
		// Canceled while the search ran; drop the late result.
		h.mu.Unlock()
		return
	}

	if err != nil {
		h.state, h.err = Error, err
	} else {
		h.state, h.result = Done, result
	}
	h.action = nil
	close(h.done)

	subscriptions, notifiers := slices.Clone(h.subscriptions), h.notifiers
	h.notifiers = nil
	h.mu.Unlock()

	for _, fn := range notifiers {
		fn()
	}
	readyAll(subscriptions)
}

// cancel detaches all callbacks and forces the Cancelled state if the
// handle hasn't settled yet.
func (h *Handle[T]) cancel() {
	h.mu.Lock()
	subscriptions := h.subscriptions
	h.subscriptions, h.notifiers = nil, nil

	var interrupt func()
	if !h.state.Terminal() {
		h.state = Cancelled
		h.action = nil
		close(h.done)
		if h.executing {
			interrupt = h.interrupt
		}
	}
	h.mu.Unlock()

	for _, cb := range subscriptions {
		cb.drop()
	}
	if interrupt != nil {
		interrupt()
	}
}

// Cancel cancels the search that *hp refers to and sets *hp to nil.
// Callbacks registered with the handle are dropped, so once Cancel
// returns nothing observes the search again, though the worker may still
// run it to completion. Canceling a nil handle is a no-op.
func Cancel[T any](hp **Handle[T]) {
	if hp == nil || *hp == nil {
		return
	}
	h := *hp
	*hp = nil
	h.cancel()
}
