// query/dispatcher.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package query

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Dispatcher delivers handle completion callbacks on a single owning
// goroutine. Workers mark callbacks ready and signal the dispatcher's
// wake channel; the owner receives from C and calls Drain, which runs
// the ready callbacks.
//
// Signals coalesce: any number of Notify calls before the owner drains
// produce a single pending wake-up.
type Dispatcher struct {
	mu      sync.Mutex
	pending []*callback // registration order
	wake    chan struct{}
}

type callback struct {
	d       *Dispatcher
	fn      func()
	ready   bool // protected by d.mu
	dropped atomic.Bool
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{wake: make(chan struct{}, 1)}
}

// C returns the channel the owning goroutine should receive from before
// calling Drain.
func (d *Dispatcher) C() <-chan struct{} {
	return d.wake
}

// Notify signals the owner that callbacks may be ready. It may be called
// from any goroutine and never blocks.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
		// A wake-up is already pending.
	}
}

func (d *Dispatcher) register(fn func()) *callback {
	cb := &callback{d: d, fn: fn}
	d.mu.Lock()
	d.pending = append(d.pending, cb)
	d.mu.Unlock()
	return cb
}

func (d *Dispatcher) ready(cb *callback) {
	readyAll([]*callback{cb})
}

// readyAll marks the callbacks as fireable and wakes each of their
// dispatchers once.
func readyAll(cbs []*callback) {
	var woken []*Dispatcher
	for _, cb := range cbs {
		cb.d.mu.Lock()
		cb.ready = true
		cb.d.mu.Unlock()
		if !slices.Contains(woken, cb.d) {
			woken = append(woken, cb.d)
		}
	}
	for _, d := range woken {
		d.Notify()
	}
}

func (cb *callback) drop() {
	cb.dropped.Store(true)
}

// Drain runs all of the ready callbacks in the order they were
// registered and returns how many ran. It must only be called from the
// owning goroutine.
func (d *Dispatcher) Drain() int {
	var fire []*callback
	d.mu.Lock()
	d.pending = slices.DeleteFunc(d.pending, func(cb *callback) bool {
		if cb.dropped.Load() {
			return true
		}
		if cb.ready {
			fire = append(fire, cb)
			return true
		}
		return false
	})
	d.mu.Unlock()

	n := 0
	for _, cb := range fire {
		// An earlier callback in this batch may have canceled the handle.
		if !cb.dropped.Load() {
			cb.fn()
			n++
		}
	}
	return n
}

// Pending returns the number of registered callbacks that haven't run
// yet, whether or not they are ready.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, cb := range d.pending {
		if !cb.dropped.Load() {
			n++
		}
	}
	return n
}

// Run drains the dispatcher each time it is woken, until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
			d.Drain()
		}
	}
}
