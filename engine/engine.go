// engine/engine.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package engine runs find-nearest searches against a navigation store on
// a pool of worker goroutines and hands the results back through
// query.Handles.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/math"
	"github.com/flightdeck/navquery/navdb"
	"github.com/flightdeck/navquery/query"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Options struct {
	// Workers is the number of goroutines running searches. Searches are
	// run in the order they were issued when there is a single worker.
	Workers int
	// CacheSize is the number of recent search results kept; a negative
	// value disables the cache.
	CacheSize int
	CacheTTL  time.Duration
}

const (
	DefaultWorkers   = 1
	DefaultCacheSize = 256
	DefaultCacheTTL  = 10 * time.Minute
)

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.CacheSize == 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
}

// Stats counts what has happened to the searches issued by an Engine.
type Stats struct {
	Issued    int64
	Completed int64
	Failed    int64
	Cancelled int64
	CacheHits int64
}

func (s Stats) String() string {
	return fmt.Sprintf("issued %d completed %d failed %d cancelled %d cache hits %d",
		s.Issued, s.Completed, s.Failed, s.Cancelled, s.CacheHits)
}

type searchKey struct {
	cat       aviation.Category
	pt        math.Point2LL
	window    math.Extent2D
	limit     int
	subtables aviation.Subtables
}

// task is a queued search; the closures hide the handle's element type.
type task struct {
	run  func()
	fail func(error)
}

// Engine is the asynchronous front end to a navdb.Store. A nil *Engine is
// valid and issues nothing: its find methods return nil handles.
type Engine struct {
	store navdb.Store
	lg    *log.Logger
	cache *expirable.LRU[searchKey, []aviation.Entity]

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []task
	closed bool
	wg     sync.WaitGroup

	issued, completed, failed, cancelled, cacheHits atomic.Int64
}

// New starts an engine that searches store. The engine does not take
// ownership of store; closing it is up to the caller, after Close.
func New(store navdb.Store, opts Options, lg *log.Logger) *Engine {
	opts.setDefaults()

	e := &Engine{store: store, lg: lg}
	e.cond = sync.NewCond(&e.mu)
	if opts.CacheSize > 0 {
		e.cache = expirable.NewLRU[searchKey, []aviation.Entity](opts.CacheSize, nil, opts.CacheTTL)
	}

	for i := range opts.Workers {
		e.wg.Add(1)
		go e.worker(i)
	}

	lg.Infof("engine started with %d workers, cache size %d", opts.Workers, opts.CacheSize)
	return e
}

func (e *Engine) worker(i int) {
	defer e.wg.Done()
	defer e.lg.CatchAndReportCrash()

	for {
		e.mu.Lock()
		for len(e.queue) == 0 && !e.closed {
			e.cond.Wait()
		}
		if e.closed {
			e.mu.Unlock()
			return
		}
		t := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		t.run()
	}
}

// Close stops the workers after the searches they are running finish.
// Searches still in the queue move to the Error state. Searches issued
// after Close return nil handles.
func (e *Engine) Close() {
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	queued := e.queue
	e.queue = nil
	e.cond.Broadcast()
	e.mu.Unlock()

	for _, t := range queued {
		t.fail(ErrEngineClosed)
	}
	e.wg.Wait()

	e.lg.Infof("engine closed: %s", e.Stats())
}

func (e *Engine) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return Stats{
		Issued:    e.issued.Load(),
		Completed: e.completed.Load(),
		Failed:    e.failed.Load(),
		Cancelled: e.cancelled.Load(),
		CacheHits: e.cacheHits.Load(),
	}
}

// QueueLen returns the number of searches waiting for a worker.
func (e *Engine) QueueLen() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) search(ctx context.Context, key searchKey) ([]aviation.Entity, error) {
	if e.cache != nil {
		if r, ok := e.cache.Get(key); ok {
			e.cacheHits.Add(1)
			return r, nil
		}
	}

	r, err := e.store.FindNearest(ctx, key.cat, key.pt, key.window, key.limit, key.subtables)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(key, r)
	}
	return r, nil
}

func convert[T aviation.Entity](entities []aviation.Entity) ([]T, error) {
	r := make([]T, 0, len(entities))
	for _, ent := range entities {
		t, ok := ent.(T)
		if !ok {
			return nil, fmt.Errorf("%s %q: %w", ent.Category(), ent.Ident(), ErrUnexpectedEntity)
		}
		r = append(r, t)
	}
	return r, nil
}

// find queues a search and returns its handle. Canceling the handle while
// the search runs cancels the context passed to the store.
func find[T aviation.Entity](e *Engine, cat aviation.Category, pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[T] {
	if e == nil || e.store == nil {
		return nil
	}

	key := searchKey{cat: cat, pt: pt, window: window, limit: limit, subtables: subtables}
	ctx, interrupt := context.WithCancel(context.Background())
	h := query.NewHandle(func(ctx context.Context) ([]T, error) {
		entities, err := e.search(ctx, key)
		if err != nil {
			return nil, err
		}
		return convert[T](entities)
	}, interrupt)

	t := task{
		run: func() {
			defer interrupt()
			if h.IsCancelled() {
				e.cancelled.Add(1)
				return
			}

			h.Execute(ctx)

			switch h.State() {
			case query.Done:
				e.completed.Add(1)
			case query.Error:
				e.failed.Add(1)
				if err := h.Err(); errors.Is(err, query.ErrSearchPanicked) {
					e.lg.Errorf("%s search at %s: %v", cat, pt.DDString(), err)
				} else {
					e.lg.Debugf("%s search at %s failed: %v", cat, pt.DDString(), err)
				}
			case query.Cancelled:
				e.cancelled.Add(1)
			}
		},
		fail: func(err error) {
			defer interrupt()
			if h.IsCancelled() {
				e.cancelled.Add(1)
				return
			}
			h.SetError(err)
			e.failed.Add(1)
		},
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		interrupt()
		return nil
	}
	e.queue = append(e.queue, t)
	e.issued.Add(1)
	e.cond.Signal()
	e.mu.Unlock()

	return h
}

func (e *Engine) AirportFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.Airport] {
	return find[aviation.Airport](e, aviation.CategoryAirport, pt, limit, window, subtables)
}

func (e *Engine) NavaidFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.Navaid] {
	return find[aviation.Navaid](e, aviation.CategoryNavaid, pt, limit, window, subtables)
}

func (e *Engine) WaypointFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.Fix] {
	return find[aviation.Fix](e, aviation.CategoryWaypoint, pt, limit, window, subtables)
}

func (e *Engine) AirwayFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.Airway] {
	return find[aviation.Airway](e, aviation.CategoryAirway, pt, limit, window, subtables)
}

func (e *Engine) AirspaceFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.Airspace] {
	return find[aviation.Airspace](e, aviation.CategoryAirspace, pt, limit, window, subtables)
}

func (e *Engine) MapElementFindNearest(pt math.Point2LL, limit int, window math.Extent2D,
	subtables aviation.Subtables) *query.Handle[aviation.MapElement] {
	return find[aviation.MapElement](e, aviation.CategoryMapElement, pt, limit, window, subtables)
}

var _ query.Finder = (*Engine)(nil)
