// query/coordinator.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package query

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/math"
)

// Finder issues the find-nearest searches a Coordinator needs. A limit of
// zero means no limit.
type Finder interface {
	AirportFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *Handle[aviation.Airport]
	NavaidFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *Handle[aviation.Navaid]
	WaypointFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *Handle[aviation.Fix]
}

type CoordinatorState int

const (
	Idle CoordinatorState = iota
	Querying
	Settled
)

func (s CoordinatorState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Querying:
		return "querying"
	case Settled:
		return "settled"
	default:
		return fmt.Sprintf("CoordinatorState(%d)", int(s))
	}
}

const (
	// SearchRadiusNM is the half-size of the window searched around the
	// query point.
	SearchRadiusNM = 1

	AirportSubtables  = aviation.SubtablesVFRRoutes | aviation.SubtablesRunways | aviation.SubtablesHelipads | aviation.SubtablesComms
	NavaidSubtables   = aviation.SubtablesNone
	WaypointSubtables = aviation.SubtablesNone
)

// Coordinator manages the airport, navaid and waypoint searches for one
// logical "what is near this point" lookup. Issuing a new lookup always
// cancels the previous one first, so that at most one generation of
// searches is ever live.
//
// Coordinator only orders candidates within a category; choosing between
// categories is up to the caller.
type Coordinator struct {
	finder Finder
	lg     *log.Logger

	mu   sync.Mutex
	cond *sync.Cond
	// generation is incremented each time the live searches are replaced
	// or canceled; completion notifications from other generations are
	// ignored.
	generation uint64
	querying   bool

	airport  *Handle[aviation.Airport]
	navaid   *Handle[aviation.Navaid]
	waypoint *Handle[aviation.Fix]

	airports  []aviation.Airport
	navaids   []aviation.Navaid
	waypoints []aviation.Fix
}

// NewCoordinator returns an Idle coordinator that issues searches through
// finder. finder may be nil, in which case no searches are issued and
// every lookup comes up empty.
func NewCoordinator(finder Finder, lg *log.Logger) *Coordinator {
	c := &Coordinator{finder: finder, lg: lg}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Query starts a lookup around pt for the requested categories and
// returns without waiting for it.
func (c *Coordinator) Query(pt math.Point2LL, wantAirport, wantNavaid, wantWaypoint bool) {
	c.mu.Lock()
	c.cancelLocked()

	c.generation++
	gen := c.generation
	c.querying = true

	window := math.BoxAroundNM(pt, SearchRadiusNM)
	if c.finder != nil {
		if wantAirport {
			c.airport = c.finder.AirportFindNearest(pt, 0, window, AirportSubtables)
		}
		if wantNavaid {
			c.navaid = c.finder.NavaidFindNearest(pt, 0, window, NavaidSubtables)
		}
		if wantWaypoint {
			c.waypoint = c.finder.WaypointFindNearest(pt, 0, window, WaypointSubtables)
		}
	}
	airport, navaid, waypoint := c.airport, c.navaid, c.waypoint
	c.mu.Unlock()

	c.lg.Debugf("query %d at %s: airport %v navaid %v waypoint %v", gen, pt.DDString(),
		wantAirport, wantNavaid, wantWaypoint)

	// Notify may call back immediately, so these are registered without
	// holding c.mu. Wait checks the handles' states itself, so the only
	// job of the notification is the wake-up.
	wake := func() { c.settle(gen) }
	airport.Notify(wake)
	navaid.Notify(wake)
	waypoint.Notify(wake)
}

func (c *Coordinator) settle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.cond.Broadcast()
	}
}

// Cancel cancels all live searches and returns the coordinator to Idle.
// Calling it when there is nothing to cancel does nothing.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Coordinator) cancelLocked() {
	if !c.querying {
		return
	}

	Cancel(&c.airport)
	Cancel(&c.navaid)
	Cancel(&c.waypoint)
	c.airports, c.navaids, c.waypoints = nil, nil, nil

	c.querying = false
	c.generation++
	// Release anyone blocked in Wait on the old generation.
	c.cond.Broadcast()
}

func (c *Coordinator) settledLocked() bool {
	return c.airport.IsDone() && c.navaid.IsDone() && c.waypoint.IsDone()
}

// State returns Idle before the first Query and after Cancel, Querying
// while any live search is pending, and Settled once all of them are.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.querying {
		return Idle
	} else if c.settledLocked() {
		return Settled
	}
	return Querying
}

// Wait blocks until every live search has reached a terminal state.
// There is no timeout; see WaitContext.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.querying && !c.settledLocked() {
		c.cond.Wait()
	}
}

// WaitContext is like Wait but gives up and returns ctx.Err() once ctx is
// done. The searches are left running.
func (c *Coordinator) WaitContext(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.querying && !c.settledLocked() {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.cond.Wait()
	}
	return nil
}

// Subscribe calls fn from d's Drain once all of the live searches have
// settled. A lookup whose searches are subscribed to this way should not
// also be waited on.
func (c *Coordinator) Subscribe(d *Dispatcher, fn func()) {
	c.mu.Lock()
	gen := c.generation
	airport, navaid, waypoint := c.airport, c.navaid, c.waypoint
	c.mu.Unlock()

	fired := false
	check := func() {
		c.mu.Lock()
		ok := !fired && gen == c.generation && c.settledLocked()
		if ok {
			fired = true
		}
		c.mu.Unlock()
		if ok {
			fn()
		}
	}

	n := 0
	if airport != nil {
		airport.Subscribe(d, check)
		n++
	}
	if navaid != nil {
		navaid.Subscribe(d, check)
		n++
	}
	if waypoint != nil {
		waypoint.Subscribe(d, check)
		n++
	}
	if n == 0 {
		// Nothing was requested; report the empty lookup on the next
		// drain all the same.
		d.ready(d.register(check))
	}
}

func sortedByDistance[T aviation.Entity](pt math.Point2LL, h *Handle[T]) []T {
	if !h.Succeeded() {
		return nil
	}
	s := slices.Clone(h.Result())
	slices.SortStableFunc(s, func(a, b T) int {
		da, db := math.NMDistance2LL(pt, a.Position()), math.NMDistance2LL(pt, b.Position())
		if da < db {
			return -1
		} else if da > db {
			return 1
		}
		return 0
	})
	return s
}

// Sort orders each category's candidates by increasing great-circle
// distance from pt; candidates at equal distances keep the engine's
// order. Categories that weren't requested or whose searches failed or
// were canceled have no candidates.
func (c *Coordinator) Sort(pt math.Point2LL) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.airports = sortedByDistance(pt, c.airport)
	c.navaids = sortedByDistance(pt, c.navaid)
	c.waypoints = sortedByDistance(pt, c.waypoint)

	c.lg.Debugf("sorted %d airports %d navaids %d waypoints around %s", len(c.airports),
		len(c.navaids), len(c.waypoints), pt.DDString())
}

// Airports returns the airports ordered by the last call to Sort. The
// returned slice must not be modified.
func (c *Coordinator) Airports() []aviation.Airport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.airports
}

func (c *Coordinator) Navaids() []aviation.Navaid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.navaids
}

func (c *Coordinator) Waypoints() []aviation.Fix {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waypoints
}

func first[T any](s []T) (T, bool) {
	if len(s) == 0 {
		var t T
		return t, false
	}
	return s[0], true
}

func (c *Coordinator) BestAirport() (aviation.Airport, bool) { return first(c.Airports()) }

func (c *Coordinator) BestNavaid() (aviation.Navaid, bool) { return first(c.Navaids()) }

func (c *Coordinator) BestWaypoint() (aviation.Fix, bool) { return first(c.Waypoints()) }

// Best returns the nearest candidate of the given category.
func (c *Coordinator) Best(cat aviation.Category) (aviation.Entity, bool) {
	switch cat {
	case aviation.CategoryAirport:
		if ap, ok := c.BestAirport(); ok {
			return ap, true
		}
	case aviation.CategoryNavaid:
		if n, ok := c.BestNavaid(); ok {
			return n, true
		}
	case aviation.CategoryWaypoint:
		if f, ok := c.BestWaypoint(); ok {
			return f, true
		}
	}
	return nil, false
}
