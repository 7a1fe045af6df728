// gpsimport/converter.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package gpsimport turns the flight plan stored in a GPS device into a
// route, matching each device waypoint against the navigation database.
package gpsimport

import (
	"context"
	"time"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/engine"
	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/query"
)

type Options struct {
	// Altitude is assigned to every imported waypoint; DefaultAltitude if
	// zero.
	Altitude int
}

// Converter resolves device waypoints one at a time, in flight plan
// order. It may only be used by one goroutine at a time.
type Converter struct {
	finder   query.Finder
	coord    *query.Coordinator
	lg       *log.Logger
	altitude int
	now      func() time.Time
}

// NewConverter returns a converter that searches with finder, which is
// normally an *engine.Engine.
func NewConverter(finder query.Finder, opts Options, lg *log.Logger) *Converter {
	if opts.Altitude == 0 {
		opts.Altitude = DefaultAltitude
	}
	if e, ok := finder.(*engine.Engine); ok && e == nil {
		finder = nil
	}
	return &Converter{
		finder:   finder,
		coord:    query.NewCoordinator(finder, lg),
		lg:       lg,
		altitude: opts.Altitude,
		now:      time.Now,
	}
}

// Convert builds a route from fpl. curwpt is the device's current
// waypoint as an index into fpl, or -1; if that waypoint is imported, the
// route's current waypoint is set to it.
//
// Waypoints whose type can't be looked up are left out of the route.
// Everything else is imported, with a generic type when nothing in the
// database matches. Search failures are treated the same as finding
// nothing.
func (c *Converter) Convert(ctx context.Context, fpl []DeviceWaypoint, curwpt int) (*Route, error) {
	if c.finder == nil {
		return nil, ErrEngineUnavailable
	}
	if len(fpl) == 0 {
		return nil, ErrEmptyFlightPlan
	}

	now := c.now()
	r := NewRoute()
	r.OffBlock, r.OnBlock = now, now

	for i, dw := range fpl {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		airport, navaid, waypoint, ok := dw.Type.search()
		if !ok {
			c.lg.Debugf("%s: skipping %s waypoint", dw.Ident, dw.Type)
			continue
		}

		// Records are resolved strictly in order; the next search isn't
		// issued until this one has been appended.
		c.coord.Query(dw.Location, airport, navaid, waypoint)
		if err := c.coord.WaitContext(ctx); err != nil {
			c.coord.Cancel()
			return nil, err
		}
		c.coord.Sort(dw.Location)

		w := c.resolve(dw, now)
		idx := r.Append(w)
		if i == curwpt {
			r.current = idx
		}
	}
	c.coord.Cancel()

	c.lg.Infof("converted %d device waypoints into a %d waypoint route", len(fpl), r.Len())
	return r, nil
}

// resolve takes the best match from the highest priority category:
// airports, then navaids, then waypoints.
func (c *Converter) resolve(dw DeviceWaypoint, now time.Time) Waypoint {
	w := Waypoint{
		Ident:       dw.Ident,
		DeviceIdent: dw.Ident,
		Location:    dw.Location,
		Type:        aviation.CategoryGeneric,
		Altitude:    c.altitude,
		Time:        now,
	}

	for _, cat := range []aviation.Category{aviation.CategoryAirport, aviation.CategoryNavaid, aviation.CategoryWaypoint} {
		e, ok := c.coord.Best(cat)
		if !ok {
			continue
		}

		w.Ident, w.Name, w.Type = e.Ident(), e.DisplayName(), cat
		switch e := e.(type) {
		case aviation.Airport:
			w.Frequency = e.Frequency()
		case aviation.Navaid:
			w.NavaidType, w.Frequency = e.Type, e.Frequency
		}
		c.lg.Debugf("%s at %s: found %s %s at %s", dw.Ident, dw.Location.DDString(), cat, e.Ident(),
			e.Position().DDString())
		return w
	}

	if dw.Type == TypeIntersection {
		w.Name = dw.Ident
	}
	c.lg.Debugf("%s at %s: no match", dw.Ident, dw.Location.DDString())
	return w
}

// ConvertFromSensors converts the flight plan of the devnr-th sensor
// that has a non-empty one, counting from zero. It returns the sensor
// along with the route.
func (c *Converter) ConvertFromSensors(ctx context.Context, sensors []Sensor, devnr int) (*Route, Sensor, error) {
	for _, s := range sensors {
		fpl, curwpt, err := s.FlightPlan()
		if err != nil {
			c.lg.Warnf("%s: %v", s.Name(), err)
			continue
		}
		if len(fpl) == 0 {
			continue
		}

		if devnr == 0 {
			r, err := c.Convert(ctx, fpl, curwpt)
			if err != nil {
				return nil, nil, err
			}
			return r, s, nil
		}
		devnr--
	}
	return nil, nil, ErrNoFlightPlan
}
