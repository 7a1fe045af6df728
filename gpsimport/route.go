// gpsimport/route.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/math"

	"github.com/brunoga/deep"
	"github.com/iancoleman/orderedmap"
)

// DefaultAltitude is the altitude in feet given to imported waypoints;
// devices don't report one.
const DefaultAltitude = 5000

// Waypoint is a device waypoint after it has been matched against the
// navigation database.
type Waypoint struct {
	Ident string
	Name  string
	// DeviceIdent is the identifier the device reported.
	DeviceIdent string
	// Location is always the device's position for the waypoint, even
	// when it matched a database entity.
	Location math.Point2LL
	// Type is the category of the matched entity, or
	// aviation.CategoryGeneric.
	Type       aviation.Category
	NavaidType aviation.NavaidType
	Frequency  aviation.Frequency
	Altitude   int
	Time       time.Time
}

func (w Waypoint) Resolved() bool {
	return w.Type != aviation.CategoryGeneric
}

func (w Waypoint) String() string {
	s := w.Ident
	if w.Name != "" && w.Name != w.Ident {
		s += " (" + w.Name + ")"
	}
	return s + " " + w.Type.String() + " " + w.Location.DDString()
}

// Route is the flight plan built from a device's waypoints.
type Route struct {
	waypoints []Waypoint
	current   int

	OffBlock time.Time
	OnBlock  time.Time
}

func NewRoute() *Route {
	return &Route{current: -1}
}

// Append adds w at the end of the route and returns its index.
func (r *Route) Append(w Waypoint) int {
	r.waypoints = append(r.waypoints, w)
	return len(r.waypoints) - 1
}

func (r *Route) Len() int { return len(r.waypoints) }

func (r *Route) At(i int) Waypoint { return r.waypoints[i] }

func (r *Route) Waypoints() []Waypoint { return slices.Clone(r.waypoints) }

// CurrentWaypoint returns the index of the waypoint the aircraft is
// flying to, or -1.
func (r *Route) CurrentWaypoint() int { return r.current }

// SetCurrentWaypoint sets the active waypoint; -1 clears it.
func (r *Route) SetCurrentWaypoint(i int) error {
	if i < -1 || i >= len(r.waypoints) {
		return fmt.Errorf("%d: %w", i, ErrInvalidWaypoint)
	}
	r.current = i
	return nil
}

func (r *Route) Clone() *Route {
	return &Route{
		waypoints: deep.MustCopy(r.waypoints),
		current:   r.current,
		OffBlock:  r.OffBlock,
		OnBlock:   r.OnBlock,
	}
}

// Leg is the segment between two successive waypoints of a route.
type Leg struct {
	From, To   int
	DistanceNM float32
	TrueCourse float32
}

func (r *Route) Legs() []Leg {
	var legs []Leg
	for i := 1; i < len(r.waypoints); i++ {
		p0, p1 := r.waypoints[i-1].Location, r.waypoints[i].Location
		legs = append(legs, Leg{
			From:       i - 1,
			To:         i,
			DistanceNM: math.NMDistance2LL(p0, p1),
			TrueCourse: math.TrueCourse2LL(p0, p1),
		})
	}
	return legs
}

func (w Waypoint) orderedMap() *orderedmap.OrderedMap {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	m.Set("ident", w.Ident)
	if w.Name != "" {
		m.Set("name", w.Name)
	}
	if w.DeviceIdent != w.Ident {
		m.Set("device_ident", w.DeviceIdent)
	}
	m.Set("type", w.Type.String())
	if w.Type == aviation.CategoryNavaid {
		m.Set("navaid_type", w.NavaidType.String())
	}
	if w.Frequency != 0 {
		m.Set("frequency", w.Frequency.String())
	}
	m.Set("location", w.Location)
	m.Set("altitude", w.Altitude)
	if !w.Time.IsZero() {
		m.Set("time", w.Time.UTC().Format(time.RFC3339))
	}
	return m
}

// MarshalJSON writes the route with its keys in a fixed, readable order.
func (r *Route) MarshalJSON() ([]byte, error) {
	m := orderedmap.New()
	m.SetEscapeHTML(false)
	if !r.OffBlock.IsZero() {
		m.Set("offblock", r.OffBlock.UTC().Format(time.RFC3339))
	}
	if !r.OnBlock.IsZero() {
		m.Set("onblock", r.OnBlock.UTC().Format(time.RFC3339))
	}
	m.Set("current", r.current)

	wps := make([]*orderedmap.OrderedMap, len(r.waypoints))
	for i, w := range r.waypoints {
		wps[i] = w.orderedMap()
	}
	m.Set("waypoints", wps)

	return json.Marshal(m)
}
