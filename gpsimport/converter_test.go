// gpsimport/converter_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/engine"
	"github.com/flightdeck/navquery/math"
	"github.com/flightdeck/navquery/navdb"
	"github.com/flightdeck/navquery/query"
)

// north returns the point nm nautical miles north of p.
func north(p math.Point2LL, nm float32) math.Point2LL {
	return math.Point2LL{p[0], p[1] + nm/math.NMPerLatitude}
}

func newTestConverter(t *testing.T, db *aviation.Database) *Converter {
	e := engine.New(navdb.NewMemoryStore(db), engine.Options{}, nil)
	t.Cleanup(e.Close)
	c := NewConverter(e, Options{}, nil)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestConvertScenario(t *testing.T) {
	p1, p2 := math.Point2LL{10, 20}, math.Point2LL{11, 21}
	db := &aviation.Database{
		Navaids: []aviation.Navaid{
			{Id: "ABC", Name: "ABC-VOR", Type: aviation.NavaidVOR, Frequency: 113900, Location: north(p1, 0.2)},
		},
		Airports: []aviation.Airport{
			{Id: "XYZ", Name: "XYZ", Location: north(p2, 0.1)},
		},
		Fixes: []aviation.Fix{
			{Id: "XYZW", Location: north(p2, 0.05)},
		},
	}
	c := newTestConverter(t, db)

	fpl := []DeviceWaypoint{
		{Ident: "ABC", Location: p1, Type: TypeVOR},
		{Ident: "XYZ", Location: p2, Type: TypeUndefined},
	}
	r, err := c.Convert(context.Background(), fpl, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("got %d waypoints", r.Len())
	}

	w := r.At(0)
	if w.Type != aviation.CategoryNavaid || w.Name != "ABC-VOR" || w.Location != p1 ||
		w.NavaidType != aviation.NavaidVOR || w.Frequency != 113900 {
		t.Errorf("first waypoint: %+v", w)
	}
	w = r.At(1)
	if w.Type != aviation.CategoryAirport || w.Name != "XYZ" || w.Location != p2 {
		t.Errorf("second waypoint: %+v", w)
	}
	for i, w := range r.Waypoints() {
		if w.Altitude != DefaultAltitude || !w.Time.Equal(c.now()) {
			t.Errorf("waypoint %d: altitude %d time %s", i, w.Altitude, w.Time)
		}
	}
	if r.CurrentWaypoint() != 1 {
		t.Errorf("current waypoint %d", r.CurrentWaypoint())
	}
}

func TestConvertPriority(t *testing.T) {
	pt := math.Point2LL{-122.3, 37.6}
	db := &aviation.Database{
		Airports: []aviation.Airport{
			{Id: "FAR", Location: north(pt, 0.9)},
			{Id: "NEAR", Location: north(pt, 0.5),
				Comms: []aviation.Comm{{Type: "ATIS", Frequency: 135100}, {Type: "TWR", Frequency: 120500}}},
		},
		Navaids: []aviation.Navaid{{Id: "VOR", Location: north(pt, 0.01)}},
		Fixes:   []aviation.Fix{{Id: "FIX", Location: pt}},
	}
	c := newTestConverter(t, db)

	for _, tc := range []struct {
		typ   DeviceType
		ident string
		cat   aviation.Category
	}{
		{TypeUndefined, "NEAR", aviation.CategoryAirport},
		{TypeAirport, "NEAR", aviation.CategoryAirport},
		{TypeHeliport, "NEAR", aviation.CategoryAirport},
		{TypeNDB, "VOR", aviation.CategoryNavaid},
		{TypeIntersection, "FIX", aviation.CategoryWaypoint},
	} {
		t.Run(tc.typ.String(), func(t *testing.T) {
			r, err := c.Convert(context.Background(), []DeviceWaypoint{{Ident: "DEV", Location: pt, Type: tc.typ}}, -1)
			if err != nil {
				t.Fatal(err)
			}
			w := r.At(0)
			if w.Ident != tc.ident || w.Type != tc.cat || w.DeviceIdent != "DEV" || w.Location != pt {
				t.Errorf("got %+v", w)
			}
			if tc.cat == aviation.CategoryAirport && w.Frequency != 120500 {
				t.Errorf("airport frequency %s", w.Frequency)
			}
		})
	}
}

func TestConvertNoMatch(t *testing.T) {
	pt := math.Point2LL{5, 5}
	db := &aviation.Database{
		// Outside of the search window.
		Airports: []aviation.Airport{{Id: "AWAY", Location: north(pt, 1.5)}},
	}
	c := newTestConverter(t, db)

	for _, typ := range []DeviceType{TypeUndefined, TypeMilitary, TypeVOR, TypeIntersection} {
		t.Run(typ.String(), func(t *testing.T) {
			r, err := c.Convert(context.Background(), []DeviceWaypoint{{Ident: "ZZZ01", Location: pt, Type: typ}}, 0)
			if err != nil {
				t.Fatal(err)
			}
			if r.Len() != 1 {
				t.Fatalf("record was dropped")
			}
			w := r.At(0)
			if w.Resolved() || w.Type != aviation.CategoryGeneric || w.Ident != "ZZZ01" || w.Location != pt {
				t.Errorf("got %+v", w)
			}
			if (typ == TypeIntersection) != (w.Name == "ZZZ01") {
				t.Errorf("name %q", w.Name)
			}
			if r.CurrentWaypoint() != 0 {
				t.Errorf("current waypoint %d", r.CurrentWaypoint())
			}
		})
	}
}

func TestConvertSkipsUnsupported(t *testing.T) {
	pt := math.Point2LL{-122.3, 37.6}
	db := &aviation.Database{Fixes: []aviation.Fix{{Id: "FIX", Location: pt}}}
	c := newTestConverter(t, db)

	fpl := []DeviceWaypoint{
		{Ident: "A", Location: pt, Type: TypeIntersection},
		{Ident: "B", Location: pt, Type: TypeUserDefined},
		{Ident: "C", Location: pt, Type: TypeInvalid},
		{Ident: "D", Location: pt, Type: TypeIntersection},
		{Ident: "E", Location: pt, Type: DeviceType(42)},
	}
	for _, tc := range []struct {
		curwpt, want int
	}{
		{-1, -1},
		{0, 0},
		{1, -1}, // skipped
		{3, 1},
		{4, -1},
	} {
		r, err := c.Convert(context.Background(), fpl, tc.curwpt)
		if err != nil {
			t.Fatal(err)
		}
		var idents []string
		for _, w := range r.Waypoints() {
			idents = append(idents, w.DeviceIdent)
		}
		if !slices.Equal(idents, []string{"A", "D"}) {
			t.Errorf("got %v", idents)
		}
		if r.CurrentWaypoint() != tc.want {
			t.Errorf("curwpt %d: got current %d, expected %d", tc.curwpt, r.CurrentWaypoint(), tc.want)
		}
	}
}

func TestConvertErrors(t *testing.T) {
	fpl := []DeviceWaypoint{{Ident: "A", Type: TypeUndefined}}

	c := NewConverter(nil, Options{}, nil)
	if _, err := c.Convert(context.Background(), fpl, 0); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("nil finder: %v", err)
	}
	var e *engine.Engine
	c = NewConverter(e, Options{}, nil)
	if _, err := c.Convert(context.Background(), fpl, 0); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("nil engine: %v", err)
	}

	c = newTestConverter(t, &aviation.Database{})
	if _, err := c.Convert(context.Background(), nil, 0); !errors.Is(err, ErrEmptyFlightPlan) {
		t.Errorf("empty flight plan: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Convert(ctx, fpl, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled context: %v", err)
	}
}

// failingFinder fails airport searches and answers the others from fixed
// results.
type failingFinder struct {
	navaids []aviation.Navaid
}

var errSearch = errors.New("search failed")

func run[T any](result []T, err error) *query.Handle[T] {
	h := query.NewHandle(func(context.Context) ([]T, error) { return result, err }, nil)
	go h.Execute(context.Background())
	return h
}

func (f *failingFinder) AirportFindNearest(math.Point2LL, int, math.Extent2D, aviation.Subtables) *query.Handle[aviation.Airport] {
	return run[aviation.Airport](nil, errSearch)
}

func (f *failingFinder) NavaidFindNearest(math.Point2LL, int, math.Extent2D, aviation.Subtables) *query.Handle[aviation.Navaid] {
	return run(f.navaids, nil)
}

func (f *failingFinder) WaypointFindNearest(math.Point2LL, int, math.Extent2D, aviation.Subtables) *query.Handle[aviation.Fix] {
	return nil
}

func TestConvertSearchFailure(t *testing.T) {
	f := &failingFinder{navaids: []aviation.Navaid{{Id: "OSI", Name: "Woodside", Type: aviation.NavaidVORTAC}}}
	c := NewConverter(f, Options{Altitude: 8500}, nil)

	pt := math.Point2LL{-122.28, 37.39}
	r, err := c.Convert(context.Background(), []DeviceWaypoint{
		{Ident: "OSI", Location: pt, Type: TypeUndefined},
		{Ident: "KPAO", Location: pt, Type: TypeAirport},
	}, -1)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("got %d waypoints", r.Len())
	}
	if w := r.At(0); w.Type != aviation.CategoryNavaid || w.Ident != "OSI" || w.Altitude != 8500 {
		t.Errorf("failed airport search didn't fall back to the navaid: %+v", w)
	}
	if w := r.At(1); w.Resolved() || w.Ident != "KPAO" {
		t.Errorf("failed airport search: %+v", w)
	}
}

// airportPanicStore panics on every airport search.
type airportPanicStore struct {
	*navdb.MemoryStore
}

func (s airportPanicStore) FindNearest(ctx context.Context, cat aviation.Category, pt math.Point2LL, window math.Extent2D,
	limit int, subtables aviation.Subtables) ([]aviation.Entity, error) {
	if cat == aviation.CategoryAirport {
		panic("airport table unreadable")
	}
	return s.MemoryStore.FindNearest(ctx, cat, pt, window, limit, subtables)
}

func TestConvertStorePanic(t *testing.T) {
	pt := math.Point2LL{-122.28, 37.39}
	db := &aviation.Database{
		Airports: []aviation.Airport{{Id: "KPAO", Location: pt}},
		Navaids:  []aviation.Navaid{{Id: "OSI", Name: "Woodside", Type: aviation.NavaidVORTAC, Location: north(pt, 0.1)}},
	}
	e := engine.New(airportPanicStore{navdb.NewMemoryStore(db)}, engine.Options{}, nil)
	defer e.Close()
	c := NewConverter(e, Options{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fpl := []DeviceWaypoint{
		{Ident: "KPAO", Location: pt, Type: TypeAirport},
		{Ident: "OSI", Location: pt, Type: TypeUndefined},
	}
	for range 2 {
		r, err := c.Convert(ctx, fpl, -1)
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if r.Len() != 2 {
			t.Fatalf("got %d waypoints", r.Len())
		}
		if w := r.At(0); w.Resolved() || w.Ident != "KPAO" {
			t.Errorf("failed airport search: %+v", w)
		}
		if w := r.At(1); w.Type != aviation.CategoryNavaid || w.Ident != "OSI" {
			t.Errorf("failed airport search didn't fall back to the navaid: %+v", w)
		}
	}

	if s := e.Stats(); s.Failed != 4 {
		t.Errorf("stats: %s", s)
	}
}

type fakeSensor struct {
	name    string
	fpl     []DeviceWaypoint
	current int
	err     error
}

func (s fakeSensor) Name() string { return s.name }

func (s fakeSensor) FlightPlan() ([]DeviceWaypoint, int, error) { return s.fpl, s.current, s.err }

func TestConvertFromSensors(t *testing.T) {
	pt := math.Point2LL{1, 1}
	sensors := []Sensor{
		fakeSensor{name: "broken", err: errors.New("no response")},
		fakeSensor{name: "empty"},
		fakeSensor{name: "first", fpl: []DeviceWaypoint{{Ident: "ONE", Location: pt, Type: TypeUndefined}}, current: -1},
		fakeSensor{name: "second", fpl: []DeviceWaypoint{
			{Ident: "TWO", Location: pt, Type: TypeUndefined},
			{Ident: "THREE", Location: pt, Type: TypeUndefined},
		}, current: 1},
	}
	c := newTestConverter(t, &aviation.Database{})

	for devnr, want := range []struct {
		name    string
		n       int
		current int
	}{
		{"first", 1, -1},
		{"second", 2, 1},
	} {
		r, s, err := c.ConvertFromSensors(context.Background(), sensors, devnr)
		if err != nil {
			t.Fatalf("device %d: %v", devnr, err)
		}
		if s.Name() != want.name || r.Len() != want.n || r.CurrentWaypoint() != want.current {
			t.Errorf("device %d: got %s with %d waypoints, current %d", devnr, s.Name(), r.Len(), r.CurrentWaypoint())
		}
	}

	if _, _, err := c.ConvertFromSensors(context.Background(), sensors, 2); !errors.Is(err, ErrNoFlightPlan) {
		t.Errorf("expected ErrNoFlightPlan, got %v", err)
	}
}
