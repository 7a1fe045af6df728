// gpsimport/device_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import (
	"encoding/hex"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/flightdeck/navquery/math"
)

func kingRecord(dest bool, ident string, latDeg, latMin, latHun byte, south bool,
	lonDeg, lonMin, lonHun byte, west bool, variation *int16) []byte {
	p := make([]byte, KingRecordSize)
	if dest {
		p[0] = 0x20
	}
	if ident == "" {
		p[1] = kingAbsent
	} else {
		copy(p[1:6], []byte(ident+"     ")[:5])
	}
	p[6], p[7], p[8] = latDeg, latMin, latHun
	if south {
		p[6] |= 0x80
	}
	if west {
		p[9] = 0x80
	}
	p[10], p[11], p[12] = lonDeg, lonMin, lonHun
	if variation == nil {
		p[13] = kingAbsent
	} else {
		p[13], p[14] = byte(uint16(*variation)>>8), byte(uint16(*variation))
	}
	return p
}

func near(a, b float32) bool {
	return math.Abs(a-b) < 1e-4
}

func TestDecodeKingWaypoint(t *testing.T) {
	v := int16(-216) // -13.5 degrees
	w, err := DecodeKingWaypoint(kingRecord(true, "KSFO", 37, 37, 14, false, 122, 22, 50, true, &v))
	if err != nil {
		t.Fatal(err)
	}
	if w.Ident != "KSFO" || !w.Destination || w.Type != TypeUndefined {
		t.Errorf("got %+v", w)
	}
	if !near(w.Location.Latitude(), 37.619) || !near(w.Location.Longitude(), -122.375) {
		t.Errorf("location %s", w.Location.DDString())
	}
	if w.Variation != -13.5 {
		t.Errorf("variation %f", w.Variation)
	}

	w, err = DecodeKingWaypoint(kingRecord(false, "WP1", 33, 52, 0, true, 151, 12, 60, false, nil))
	if err != nil {
		t.Fatal(err)
	}
	if w.Ident != "WP1" || w.Destination || !gomath.IsNaN(float64(w.Variation)) {
		t.Errorf("got %+v", w)
	}
	if !near(w.Location.Latitude(), -(33+52.0/60)) || !near(w.Location.Longitude(), 151+12.6/60) {
		t.Errorf("location %s", w.Location.DDString())
	}

	// No position: invalid.
	p := kingRecord(false, "", 0, 0, 0, false, 0, 0, 0, false, nil)
	p[6] = kingAbsent
	w, err = DecodeKingWaypoint(p)
	if err != nil || w.Type != TypeInvalid || w.Ident != "" {
		t.Errorf("got %+v, %v", w, err)
	}

	if _, err := DecodeKingWaypoint(p[:10]); !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected ErrShortRecord, got %v", err)
	}
}

func TestApplyTypeLetters(t *testing.T) {
	fpl := []DeviceWaypoint{
		{Ident: "KSFO", Type: TypeUndefined},
		{Ident: "SFO", Type: TypeUndefined},
		{Ident: "BAD", Type: TypeInvalid},
		{Ident: "FIXED", Type: TypeAirport},
		{Ident: "UNKN", Type: TypeUndefined},
		{Ident: "LAST", Type: TypeUndefined},
	}

	got := ApplyTypeLetters(fpl, "avIN?", nil)
	expected := []DeviceWaypoint{
		{Ident: "KSFO", Type: TypeAirport},
		{Ident: "SFO", Type: TypeVOR},
		{Ident: "FIXED", Type: TypeAirport},
	}
	if len(got) != len(expected) {
		t.Fatalf("got %+v", got)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("%d: got %+v, expected %+v", i, got[i], expected[i])
		}
	}
	if fpl[0].Type != TypeUndefined {
		t.Errorf("input was modified")
	}

	// Without letters, undefined waypoints stay.
	if got := ApplyTypeLetters(fpl, "", nil); len(got) != 5 || got[0].Type != TypeUndefined {
		t.Errorf("got %+v", got)
	}
}

func TestDecodeKingFlightPlan(t *testing.T) {
	records := [][]byte{
		kingRecord(false, "KSFO", 37, 37, 14, false, 122, 22, 50, true, nil),
		kingRecord(false, "WHALE", 37, 40, 0, false, 122, 50, 0, true, nil),
		kingRecord(true, "KMRY", 36, 35, 20, false, 121, 50, 60, true, nil),
	}
	fpl, cur, err := DecodeKingFlightPlan(records, "AUA", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fpl) != 3 || fpl[1].Type != TypeUserDefined || cur != 2 {
		t.Errorf("got %+v, current %d", fpl, cur)
	}

	records = append(records, []byte{1, 2, 3})
	if _, _, err := DecodeKingFlightPlan(records, "", nil); !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected ErrShortRecord, got %v", err)
	}
}

func TestParseDeviceType(t *testing.T) {
	for _, tc := range []struct {
		s   string
		typ DeviceType
		err bool
	}{
		{"", TypeUndefined, false},
		{"VOR", TypeVOR, false},
		{"intersection", TypeIntersection, false},
		{"UserDefined", TypeUserDefined, false},
		{"runway", TypeInvalid, true},
	} {
		typ, err := ParseDeviceType(tc.s)
		if typ != tc.typ || (err != nil) != tc.err {
			t.Errorf("%q: got %s, %v", tc.s, typ, err)
		}
	}
}

func TestFileSensor(t *testing.T) {
	dir := t.TempDir()
	king := hex.EncodeToString(kingRecord(true, "KMRY", 36, 35, 20, false, 121, 50, 60, true, nil))

	write := func(name, contents string) *FileSensor {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
		return NewFileSensor(path, nil)
	}

	s := write("kln90.json", `{
  "name": "KLN 90B",
  "waypoints": [
    {"ident": "KSFO  ", "location": [-122.375, 37.619], "type": "airport", "variation": 13.5},
    {"ident": "OSI", "location": "N37.23.34.000, W122.16.52.000"}
  ],
  "king": ["`+king+`"],
  "types": "A"
}`)
	if s.Name() != "kln90" {
		t.Errorf("name %q", s.Name())
	}
	fpl, cur, err := s.FlightPlan()
	if err != nil {
		t.Fatal(err)
	}
	if len(fpl) != 3 || cur != 2 {
		t.Fatalf("got %+v, current %d", fpl, cur)
	}
	if fpl[0].Ident != "KSFO" || fpl[0].Type != TypeAirport || fpl[0].Variation != 13.5 {
		t.Errorf("first waypoint %+v", fpl[0])
	}
	if fpl[1].Type != TypeUndefined || !gomath.IsNaN(float64(fpl[1].Variation)) || !near(fpl[1].Location.Longitude(), -122.28111) {
		t.Errorf("second waypoint %+v", fpl[1])
	}
	if fpl[2].Ident != "KMRY" || fpl[2].Type != TypeAirport {
		t.Errorf("third waypoint %+v", fpl[2])
	}

	s = write("current.json", `{"current": 0, "waypoints": [{"ident": "A", "location": [1, 2]}]}`)
	if _, cur, err := s.FlightPlan(); err != nil || cur != 0 {
		t.Errorf("got current %d, %v", cur, err)
	}

	for name, contents := range map[string]string{
		"badtype.json":    `{"waypoints": [{"ident": "A", "type": "runway"}]}`,
		"badhex.json":     `{"king": ["zz"]}`,
		"short.json":      `{"king": ["0102"]}`,
		"badcurrent.json": `{"current": 3, "waypoints": [{"ident": "A"}]}`,
		"syntax.json":     "{\n  \"waypoints\": [\n}",
	} {
		if _, _, err := write(name, contents).FlightPlan(); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	if _, _, err := NewFileSensor(filepath.Join(dir, "missing.json"), nil).FlightPlan(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}
