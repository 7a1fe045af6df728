// math/math_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"testing"
)

func TestParseLatLong(t *testing.T) {
	type LL struct {
		str string
		pos Point2LL
	}
	latlongs := []LL{
		{str: "N40.37.58.400, W073.46.17.000", pos: Point2LL{-73.771385, 40.6328888}}, // JFK VOR
		{str: "N40.37.58.4,W073.46.17.000", pos: Point2LL{-73.771385, 40.6328888}},    // JFK VOR
		{str: "40.6328888, -73.771385", pos: Point2LL{-73.771385, 40.6328888}},        // JFK VOR
	}

	for _, ll := range latlongs {
		p, err := ParseLatLong([]byte(ll.str))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", ll.str, err)
		}
		if Abs(p[0]-ll.pos[0]) > 1e-5 {
			t.Errorf("%s: got %.9g for longitude, expected %.9g", ll.str, p[0], ll.pos[0])
		}
		if Abs(p[1]-ll.pos[1]) > 1e-5 {
			t.Errorf("%s: got %.9g for latitude, expected %.9g", ll.str, p[1], ll.pos[1])
		}
	}

	for _, invalid := range []string{
		"E40.37.58.400, W073.46.17.000",
		"40.37.58.400, W073.46.17.000",
		"N40.37.58.400, -73.22",
		"N40.37.58.400, W073.46.17",
		"95.0, 10.0",
		"",
	} {
		if _, err := ParseLatLong([]byte(invalid)); err == nil {
			t.Errorf("%s: no error was returned for invalid latlong string!", invalid)
		}
	}
}

func TestPoint2LLJSON(t *testing.T) {
	p := Point2LL{-73.771385, 40.6328888}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var q Point2LL
	if err := json.Unmarshal(b, &q); err != nil {
		t.Fatalf("%s: %v", string(b), err)
	}
	if NMDistance2LL(p, q) > 0.01 {
		t.Errorf("round trip through %s moved the point %f nm", string(b), NMDistance2LL(p, q))
	}

	if err := json.Unmarshal([]byte("[10.5, 20.25]"), &q); err != nil {
		t.Fatal(err)
	}
	if q != (Point2LL{10.5, 20.25}) {
		t.Errorf("got %v for array form", q)
	}
}

func TestNMDistance2LL(t *testing.T) {
	for _, test := range []struct {
		a, b Point2LL
		nm   float32
	}{
		{Point2LL{0, 0}, Point2LL{0, 1}, 60},
		{Point2LL{0, 0}, Point2LL{1, 0}, 60},
		{Point2LL{10, 60}, Point2LL{11, 60}, 30},
		{Point2LL{179.5, 0}, Point2LL{-179.5, 0}, 60},
		{Point2LL{-73.7, 40.6}, Point2LL{-73.7, 40.6}, 0},
	} {
		d := NMDistance2LL(test.a, test.b)
		if Abs(d-test.nm) > 0.1*max(1, test.nm/60) {
			t.Errorf("NMDistance2LL(%v, %v) = %f, expected ~%f", test.a, test.b, d, test.nm)
		}
	}
}

func TestSimpleDistance2LL(t *testing.T) {
	if d := SimpleDistance2LL(Point2LL{179.9, 0}, Point2LL{-179.9, 0}); Abs(d-0.04) > 1e-3 {
		t.Errorf("antimeridian simple distance = %f, expected 0.04", d)
	}
	// Simple distance ignores meridian convergence, so it may order points
	// differently than the great-circle distance does.
	p := Point2LL{0, 60}
	east, north := Point2LL{0.3, 60}, Point2LL{0, 60.2}
	if SimpleDistance2LL(p, east) <= SimpleDistance2LL(p, north) {
		t.Errorf("expected east to be farther by simple distance")
	}
	if NMDistance2LL(p, east) >= NMDistance2LL(p, north) {
		t.Errorf("expected east to be closer by great-circle distance")
	}
}

func TestTrueCourse2LL(t *testing.T) {
	for _, test := range []struct {
		a, b Point2LL
		hdg  float32
	}{
		{Point2LL{0, 0}, Point2LL{0, 1}, 0},
		{Point2LL{0, 0}, Point2LL{1, 0}, 90},
		{Point2LL{0, 1}, Point2LL{0, 0}, 180},
		{Point2LL{1, 0}, Point2LL{0, 0}, 270},
		{Point2LL{179.5, 0}, Point2LL{-179.5, 0}, 90},
	} {
		if h := TrueCourse2LL(test.a, test.b); Abs(h-test.hdg) > 0.01 {
			t.Errorf("TrueCourse2LL(%v, %v) = %f, expected %f", test.a, test.b, h, test.hdg)
		}
	}
}

func TestBoxAroundNM(t *testing.T) {
	p := Point2LL{10, 20}
	b := BoxAroundNM(p, 1)
	if !b.InsideLL(p) {
		t.Errorf("%v: center not inside box %v", p, b)
	}
	if h := b.Height(); Abs(h-2.0/60) > 1e-5 {
		t.Errorf("box height %f, expected %f", h, 2.0/60)
	}
	if b.Width() <= b.Height() {
		t.Errorf("box width %f should exceed height %f away from the equator", b.Width(), b.Height())
	}

	// Clamped at the pole
	b = BoxAroundNM(Point2LL{0, 89.99}, 5)
	if b.P1[1] > 90 {
		t.Errorf("box extends past the pole: %v", b)
	}
	if b.Width() < 360 {
		t.Errorf("expected a box near the pole to span all longitudes: %v", b)
	}

	// Crossing the antimeridian
	b = BoxAroundNM(Point2LL{179.99, 0}, 2)
	if !b.InsideLL(Point2LL{-179.99, 0}) {
		t.Errorf("%v: expected point across the antimeridian to be inside", b)
	}
	if n := len(b.SplitLL()); n != 2 {
		t.Errorf("expected antimeridian box to split in 2, got %d", n)
	}
}

func TestExtent2D(t *testing.T) {
	var e Extent2D
	if !e.IsEmpty() {
		t.Errorf("zero extent should be empty")
	}
	e = Extent2DFromP2LLs([]Point2LL{{1, 2}, {3, -1}, {2, 5}})
	if e.P0 != [2]float32{1, -1} || e.P1 != [2]float32{3, 5} {
		t.Errorf("unexpected extent %v", e)
	}
	if e.IsEmpty() {
		t.Errorf("extent should not be empty")
	}
	if c := e.Center(); c != [2]float32{2, 2} {
		t.Errorf("center %v", c)
	}
	if !Overlaps(e, Extent2D{P0: [2]float32{2.5, 4}, P1: [2]float32{10, 10}}) {
		t.Errorf("expected overlap")
	}
}

func TestPointInPolygon2LL(t *testing.T) {
	square := []Point2LL{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	if !PointInPolygon2LL(Point2LL{0.5, 0.5}, square) {
		t.Errorf("expected center to be inside")
	}
	if PointInPolygon2LL(Point2LL{1.5, 0.5}, square) {
		t.Errorf("expected point to be outside")
	}
}

func TestNormalizeHeading(t *testing.T) {
	for _, test := range [][2]float32{{0, 0}, {360, 0}, {-90, 270}, {725, 5}, {-720, 0}} {
		if h := NormalizeHeading(test[0]); h != test[1] {
			t.Errorf("NormalizeHeading(%f) = %f, expected %f", test[0], h, test[1])
		}
	}
}
