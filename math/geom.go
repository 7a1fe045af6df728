// math/geom.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// Extent2D

// Extent2D represents a 2D bounding box with the two vertices at its
// opposite minimum and maximum corners. When used for lat-long
// coordinates, P0 is the south-west corner and P1 the north-east one.
type Extent2D struct {
	P0, P1 [2]float32
}

// EmptyExtent2D returns an Extent2D representing an empty bounding box.
func EmptyExtent2D() Extent2D {
	// Degenerate bounds
	return Extent2D{P0: [2]float32{1e30, 1e30}, P1: [2]float32{-1e30, -1e30}}
}

// Extent2DFromP2LLs returns an Extent2D that bounds all of the provided
// points.
func Extent2DFromP2LLs(pts []Point2LL) Extent2D {
	e := EmptyExtent2D()
	for _, p := range pts {
		e = Union(e, p)
	}
	return e
}

// IsEmpty returns true for the zero Extent2D and for degenerate extents
// with a minimum above their maximum.
func (e Extent2D) IsEmpty() bool {
	return e == Extent2D{} || e.P0[0] > e.P1[0] || e.P0[1] > e.P1[1]
}

func (e Extent2D) Width() float32 {
	return e.P1[0] - e.P0[0]
}

func (e Extent2D) Height() float32 {
	return e.P1[1] - e.P0[1]
}

func (e Extent2D) Center() [2]float32 {
	return [2]float32{(e.P0[0] + e.P1[0]) / 2, (e.P0[1] + e.P1[1]) / 2}
}

func (e Extent2D) Inside(p [2]float32) bool {
	return p[0] >= e.P0[0] && p[0] <= e.P1[0] && p[1] >= e.P0[1] && p[1] <= e.P1[1]
}

// InsideLL is like Inside but treats longitudes as periodic, so that
// boxes crossing the antimeridian work as expected.
func (e Extent2D) InsideLL(p Point2LL) bool {
	if p[1] < e.P0[1] || p[1] > e.P1[1] {
		return false
	}
	for _, off := range [3]float32{0, 360, -360} {
		if lon := p[0] + off; lon >= e.P0[0] && lon <= e.P1[0] {
			return true
		}
	}
	return false
}

// SplitLL returns one or two boxes covering e with longitudes inside
// [-180,180]; a box crossing the antimeridian is split in two.
func (e Extent2D) SplitLL() []Extent2D {
	if e.Width() >= 360 {
		return []Extent2D{{P0: [2]float32{-180, e.P0[1]}, P1: [2]float32{180, e.P1[1]}}}
	}
	if e.P0[0] < -180 {
		return []Extent2D{
			{P0: [2]float32{e.P0[0] + 360, e.P0[1]}, P1: [2]float32{180, e.P1[1]}},
			{P0: [2]float32{-180, e.P0[1]}, P1: e.P1},
		}
	}
	if e.P1[0] > 180 {
		return []Extent2D{
			{P0: e.P0, P1: [2]float32{180, e.P1[1]}},
			{P0: [2]float32{-180, e.P0[1]}, P1: [2]float32{e.P1[0] - 360, e.P1[1]}},
		}
	}
	return []Extent2D{e}
}

// Overlaps returns true if the two provided Extent2Ds overlap.
func Overlaps(a Extent2D, b Extent2D) bool {
	x := (a.P1[0] >= b.P0[0]) && (a.P0[0] <= b.P1[0])
	y := (a.P1[1] >= b.P0[1]) && (a.P0[1] <= b.P1[1])
	return x && y
}

func Union(e Extent2D, p [2]float32) Extent2D {
	e.P0[0] = min(e.P0[0], p[0])
	e.P0[1] = min(e.P0[1], p[1])
	e.P1[0] = max(e.P1[0], p[0])
	e.P1[1] = max(e.P1[1], p[1])
	return e
}

// PointInPolygon2LL checks whether the given point is inside the given
// polygon, using the even-odd rule.
func PointInPolygon2LL(p Point2LL, pts []Point2LL) bool {
	inside := false
	for i := 0; i < len(pts); i++ {
		p0, p1 := pts[i], pts[(i+1)%len(pts)]
		if (p0[1] <= p[1] && p[1] < p1[1]) || (p1[1] <= p[1] && p[1] < p0[1]) {
			x := p0[0] + (p[1]-p0[1])*(p1[0]-p0[0])/(p1[1]-p0[1])
			if x > p[0] {
				inside = !inside
			}
		}
	}
	return inside
}
