// math/latlong.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"encoding/json"
	"fmt"
	gomath "math"
	"regexp"
	"strconv"
)

const NMPerLatitude = 60

// Latitudes beyond this are clamped when building search windows; the
// longitude extent of a box is meaningless that close to the poles.
const PoleLatitude = 89.5

///////////////////////////////////////////////////////////////////////////
// Point2LL

const NauticalMilesToFeet = 6076.12
const FeetToNauticalMiles = 1 / NauticalMilesToFeet

// Point2LL represents a 2D point on the Earth in latitude-longitude.
// Important: 0 (x) is longitude, 1 (y) is latitude
type Point2LL [2]float32

func (p Point2LL) Longitude() float32 {
	return p[0]
}

func (p Point2LL) Latitude() float32 {
	return p[1]
}

// DDString returns the position in decimal degrees, e.g.:
// (39.860901, -75.274864)
func (p Point2LL) DDString() string {
	return fmt.Sprintf("(%f, %f)", p[1], p[0]) // latitude, longitude
}

// DMSString returns the position in degrees minutes, seconds, e.g.
// N039.51.39.243,W075.16.29.511
func (p Point2LL) DMSString() string {
	format := func(v float32) string {
		s := fmt.Sprintf("%03d", int(v))
		v -= Floor(v)
		v *= 60
		s += fmt.Sprintf(".%02d", int(v))
		v -= Floor(v)
		v *= 60
		s += fmt.Sprintf(".%02d", int(v))
		v -= Floor(v)
		v *= 1000
		s += fmt.Sprintf(".%03d", int(v))
		return s
	}

	var s string
	if p[1] >= 0 {
		s = "N"
	} else {
		s = "S"
	}
	s += format(Abs(p[1]))

	if p[0] >= 0 {
		s += ",E"
	} else {
		s += ",W"
	}
	s += format(Abs(p[0]))

	return s
}

func (p Point2LL) IsZero() bool {
	return p[0] == 0 && p[1] == 0
}

var (
	// pair of floats (no exponents)
	reWaypointFloat = regexp.MustCompile(`^(\-?[0-9]+\.[0-9]+), *(\-?[0-9]+\.[0-9]+)$`)
	// e.g. N40.37.58.400,W073.46.17.000
	reWaypointDotted = regexp.MustCompile(`^([NS])([0-9]+)\.([0-9]+)\.([0-9]+)\.([0-9]+), *([EW])([0-9]+)\.([0-9]+)\.([0-9]+)\.([0-9]+)$`)
)

// ParseLatLong parses either a pair of decimal degrees "lat, lon" or a
// dotted degrees/minutes/seconds/milliseconds string as produced by
// DMSString.
func ParseLatLong(llstr []byte) (Point2LL, error) {
	var p Point2LL
	if strs := reWaypointDotted.FindStringSubmatch(string(llstr)); len(strs) == 11 {
		parse := func(hemi string, fields []string) (float32, error) {
			scales := [4]float64{1, 60, 3600, 3600000}
			var v float64
			for i, f := range fields {
				if i == 3 {
					// Treat the last set of digits as a decimal, so that
					// Nxx.yy.zz.1 is handled like Nxx.yy.zz.100.
					for len(f) < 3 {
						f += "0"
					}
				}
				n, err := strconv.Atoi(f)
				if err != nil {
					return 0, err
				}
				v += float64(n) / scales[i]
			}
			if hemi == "S" || hemi == "W" {
				v = -v
			}
			return float32(v), nil
		}

		var err error
		if p[1], err = parse(strs[1], strs[2:6]); err != nil {
			return Point2LL{}, err
		}
		if p[0], err = parse(strs[6], strs[7:11]); err != nil {
			return Point2LL{}, err
		}
		return p, nil
	} else if strs := reWaypointFloat.FindStringSubmatch(string(llstr)); len(strs) == 3 {
		if l, err := strconv.ParseFloat(strs[1], 32); err != nil {
			return Point2LL{}, err
		} else {
			p[1] = float32(l)
		}
		if l, err := strconv.ParseFloat(strs[2], 32); err != nil {
			return Point2LL{}, err
		} else {
			p[0] = float32(l)
		}
		if Abs(p[1]) > 90 || Abs(p[0]) > 180 {
			return Point2LL{}, fmt.Errorf("%s: latlong out of range", llstr)
		}
		return p, nil
	} else {
		return Point2LL{}, fmt.Errorf("%s: invalid latlong string", llstr)
	}
}

// NMDistance2LL returns the great-circle distance in nautical miles
// between two provided lat-long coordinates.
func NMDistance2LL(a Point2LL, b Point2LL) float32 {
	// https://www.movable-type.co.uk/scripts/latlong.html
	const R = 6371000 // metres
	rad := func(d float64) float64 { return float64(d) / 180 * gomath.Pi }
	lat1, lon1 := rad(float64(a[1])), rad(float64(a[0]))
	lat2, lon2 := rad(float64(b[1])), rad(float64(b[0]))
	dlat, dlon := lat2-lat1, lon2-lon1

	x := Sqr(gomath.Sin(dlat/2)) + gomath.Cos(lat1)*gomath.Cos(lat2)*Sqr(gomath.Sin(dlon/2))
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	dm := R * c // in metres

	return float32(dm * 0.000539957)
}

// SimpleDistance2LL returns the squared planar distance in degrees
// between two points, ignoring the convergence of meridians. It is cheap
// and monotonic enough to order candidates coming out of a spatial index,
// but it is not a distance measure; use NMDistance2LL for that.
func SimpleDistance2LL(a Point2LL, b Point2LL) float32 {
	dlon := WrapLongitude(b[0] - a[0])
	dlat := b[1] - a[1]
	return Sqr(dlon) + Sqr(dlat)
}

// WrapLongitude maps a longitude (or longitude difference) into [-180,180).
func WrapLongitude(lon float32) float32 {
	for lon >= 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// NMPerLongitudeAt returns the number of nautical miles per degree of
// longitude at the given point's latitude.
func NMPerLongitudeAt(p Point2LL) float32 {
	return NMPerLatitude * Cos(Radians(p[1]))
}

// TrueCourse2LL returns the initial great-circle true course in degrees
// from the point from to the point to.
func TrueCourse2LL(from Point2LL, to Point2LL) float32 {
	lat1, lat2 := float64(Radians(from[1])), float64(Radians(to[1]))
	dlon := float64(Radians(WrapLongitude(to[0] - from[0])))

	y := gomath.Sin(dlon) * gomath.Cos(lat2)
	x := gomath.Cos(lat1)*gomath.Sin(lat2) - gomath.Sin(lat1)*gomath.Cos(lat2)*gomath.Cos(dlon)
	return NormalizeHeading(Degrees(float32(gomath.Atan2(y, x))))
}

// BoxAroundNM returns a lat-long box centered at p that extends dist
// nautical miles in each of the four cardinal directions. Latitudes are
// clamped at the poles; longitudes are left unwrapped so that a box
// crossing the antimeridian has P1[0] > 180 or P0[0] < -180.
func BoxAroundNM(p Point2LL, dist float32) Extent2D {
	dlat := dist / NMPerLatitude
	dlon := dlat
	if Abs(p[1]) < PoleLatitude {
		dlon /= Cos(Radians(p[1]))
	} else {
		dlon = 180
	}

	sw := Point2LL{p[0] - dlon, Clamp(p[1]-dlat, -90, 90)}
	ne := Point2LL{p[0] + dlon, Clamp(p[1]+dlat, -90, 90)}
	return Extent2D{P0: sw, P1: ne}
}

// Store Point2LLs as strings is JSON, for compactness/friendliness...
func (p Point2LL) MarshalJSON() ([]byte, error) {
	return []byte("\"" + p.DMSString() + "\""), nil
}

func (p *Point2LL) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		// Arrays of two floats, longitude first.
		var pt [2]float32
		err := json.Unmarshal(b, &pt)
		if err == nil {
			*p = pt
		}
		return err
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParseLatLong([]byte(s))
	if err == nil {
		*p = pt
	}
	return err
}
