// aviation/aviation.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"strings"

	"github.com/flightdeck/navquery/math"
)

///////////////////////////////////////////////////////////////////////////
// Category

// Category identifies one of the independent spatial indexes of the
// navigation database.
type Category int

const (
	CategoryAirport Category = iota
	CategoryNavaid
	CategoryWaypoint
	CategoryAirway
	CategoryAirspace
	CategoryMapElement
	NumCategories

	// CategoryGeneric is a location with no database entity behind it.
	CategoryGeneric Category = -1
)

func (c Category) String() string {
	switch c {
	case CategoryAirport:
		return "airport"
	case CategoryNavaid:
		return "navaid"
	case CategoryWaypoint:
		return "waypoint"
	case CategoryAirway:
		return "airway"
	case CategoryAirspace:
		return "airspace"
	case CategoryMapElement:
		return "mapelement"
	case CategoryGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

func ParseCategory(s string) (Category, error) {
	for c := range NumCategories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", s, ErrUnknownCategory)
}

// Subtables selects which detail tables are loaded along with an airport.
type Subtables uint32

const (
	SubtablesNone      Subtables = 0
	SubtablesRunways   Subtables = 1 << 0
	SubtablesHelipads  Subtables = 1 << 1
	SubtablesComms     Subtables = 1 << 2
	SubtablesVFRRoutes Subtables = 1 << 3
	SubtablesAll       Subtables = SubtablesRunways | SubtablesHelipads | SubtablesComms | SubtablesVFRRoutes
)

func (s Subtables) Has(t Subtables) bool {
	return s&t == t
}

///////////////////////////////////////////////////////////////////////////
// Entity

// Entity is implemented by every record stored in the navigation
// database. Position is the point used for distance ordering; Bounds is
// the region used for window tests, which is just the position for point
// features.
type Entity interface {
	Ident() string
	DisplayName() string
	Position() math.Point2LL
	Bounds() math.Extent2D
	Category() Category
}

func pointBounds(p math.Point2LL) math.Extent2D {
	return math.Extent2D{P0: p, P1: p}
}

// Frequencies are stored in kHz.
type Frequency int

func NewFrequencyMHz(f float32) Frequency {
	// 0.5 is key for handling rounding!
	return Frequency(f*1000 + 0.5)
}

func (f Frequency) String() string {
	if f == 0 {
		return ""
	}
	if f < 2000 {
		// LF/MF; NDBs.
		return fmt.Sprintf("%d kHz", int(f))
	}
	s := strings.TrimRight(fmt.Sprintf("%03d.%03d", f/1000, f%1000), "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

func (f Frequency) MHz() float32 {
	return float32(f) / 1000
}

///////////////////////////////////////////////////////////////////////////
// Airport

type Runway struct {
	Id        string
	Heading   float32 // true
	Threshold math.Point2LL
	LengthFt  int
	WidthFt   int
	Surface   string
}

type Helipad struct {
	Id       string
	Location math.Point2LL
	Surface  string
}

type Comm struct {
	Type        string // TWR, GND, ATIS, ...
	Description string
	Frequency   Frequency
}

type VFRRoutePoint struct {
	Name     string        `json:"name"`
	Location math.Point2LL `json:"location"`
	Altitude int           `json:"altitude"`
}

type VFRRoute struct {
	Name   string          `json:"name"`
	Points []VFRRoutePoint `json:"points"`
}

type Airport struct {
	Id        string
	Name      string
	Type      string // large_airport, heliport, seaplane_base, ...
	Country   string
	Elevation int
	Location  math.Point2LL
	Runways   []Runway
	Helipads  []Helipad
	Comms     []Comm
	VFRRoutes []VFRRoute
}

func (ap Airport) Ident() string           { return ap.Id }
func (ap Airport) DisplayName() string     { return ap.Name }
func (ap Airport) Position() math.Point2LL { return ap.Location }
func (ap Airport) Bounds() math.Extent2D   { return pointBounds(ap.Location) }
func (ap Airport) Category() Category      { return CategoryAirport }

// WithSubtables returns a copy of the airport that only carries the
// detail tables selected by s.
func (ap Airport) WithSubtables(s Subtables) Airport {
	if !s.Has(SubtablesRunways) {
		ap.Runways = nil
	}
	if !s.Has(SubtablesHelipads) {
		ap.Helipads = nil
	}
	if !s.Has(SubtablesComms) {
		ap.Comms = nil
	}
	if !s.Has(SubtablesVFRRoutes) {
		ap.VFRRoutes = nil
	}
	return ap
}

// Frequency returns the airport's tower frequency, or the first comm
// frequency if there is no tower, or zero if no comms were loaded.
func (ap Airport) Frequency() Frequency {
	for _, c := range ap.Comms {
		if c.Type == "TWR" {
			return c.Frequency
		}
	}
	if len(ap.Comms) > 0 {
		return ap.Comms[0].Frequency
	}
	return 0
}

///////////////////////////////////////////////////////////////////////////
// Navaid

type NavaidType int

const (
	NavaidUnknown NavaidType = iota
	NavaidVOR
	NavaidVORDME
	NavaidVORTAC
	NavaidTACAN
	NavaidDME
	NavaidNDB
	NavaidNDBDME
)

var navaidTypeNames = [...]string{
	NavaidUnknown: "",
	NavaidVOR:     "VOR",
	NavaidVORDME:  "VOR-DME",
	NavaidVORTAC:  "VORTAC",
	NavaidTACAN:   "TACAN",
	NavaidDME:     "DME",
	NavaidNDB:     "NDB",
	NavaidNDBDME:  "NDB-DME",
}

func (t NavaidType) String() string {
	if int(t) >= 0 && int(t) < len(navaidTypeNames) {
		return navaidTypeNames[t]
	}
	return fmt.Sprintf("NavaidType(%d)", int(t))
}

func ParseNavaidType(s string) NavaidType {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range navaidTypeNames {
		if i > 0 && n == s {
			return NavaidType(i)
		}
	}
	return NavaidUnknown
}

func (t NavaidType) IsNDB() bool {
	return t == NavaidNDB || t == NavaidNDBDME
}

type Navaid struct {
	Id        string
	Name      string
	Type      NavaidType
	Frequency Frequency
	Elevation int
	Variation float32
	Location  math.Point2LL
}

func (n Navaid) Ident() string           { return n.Id }
func (n Navaid) DisplayName() string     { return n.Name }
func (n Navaid) Position() math.Point2LL { return n.Location }
func (n Navaid) Bounds() math.Extent2D   { return pointBounds(n.Location) }
func (n Navaid) Category() Category      { return CategoryNavaid }

///////////////////////////////////////////////////////////////////////////
// Fix

type Fix struct {
	Id       string
	Usage    string // "H" high, "L" low, "T" terminal, "B" both; may be empty
	Location math.Point2LL
}

func (f Fix) Ident() string           { return f.Id }
func (f Fix) DisplayName() string     { return f.Id }
func (f Fix) Position() math.Point2LL { return f.Location }
func (f Fix) Bounds() math.Extent2D   { return pointBounds(f.Location) }
func (f Fix) Category() Category      { return CategoryWaypoint }

///////////////////////////////////////////////////////////////////////////
// Airway

// Airway is a single segment of a named airway.
type Airway struct {
	Name      string
	From, To  string
	P0, P1    math.Point2LL
	BaseLevel int // flight level
	TopLevel  int
	Type      string // "H", "L" or "B"
}

func (a Airway) Ident() string       { return a.Name }
func (a Airway) DisplayName() string { return a.Name + " " + a.From + "-" + a.To }

// Position returns the segment's midpoint.
func (a Airway) Position() math.Point2LL {
	lon1 := a.P1[0]
	if d := lon1 - a.P0[0]; d > 180 {
		lon1 -= 360
	} else if d < -180 {
		lon1 += 360
	}
	return math.Point2LL{math.WrapLongitude((a.P0[0] + lon1) / 2), (a.P0[1] + a.P1[1]) / 2}
}

func (a Airway) Bounds() math.Extent2D {
	return math.Extent2DFromP2LLs([]math.Point2LL{a.P0, a.P1})
}

func (a Airway) Category() Category { return CategoryAirway }

///////////////////////////////////////////////////////////////////////////
// Airspace

type Airspace struct {
	Id      string          `json:"id"`
	Name    string          `json:"name"`
	Class   string          `json:"class"`
	Floor   int             `json:"floor"`   // feet MSL
	Ceiling int             `json:"ceiling"` // feet MSL
	Polygon []math.Point2LL `json:"polygon"`

	Extent math.Extent2D `json:"-"`
}

func (a Airspace) Ident() string       { return a.Id }
func (a Airspace) DisplayName() string { return a.Name }

// Position returns the center of the airspace's bounding box.
func (a Airspace) Position() math.Point2LL {
	return math.Point2LL(a.Bounds().Center())
}

func (a Airspace) Bounds() math.Extent2D {
	if a.Extent.IsEmpty() {
		return math.Extent2DFromP2LLs(a.Polygon)
	}
	return a.Extent
}

func (a Airspace) Category() Category { return CategoryAirspace }

// Inside returns true if the point is laterally inside the airspace and
// alt is between its floor and ceiling.
func (a Airspace) Inside(p math.Point2LL, alt int) bool {
	if alt < a.Floor || alt > a.Ceiling {
		return false
	}
	if !a.Bounds().Inside(p) {
		return false
	}
	return math.PointInPolygon2LL(p, a.Polygon)
}

///////////////////////////////////////////////////////////////////////////
// MapElement

// MapElement is a labeled topographic feature: a town, lake, peak, ...
type MapElement struct {
	Kind     string
	Name     string
	Location math.Point2LL
}

func (m MapElement) Ident() string           { return m.Name }
func (m MapElement) DisplayName() string     { return m.Name }
func (m MapElement) Position() math.Point2LL { return m.Location }
func (m MapElement) Bounds() math.Extent2D   { return pointBounds(m.Location) }
func (m MapElement) Category() Category      { return CategoryMapElement }
