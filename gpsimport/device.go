// gpsimport/device.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import (
	"encoding/hex"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"strings"

	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/math"
	"github.com/flightdeck/navquery/util"
)

// DeviceType is the waypoint type a GPS device reports for a flight plan
// entry.
type DeviceType int

const (
	TypeInvalid DeviceType = iota
	TypeUndefined
	TypeAirport
	TypeMilitary
	TypeHeliport
	TypeSeaplane
	TypeVOR
	TypeNDB
	TypeIntersection
	TypeUserDefined
)

var deviceTypeNames = [...]string{
	TypeInvalid:      "invalid",
	TypeUndefined:    "undefined",
	TypeAirport:      "airport",
	TypeMilitary:     "military",
	TypeHeliport:     "heliport",
	TypeSeaplane:     "seaplane",
	TypeVOR:          "vor",
	TypeNDB:          "ndb",
	TypeIntersection: "intersection",
	TypeUserDefined:  "userdefined",
}

func (t DeviceType) String() string {
	if t >= 0 && int(t) < len(deviceTypeNames) {
		return deviceTypeNames[t]
	}
	return fmt.Sprintf("DeviceType(%d)", int(t))
}

// ParseDeviceType accepts the names returned by String; an empty string
// is TypeUndefined.
func ParseDeviceType(s string) (DeviceType, error) {
	if s == "" {
		return TypeUndefined, nil
	}
	for t, name := range deviceTypeNames {
		if strings.EqualFold(s, name) {
			return DeviceType(t), nil
		}
	}
	return TypeInvalid, fmt.Errorf("%q: %w", s, ErrUnknownDeviceType)
}

// search returns the database categories to search for a waypoint of
// this type. ok is false for types that can't be resolved at all.
func (t DeviceType) search() (airport, navaid, waypoint, ok bool) {
	switch t {
	case TypeUndefined:
		return true, true, true, true
	case TypeAirport, TypeMilitary, TypeHeliport, TypeSeaplane:
		return true, false, false, true
	case TypeVOR, TypeNDB:
		return false, true, false, true
	case TypeIntersection:
		return false, false, true, true
	default:
		return false, false, false, false
	}
}

// DeviceWaypoint is one entry of a flight plan as reported by a GPS.
type DeviceWaypoint struct {
	Ident       string
	Location    math.Point2LL
	Type        DeviceType
	Destination bool
	// Variation is the magnetic variation in degrees; NaN if the device
	// didn't report it.
	Variation float32
}

///////////////////////////////////////////////////////////////////////////
// King GPS

const (
	KingRecordSize = 15

	kingAbsent = 0x7f
)

// DecodeKingWaypoint decodes a flight plan waypoint record from a King
// GPS. A record without a position decodes as TypeInvalid; otherwise the
// type is TypeUndefined until type letters are applied.
func DecodeKingWaypoint(p []byte) (DeviceWaypoint, error) {
	if len(p) < KingRecordSize {
		return DeviceWaypoint{}, fmt.Errorf("%d bytes: %w", len(p), ErrShortRecord)
	}

	w := DeviceWaypoint{
		Type:        TypeInvalid,
		Destination: p[0]&0x20 != 0,
		Variation:   float32(gomath.NaN()),
	}
	if p[1] != kingAbsent {
		w.Ident = strings.TrimRight(string(p[1:6]), " ")
	}
	if p[6] != kingAbsent {
		// Degrees, minutes, hundredths of minutes; the sign is in the high
		// bit of the first latitude byte and of the byte before the
		// longitude.
		lat := float64(p[6]&0x7f) + float64(p[7]&0x3f)/60 + float64(p[8]&0x7f)/6000
		if p[6]&0x80 != 0 {
			lat = -lat
		}
		lon := float64(p[10]) + float64(p[11]&0x3f)/60 + float64(p[12]&0x7f)/6000
		if p[9]&0x80 != 0 {
			lon = -lon
		}
		w.Location = math.Point2LL{float32(lon), float32(lat)}
		w.Type = TypeUndefined
	}
	if p[13] != kingAbsent {
		// Signed, in sixteenths of a degree.
		v := int16(uint16(p[13])<<8 | uint16(p[14]))
		w.Variation = float32(v) / 16
	}
	return w, nil
}

var typeLetters = map[byte]DeviceType{
	'A': TypeAirport,
	'M': TypeMilitary,
	'H': TypeHeliport,
	'S': TypeSeaplane,
	'V': TypeVOR,
	'N': TypeNDB,
	'I': TypeIntersection,
	'U': TypeUserDefined,
}

// ApplyTypeLetters assigns types to the undefined waypoints of fpl from
// letters, the i-th letter giving the type of the i-th waypoint. Invalid
// waypoints are then dropped, as are waypoints that are still undefined
// if any letters were given. fpl is not modified.
func ApplyTypeLetters(fpl []DeviceWaypoint, letters string, lg *log.Logger) []DeviceWaypoint {
	var r []DeviceWaypoint
	for i, w := range fpl {
		if i < len(letters) && w.Type == TypeUndefined {
			l := letters[i]
			if t, ok := typeLetters[l&^0x20]; ok {
				w.Type = t
			} else {
				lg.Warnf("%s: invalid waypoint type %q", w.Ident, l)
			}
		}

		if w.Type == TypeInvalid || (w.Type == TypeUndefined && letters != "") {
			lg.Debugf("%s: dropping %s waypoint", w.Ident, w.Type)
			continue
		}
		r = append(r, w)
	}
	return r
}

// DecodeKingFlightPlan decodes a sequence of King waypoint records and
// applies the type letters. The returned current waypoint index is that
// of the first remaining destination waypoint, or -1.
func DecodeKingFlightPlan(records [][]byte, letters string, lg *log.Logger) ([]DeviceWaypoint, int, error) {
	var fpl []DeviceWaypoint
	for i, rec := range records {
		w, err := DecodeKingWaypoint(rec)
		if err != nil {
			return nil, -1, fmt.Errorf("record %d: %w", i, err)
		}
		fpl = append(fpl, w)
	}

	fpl = ApplyTypeLetters(fpl, letters, lg)
	for i, w := range fpl {
		if w.Destination {
			return fpl, i, nil
		}
	}
	return fpl, -1, nil
}

///////////////////////////////////////////////////////////////////////////
// Sensors

// Sensor is a device that can report its active flight plan. The
// returned index gives the current waypoint, or -1 if there is none.
type Sensor interface {
	Name() string
	FlightPlan() ([]DeviceWaypoint, int, error)
}

// FileSensor reads a flight plan that was saved from a device to a JSON
// file. Waypoints can be given either decoded or as hex-encoded King
// records:
//
//	{"name": "KLN 90B", "current": 1,
//	 "waypoints": [{"ident": "KSFO", "location": [-122.375, 37.619], "type": "airport"}]}
//
//	{"king": ["204b53464f20...", ...], "types": "AV"}
type FileSensor struct {
	Path string
	lg   *log.Logger
}

type flightPlanFile struct {
	Name      string         `json:"name"`
	Current   *int           `json:"current"`
	Waypoints []fileWaypoint `json:"waypoints"`
	King      []string       `json:"king"`
	Types     string         `json:"types"`
}

type fileWaypoint struct {
	Ident       string        `json:"ident"`
	Location    math.Point2LL `json:"location"`
	Type        string        `json:"type"`
	Destination bool          `json:"destination"`
	Variation   *float32      `json:"variation"`
}

func NewFileSensor(path string, lg *log.Logger) *FileSensor {
	return &FileSensor{Path: path, lg: lg}
}

func (s *FileSensor) Name() string {
	return strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
}

func (s *FileSensor) FlightPlan() ([]DeviceWaypoint, int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, -1, err
	}
	defer f.Close()

	var ff flightPlanFile
	if err := util.UnmarshalJSON(f, &ff); err != nil {
		return nil, -1, fmt.Errorf("%s: %w", s.Path, err)
	}

	var fpl []DeviceWaypoint
	cur := -1
	for i, fw := range ff.Waypoints {
		t, err := ParseDeviceType(fw.Type)
		if err != nil {
			return nil, -1, fmt.Errorf("%s: waypoint %d: %w", s.Path, i, err)
		}
		w := DeviceWaypoint{
			Ident:       strings.TrimRight(fw.Ident, " "),
			Location:    fw.Location,
			Type:        t,
			Destination: fw.Destination,
			Variation:   float32(gomath.NaN()),
		}
		if fw.Variation != nil {
			w.Variation = *fw.Variation
		}
		fpl = append(fpl, w)
	}

	if len(ff.King) > 0 {
		var records [][]byte
		for i, h := range ff.King {
			rec, err := hex.DecodeString(strings.ReplaceAll(h, " ", ""))
			if err != nil {
				return nil, -1, fmt.Errorf("%s: record %d: %w", s.Path, i, err)
			}
			records = append(records, rec)
		}
		kfpl, kcur, err := DecodeKingFlightPlan(records, ff.Types, s.lg)
		if err != nil {
			return nil, -1, fmt.Errorf("%s: %w", s.Path, err)
		}
		if kcur >= 0 {
			cur = len(fpl) + kcur
		}
		fpl = append(fpl, kfpl...)
	}

	if ff.Current != nil {
		cur = *ff.Current
	}
	if cur >= len(fpl) {
		return nil, -1, fmt.Errorf("%s: current waypoint %d: %w", s.Path, cur, ErrInvalidWaypoint)
	}
	return fpl, cur, nil
}
