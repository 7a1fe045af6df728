// aviation/db.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/math"
	"github.com/flightdeck/navquery/util"

	"golang.org/x/sync/errgroup"
)

// Source files, relative to the database directory. Each may also be
// present zstd-compressed with a .zst suffix.
const (
	AirportsFile    = "airports.csv"
	RunwaysFile     = "runways.csv"
	FrequenciesFile = "frequencies.csv"
	VFRRoutesFile   = "vfrroutes.json"
	NavaidsFile     = "navaids.csv"
	FixesFile       = "fixes.csv"
	AirwaysFile     = "airways.csv"
	AirspacesFile   = "airspaces.json"
	MapElementsFile = "mapelements.csv"
)

var sourceFiles = []string{AirportsFile, RunwaysFile, FrequenciesFile, VFRRoutesFile,
	NavaidsFile, FixesFile, AirwaysFile, AirspacesFile, MapElementsFile}

///////////////////////////////////////////////////////////////////////////
// Database

type Database struct {
	Airports    []Airport
	Navaids     []Navaid
	Fixes       []Fix
	Airways     []Airway
	Airspaces   []Airspace
	MapElements []MapElement
}

func (db *Database) Len(c Category) int {
	if db == nil {
		return 0
	}
	switch c {
	case CategoryAirport:
		return len(db.Airports)
	case CategoryNavaid:
		return len(db.Navaids)
	case CategoryWaypoint:
		return len(db.Fixes)
	case CategoryAirway:
		return len(db.Airways)
	case CategoryAirspace:
		return len(db.Airspaces)
	case CategoryMapElement:
		return len(db.MapElements)
	default:
		return 0
	}
}

// Entities returns the records of the given category; the i'th entity
// corresponds to the i'th element of the category's slice.
func (db *Database) Entities(c Category) []Entity {
	if db == nil {
		return nil
	}
	switch c {
	case CategoryAirport:
		return toEntities(db.Airports)
	case CategoryNavaid:
		return toEntities(db.Navaids)
	case CategoryWaypoint:
		return toEntities(db.Fixes)
	case CategoryAirway:
		return toEntities(db.Airways)
	case CategoryAirspace:
		return toEntities(db.Airspaces)
	case CategoryMapElement:
		return toEntities(db.MapElements)
	default:
		return nil
	}
}

func toEntities[T Entity](s []T) []Entity {
	return util.MapSlice(s, func(v T) Entity { return v })
}

func (db *Database) String() string {
	var parts []string
	for c := range NumCategories {
		parts = append(parts, fmt.Sprintf("%d %ss", db.Len(c), c))
	}
	return strings.Join(parts, ", ")
}

///////////////////////////////////////////////////////////////////////////
// Loading

// LoadDatabase parses the navigation database stored in dir. The
// categories are loaded in parallel; a missing file leaves its category
// empty. Malformed records are reported together in the returned error.
func LoadDatabase(dir string, lg *log.Logger) (*Database, error) {
	start := time.Now()
	db := &Database{}

	var (
		runways   map[string][]runwayRecord
		comms     map[string][]Comm
		vfrRoutes map[string][]VFRRoute
		loggers   [9]util.ErrorLogger
	)

	var eg errgroup.Group
	eg.Go(func() (err error) { db.Airports, err = parseAirports(dir, &loggers[0]); return })
	eg.Go(func() (err error) { runways, err = parseRunways(dir, &loggers[1]); return })
	eg.Go(func() (err error) { comms, err = parseFrequencies(dir, &loggers[2]); return })
	eg.Go(func() (err error) { vfrRoutes, err = parseVFRRoutes(dir, &loggers[3]); return })
	eg.Go(func() (err error) { db.Navaids, err = parseNavaids(dir, &loggers[4]); return })
	eg.Go(func() (err error) { db.Fixes, err = parseFixes(dir, &loggers[5]); return })
	eg.Go(func() (err error) { db.Airways, err = parseAirways(dir, &loggers[6]); return })
	eg.Go(func() (err error) { db.Airspaces, err = parseAirspaces(dir, &loggers[7]); return })
	eg.Go(func() (err error) { db.MapElements, err = parseMapElements(dir, &loggers[8]); return })
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var errs []error
	for i := range loggers {
		if err := loggers[i].Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	for i, ap := range db.Airports {
		for _, r := range runways[ap.Id] {
			if r.helipad {
				hp := Helipad{Id: r.Id, Location: r.Threshold, Surface: r.Surface}
				if hp.Location.IsZero() {
					hp.Location = ap.Location
				}
				ap.Helipads = append(ap.Helipads, hp)
			} else {
				ap.Runways = append(ap.Runways, r.Runway)
			}
		}
		ap.Comms = comms[ap.Id]
		ap.VFRRoutes = vfrRoutes[ap.Id]
		db.Airports[i] = ap
	}

	lg.Infof("%s: loaded %s in %s", dir, db, time.Since(start))

	return db, nil
}

// LoadDatabaseCached is like LoadDatabase but keeps a msgpack snapshot of
// the parsed database at cachePath. The snapshot is used if it is newer
// than all of the source files in dir and rewritten otherwise.
func LoadDatabaseCached(dir, cachePath string, lg *log.Logger) (*Database, error) {
	db, err := LoadSnapshot(dir, cachePath)
	if err == nil {
		lg.Infof("%s: using snapshot %s", dir, cachePath)
		return db, nil
	}
	lg.Infof("%s: snapshot %s not usable: %v", dir, cachePath, err)

	if db, err = LoadDatabase(dir, lg); err != nil {
		return nil, err
	}
	if err := util.CacheStoreObject(cachePath, db); err != nil {
		lg.Warnf("%s: unable to store snapshot: %v", cachePath, err)
	}
	return db, nil
}

// LoadSnapshot returns the database stored at cachePath, provided it was
// written after every source file in dir was last modified.
func LoadSnapshot(dir, cachePath string) (*Database, error) {
	var db Database
	snapTime, err := util.CacheRetrieveObject(cachePath, &db)
	if err != nil {
		return nil, err
	}

	for _, name := range sourceFiles {
		path, err := util.ResolveResource(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, err
		}
		if fi, err := os.Stat(path); err != nil {
			return nil, err
		} else if fi.ModTime().After(snapTime) {
			return nil, fmt.Errorf("%s: %w", path, ErrStaleSnapshot)
		}
	}
	return &db, nil
}

// openSource opens one of the database files; ok is false if it isn't
// present.
func openSource(dir, name string) (r util.ResourceReadCloser, ok bool, err error) {
	r, err = util.OpenResource(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	return r, true, nil
}

// mungeCSV reads a CSV file with a header line, calling the provided
// callback with the requested fields of each record, in the order they
// were requested. A field name ending in "?" is optional; it is passed as
// the empty string if the header doesn't have it.
func mungeCSV(r io.Reader, fields []string, e *util.ErrorLogger, callback func([]string)) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return
	} else if err != nil {
		e.Error(err)
		return
	}

	fieldIndices := make([]int, len(fields))
	for fi, f := range fields {
		name, optional := strings.CutSuffix(f, "?")
		fieldIndices[fi] = -1
		for hi, h := range header {
			if strings.EqualFold(name, strings.TrimSpace(h)) {
				fieldIndices[fi] = hi
				break
			}
		}
		if fieldIndices[fi] == -1 && !optional {
			e.ErrorString("%s: %v", name, ErrMissingCSVField)
			return
		}
	}

	strs := make([]string, len(fields))
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			return
		} else if err != nil {
			e.Error(err)
			return
		}

		for i, idx := range fieldIndices {
			if idx >= 0 && idx < len(record) {
				strs[i] = strings.TrimSpace(record[idx])
			} else {
				strs[i] = ""
			}
		}

		e.Push("line " + strconv.Itoa(line))
		callback(strs)
		e.Pop()
	}
}

func mungeCSVFile(dir, name string, fields []string, e *util.ErrorLogger, callback func([]string)) error {
	r, ok, err := openSource(dir, name)
	if err != nil || !ok {
		return err
	}
	defer r.Close()

	defer e.CheckDepth(e.CurrentDepth())
	e.Push(name)
	defer e.Pop()

	mungeCSV(r, fields, e, callback)
	return nil
}

func parseFloat(s, what string, e *util.ErrorLogger) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		e.ErrorString("%s: %q: invalid number", what, s)
		return 0, false
	}
	return float32(v), true
}

// parseOptionalInt returns zero for an empty string.
func parseOptionalInt(s, what string, e *util.ErrorLogger) (int, bool) {
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		e.ErrorString("%s: %q: invalid number", what, s)
		return 0, false
	}
	return int(v), true
}

func parseLocation(lat, lon string, e *util.ErrorLogger) (math.Point2LL, bool) {
	la, ok := parseFloat(lat, "latitude", e)
	if !ok {
		return math.Point2LL{}, false
	}
	lo, ok := parseFloat(lon, "longitude", e)
	if !ok {
		return math.Point2LL{}, false
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		e.ErrorString("%s, %s: %v", lat, lon, ErrInvalidCoordinate)
		return math.Point2LL{}, false
	}
	return math.Point2LL{lo, la}, true
}

// parseOptionalLocation returns the zero point if both coordinates are
// empty.
func parseOptionalLocation(lat, lon string, e *util.ErrorLogger) (math.Point2LL, bool) {
	if lat == "" && lon == "" {
		return math.Point2LL{}, true
	}
	return parseLocation(lat, lon, e)
}

func parseAirports(dir string, e *util.ErrorLogger) ([]Airport, error) {
	var airports []Airport
	err := mungeCSVFile(dir, AirportsFile,
		[]string{"ident", "type", "name", "latitude_deg", "longitude_deg", "elevation_ft?", "iso_country?"}, e,
		func(s []string) {
			if s[0] == "" || s[1] == "closed" {
				return
			}
			loc, ok := parseLocation(s[3], s[4], e)
			if !ok {
				return
			}
			elev, ok := parseOptionalInt(s[5], "elevation", e)
			if !ok {
				return
			}
			airports = append(airports, Airport{
				Id:        s[0],
				Type:      s[1],
				Name:      s[2],
				Location:  loc,
				Elevation: elev,
				Country:   s[6],
			})
		})
	return airports, err
}

type runwayRecord struct {
	Runway
	helipad bool
}

func isHelipadId(id string) bool {
	return len(id) >= 1 && id[0] == 'H' && (len(id) == 1 || (id[1] >= '0' && id[1] <= '9'))
}

func parseRunways(dir string, e *util.ErrorLogger) (map[string][]runwayRecord, error) {
	runways := make(map[string][]runwayRecord)
	err := mungeCSVFile(dir, RunwaysFile,
		[]string{"airport_ident", "length_ft?", "width_ft?", "surface?", "closed?",
			"le_ident", "le_latitude_deg?", "le_longitude_deg?", "le_heading_degT?",
			"he_ident?", "he_latitude_deg?", "he_longitude_deg?", "he_heading_degT?"}, e,
		func(s []string) {
			if s[4] == "1" {
				return
			}
			length, ok := parseOptionalInt(s[1], "length", e)
			if !ok {
				return
			}
			width, ok := parseOptionalInt(s[2], "width", e)
			if !ok {
				return
			}

			end := func(id, lat, lon, hdg string) {
				if id == "" {
					return
				}
				thr, ok := parseOptionalLocation(lat, lon, e)
				if !ok {
					return
				}
				var h float32
				if hdg != "" {
					if h, ok = parseFloat(hdg, "heading", e); !ok {
						return
					}
				}
				runways[s[0]] = append(runways[s[0]], runwayRecord{
					Runway: Runway{
						Id:        id,
						Heading:   h,
						Threshold: thr,
						LengthFt:  length,
						WidthFt:   width,
						Surface:   s[3],
					},
					helipad: isHelipadId(id),
				})
			}
			end(s[5], s[6], s[7], s[8])
			if !isHelipadId(s[5]) {
				end(s[9], s[10], s[11], s[12])
			}
		})
	return runways, err
}

func parseFrequencies(dir string, e *util.ErrorLogger) (map[string][]Comm, error) {
	comms := make(map[string][]Comm)
	err := mungeCSVFile(dir, FrequenciesFile,
		[]string{"airport_ident", "type", "description?", "frequency_mhz"}, e,
		func(s []string) {
			f, ok := parseFloat(s[3], "frequency", e)
			if !ok {
				return
			}
			comms[s[0]] = append(comms[s[0]], Comm{
				Type:        strings.ToUpper(s[1]),
				Description: s[2],
				Frequency:   NewFrequencyMHz(f),
			})
		})
	return comms, err
}

func parseVFRRoutes(dir string, e *util.ErrorLogger) (map[string][]VFRRoute, error) {
	r, ok, err := openSource(dir, VFRRoutesFile)
	if err != nil || !ok {
		return nil, err
	}
	defer r.Close()

	routes := make(map[string][]VFRRoute)
	if err := util.UnmarshalJSON(r, &routes); err != nil {
		e.Push(VFRRoutesFile)
		e.Error(err)
		e.Pop()
		return nil, nil
	}
	return routes, nil
}

func parseNavaids(dir string, e *util.ErrorLogger) ([]Navaid, error) {
	var navaids []Navaid
	err := mungeCSVFile(dir, NavaidsFile,
		[]string{"ident", "name", "type", "frequency_khz", "latitude_deg", "longitude_deg",
			"elevation_ft?", "magnetic_variation_deg?"}, e,
		func(s []string) {
			loc, ok := parseLocation(s[4], s[5], e)
			if !ok {
				return
			}
			freq, ok := parseOptionalInt(s[3], "frequency", e)
			if !ok {
				return
			}
			elev, ok := parseOptionalInt(s[6], "elevation", e)
			if !ok {
				return
			}
			var variation float32
			if s[7] != "" {
				if variation, ok = parseFloat(s[7], "variation", e); !ok {
					return
				}
			}
			navaids = append(navaids, Navaid{
				Id:        s[0],
				Name:      s[1],
				Type:      ParseNavaidType(s[2]),
				Frequency: Frequency(freq),
				Elevation: elev,
				Variation: variation,
				Location:  loc,
			})
		})
	return navaids, err
}

func parseFixes(dir string, e *util.ErrorLogger) ([]Fix, error) {
	var fixes []Fix
	err := mungeCSVFile(dir, FixesFile, []string{"ident", "latitude_deg", "longitude_deg", "usage?"}, e,
		func(s []string) {
			if loc, ok := parseLocation(s[1], s[2], e); ok {
				fixes = append(fixes, Fix{Id: s[0], Location: loc, Usage: s[3]})
			}
		})
	return fixes, err
}

func parseAirways(dir string, e *util.ErrorLogger) ([]Airway, error) {
	var airways []Airway
	err := mungeCSVFile(dir, AirwaysFile,
		[]string{"name", "from_ident", "from_latitude_deg", "from_longitude_deg",
			"to_ident", "to_latitude_deg", "to_longitude_deg", "base_level?", "top_level?", "type?"}, e,
		func(s []string) {
			p0, ok := parseLocation(s[2], s[3], e)
			if !ok {
				return
			}
			p1, ok := parseLocation(s[5], s[6], e)
			if !ok {
				return
			}
			base, ok := parseOptionalInt(s[7], "base level", e)
			if !ok {
				return
			}
			top, ok := parseOptionalInt(s[8], "top level", e)
			if !ok {
				return
			}
			airways = append(airways, Airway{
				Name:      s[0],
				From:      s[1],
				To:        s[4],
				P0:        p0,
				P1:        p1,
				BaseLevel: base,
				TopLevel:  top,
				Type:      s[9],
			})
		})
	return airways, err
}

func parseAirspaces(dir string, e *util.ErrorLogger) ([]Airspace, error) {
	r, ok, err := openSource(dir, AirspacesFile)
	if err != nil || !ok {
		return nil, err
	}
	defer r.Close()

	defer e.CheckDepth(e.CurrentDepth())
	e.Push(AirspacesFile)
	defer e.Pop()

	var airspaces []Airspace
	if err := util.UnmarshalJSON(r, &airspaces); err != nil {
		e.Error(err)
		return nil, nil
	}

	for i := range airspaces {
		a := &airspaces[i]
		if len(a.Polygon) < 3 {
			e.ErrorString("%s: airspace polygon must have at least 3 vertices", a.Id)
			continue
		}
		if a.Ceiling != 0 && a.Ceiling < a.Floor {
			e.ErrorString("%s: ceiling %d below floor %d", a.Id, a.Ceiling, a.Floor)
		}
		a.Extent = math.Extent2DFromP2LLs(a.Polygon)
	}
	return airspaces, nil
}

func parseMapElements(dir string, e *util.ErrorLogger) ([]MapElement, error) {
	var elements []MapElement
	err := mungeCSVFile(dir, MapElementsFile, []string{"kind", "name", "latitude_deg", "longitude_deg"}, e,
		func(s []string) {
			if loc, ok := parseLocation(s[2], s[3], e); ok {
				elements = append(elements, MapElement{Kind: s[0], Name: s[1], Location: loc})
			}
		})
	return elements, err
}
