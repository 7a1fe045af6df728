// cmd/gpsimport/main.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// gpsimport converts flight plans saved from GPS devices into routes,
// matching each device waypoint against a navigation database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/engine"
	"github.com/flightdeck/navquery/gpsimport"
	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/navdb"
	"github.com/flightdeck/navquery/util"

	"github.com/goforj/godump"
	"github.com/shirou/gopsutil/cpu"
	"golang.org/x/sync/errgroup"
)

var (
	dbPath     = flag.String("db", "", "Navigation database: a directory of CSV/JSON files or an SQLite file")
	importPath = flag.String("import", "", "Import the -db directory into this SQLite file and search it")
	configPath = flag.String("config", "", "JSON file with engine and converter options")
	curwpt     = flag.Int("curwpt", -2, "Current waypoint index; overrides the one stored with the flight plan")
	devnr      = flag.Int("devnr", 0, "Convert the flight plan of the n-th device that has one")
	workers    = flag.Int("workers", engine.DefaultWorkers, "Number of search worker goroutines")
	cachePath  = flag.String("cache", "", "Snapshot file for the parsed database")
	annotate   = flag.Bool("annotate", false, "List airspaces, airways and map features along the route")
	logLevel   = flag.String("loglevel", "info", "Logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "Log file directory")
	timeout    = flag.Duration("timeout", 0, "Give up after this long (0: no limit)")
	dump       = flag.Bool("dump", false, "Dump the device flight plans to stderr")
	showStats  = flag.Bool("stats", false, "Print search and resource usage statistics to stderr")
)

type config struct {
	Workers   int    `json:"workers"`
	CacheSize int    `json:"cache_size"`
	CacheTTL  string `json:"cache_ttl"`
	Altitude  int    `json:"altitude"`
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: gpsimport [flags] flightplan.json...\nwhere [flags] may be:\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *dbPath == "" || flag.NArg() == 0 {
		usage()
	}

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	if err := run(lg, os.Stdout); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "gpsimport: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (engine.Options, gpsimport.Options, error) {
	eopts := engine.Options{Workers: *workers}
	var gopts gpsimport.Options
	if *configPath == "" {
		return eopts, gopts, nil
	}

	b, err := util.ReadResource(*configPath)
	if err != nil {
		return eopts, gopts, err
	}

	var c config
	if err := util.UnmarshalJSONBytes(b, &c); err != nil {
		return eopts, gopts, fmt.Errorf("%s: %w", *configPath, err)
	}

	// Flags given explicitly take precedence over the file.
	workersSet := false
	flag.Visit(func(f *flag.Flag) { workersSet = workersSet || f.Name == "workers" })
	if c.Workers != 0 && !workersSet {
		eopts.Workers = c.Workers
	}
	eopts.CacheSize = c.CacheSize
	if c.CacheTTL != "" {
		if eopts.CacheTTL, err = time.ParseDuration(c.CacheTTL); err != nil {
			return eopts, gopts, fmt.Errorf("%s: cache_ttl: %w", *configPath, err)
		}
	}
	gopts.Altitude = c.Altitude
	return eopts, gopts, nil
}

func openStore(ctx context.Context, lg *log.Logger) (navdb.Store, error) {
	if strings.HasSuffix(*dbPath, ".sqlite") {
		return navdb.OpenSQLiteStore(*dbPath, lg)
	}

	db, err := aviation.LoadDatabaseCached(*dbPath, *cachePath, lg)
	if err != nil {
		return nil, err
	}
	lg.Infof("%s: loaded %s", *dbPath, db)

	if *importPath == "" {
		return navdb.NewMemoryStore(db), nil
	}

	s, err := navdb.OpenSQLiteStore(*importPath, lg)
	if err != nil {
		return nil, err
	}
	if err := s.Import(ctx, db); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func run(lg *log.Logger, w io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	eopts, gopts, err := loadConfig()
	if err != nil {
		return err
	}

	// Reading the flight plans doesn't need the database, so it's done
	// while the database loads.
	var store navdb.Store
	sensors := make([]gpsimport.Sensor, flag.NArg())
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		store, err = openStore(gctx, lg)
		return err
	})
	for i, fn := range flag.Args() {
		eg.Go(func() error {
			s := &overrideSensor{Sensor: gpsimport.NewFileSensor(fn, lg), current: *curwpt}
			s.load()
			sensors[i] = s
			return gctx.Err()
		})
	}
	if err := eg.Wait(); err != nil {
		if store != nil {
			store.Close()
		}
		return err
	}
	defer store.Close()

	if *dump {
		for _, s := range sensors {
			fpl, cur, err := s.FlightPlan()
			fmt.Fprintf(os.Stderr, "%s: current waypoint %d, error %v\n", s.Name(), cur, err)
			godump.Fdump(os.Stderr, fpl)
		}
	}

	e := engine.New(store, eopts, lg)
	defer e.Close()
	if *showStats {
		defer printStats(os.Stderr, e)
	}

	conv := gpsimport.NewConverter(e, gopts, lg)
	r, sensor, err := conv.ConvertFromSensors(ctx, sensors, *devnr)
	if err != nil {
		return err
	}
	lg.Infof("%s: converted flight plan; engine %s", sensor.Name(), e.Stats())

	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s\n\n", b)

	var notes []gpsimport.Annotation
	if *annotate {
		if notes, err = gpsimport.Annotate(ctx, e, r); err != nil {
			return err
		}
	}
	printRoute(w, sensor.Name(), r, notes)
	return nil
}

// overrideSensor reads the flight plan once and optionally replaces the
// device's current waypoint.
type overrideSensor struct {
	gpsimport.Sensor
	current int

	fpl []gpsimport.DeviceWaypoint
	cur int
	err error
}

func (s *overrideSensor) load() {
	s.fpl, s.cur, s.err = s.Sensor.FlightPlan()
	if s.current >= -1 && s.current < len(s.fpl) {
		s.cur = s.current
	}
}

func (s *overrideSensor) FlightPlan() ([]gpsimport.DeviceWaypoint, int, error) {
	return s.fpl, s.cur, s.err
}

func printRoute(w io.Writer, name string, r *gpsimport.Route, notes []gpsimport.Annotation) {
	fmt.Fprintf(w, "%s: %d waypoints\n", name, r.Len())

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "\tNR\tIDENT\tNAME\tTYPE\tFREQ\tPOSITION\tTT\tDIST\tNOTES")
	legs := r.Legs()
	for i, wp := range r.Waypoints() {
		mark := ""
		if i == r.CurrentWaypoint() {
			mark = ">"
		}
		tt, dist := "", ""
		if i < len(legs) {
			tt = fmt.Sprintf("%03.0f", legs[i].TrueCourse)
			dist = fmt.Sprintf("%.1f", legs[i].DistanceNM)
		}
		note := ""
		if i < len(notes) {
			note = annotationString(notes[i])
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", mark, i+1, wp.Ident, wp.Name, wp.Type,
			wp.Frequency, wp.Location.DMSString(), tt, dist, note)
	}
}

func printStats(w io.Writer, e *engine.Engine) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usage, err := cpu.Percent(0, false)

	fmt.Fprintf(w, "searches: %s\n", e.Stats())
	fmt.Fprintf(w, "memory: %d MB allocated, %d MB from the system, %d GCs\n", m.Alloc/(1024*1024),
		m.Sys/(1024*1024), m.NumGC)
	if err == nil && len(usage) > 0 {
		fmt.Fprintf(w, "cpu: %.1f%%\n", usage[0])
	}
}

func annotationString(n gpsimport.Annotation) string {
	var s []string
	for _, a := range n.Airspaces {
		s = append(s, "class "+a.Class+" "+a.Name)
	}
	if n.Airway != nil {
		s = append(s, "airway "+n.Airway.Name)
	}
	if n.MapElement != nil {
		s = append(s, n.MapElement.Kind+" "+n.MapElement.Name)
	}
	return strings.Join(s, "; ")
}
