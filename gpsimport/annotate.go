// gpsimport/annotate.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import (
	"context"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/math"
	"github.com/flightdeck/navquery/query"
	"github.com/flightdeck/navquery/util"
)

// AreaFinder issues the searches used to describe the surroundings of a
// route's waypoints.
type AreaFinder interface {
	AirspaceFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *query.Handle[aviation.Airspace]
	AirwayFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *query.Handle[aviation.Airway]
	MapElementFindNearest(pt math.Point2LL, limit int, window math.Extent2D, subtables aviation.Subtables) *query.Handle[aviation.MapElement]
}

// AnnotateRadiusNM is the half-size of the window searched for airways
// and map elements around each waypoint.
const AnnotateRadiusNM = 5

// Annotation describes what is around one waypoint of a route.
type Annotation struct {
	// Airspaces holds the airspaces that contain the waypoint at its
	// altitude.
	Airspaces  []aviation.Airspace
	Airway     *aviation.Airway
	MapElement *aviation.MapElement
}

// Annotate looks up the surroundings of every waypoint of r. All of the
// searches are issued up front; their results are collected by the
// calling goroutine as they complete. If ctx is canceled first, the
// outstanding searches are canceled and ctx.Err() is returned.
func Annotate(ctx context.Context, f AreaFinder, r *Route) ([]Annotation, error) {
	d := query.NewDispatcher()
	notes := make([]Annotation, r.Len())

	var airspaces []*query.Handle[aviation.Airspace]
	var airways []*query.Handle[aviation.Airway]
	var elements []*query.Handle[aviation.MapElement]
	defer func() {
		for i := range airspaces {
			query.Cancel(&airspaces[i])
			query.Cancel(&airways[i])
			query.Cancel(&elements[i])
		}
	}()

	remaining := 0
	for i, w := range r.Waypoints() {
		// Airspaces are large, so anything overlapping the point itself
		// is a candidate.
		as := f.AirspaceFindNearest(w.Location, 0, math.BoxAroundNM(w.Location, 0), aviation.SubtablesNone)
		window := math.BoxAroundNM(w.Location, AnnotateRadiusNM)
		aw := f.AirwayFindNearest(w.Location, 1, window, aviation.SubtablesNone)
		me := f.MapElementFindNearest(w.Location, 1, window, aviation.SubtablesNone)
		airspaces, airways, elements = append(airspaces, as), append(airways, aw), append(elements, me)

		remaining += 3
		as.Subscribe(d, func() {
			remaining--
			notes[i].Airspaces = util.FilterSlice(as.Result(), func(a aviation.Airspace) bool {
				return a.Inside(w.Location, w.Altitude)
			})
		})
		aw.Subscribe(d, func() {
			remaining--
			if res := aw.Result(); len(res) > 0 {
				a := res[0]
				notes[i].Airway = &a
			}
		})
		me.Subscribe(d, func() {
			remaining--
			if res := me.Result(); len(res) > 0 {
				m := res[0]
				notes[i].MapElement = &m
			}
		})
	}

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-d.C():
			d.Drain()
		}
	}
	return notes, nil
}
