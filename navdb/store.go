// navdb/store.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package navdb provides spatial indexes over the navigation database
// that answer find-nearest queries for a single category at a time.
package navdb

import (
	"context"
	"fmt"
	"slices"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/math"
)

// Store is a spatial index over the navigation database.
//
// FindNearest returns the entities of category cat whose bounds overlap
// window, ordered by increasing SimpleDistance2LL between pt and their
// position. At most limit entities are returned; a limit of zero or less
// means no limit. Airports carry only the detail tables selected by
// subtables. Implementations must return promptly with ctx.Err() once
// ctx is canceled.
type Store interface {
	FindNearest(ctx context.Context, cat aviation.Category, pt math.Point2LL, window math.Extent2D,
		limit int, subtables aviation.Subtables) ([]aviation.Entity, error)
	Close() error
}

func checkQuery(cat aviation.Category, window math.Extent2D) error {
	if cat < 0 || cat >= aviation.NumCategories {
		return fmt.Errorf("%d: %w", int(cat), aviation.ErrUnknownCategory)
	}
	if window.P0[1] > window.P1[1] || window.P0[0] > window.P1[0] {
		return fmt.Errorf("%v-%v: %w", window.P0, window.P1, ErrInvalidWindow)
	}
	return nil
}

// orderByDistance stably sorts the entities by distance from pt and
// applies the limit.
func orderByDistance(pt math.Point2LL, entities []aviation.Entity, limit int) []aviation.Entity {
	slices.SortStableFunc(entities, func(a, b aviation.Entity) int {
		da, db := math.SimpleDistance2LL(pt, a.Position()), math.SimpleDistance2LL(pt, b.Position())
		if da < db {
			return -1
		} else if da > db {
			return 1
		}
		return 0
	})
	if limit > 0 && len(entities) > limit {
		entities = entities[:limit]
	}
	return entities
}

// applySubtables strips airport detail tables that weren't requested.
func applySubtables(entities []aviation.Entity, subtables aviation.Subtables) {
	if subtables == aviation.SubtablesAll {
		return
	}
	for i, e := range entities {
		if ap, ok := e.(aviation.Airport); ok {
			entities[i] = ap.WithSubtables(subtables)
		}
	}
}

// overlapsWindow reports whether b overlaps the window, handling windows
// that cross the antimeridian.
func overlapsWindow(b math.Extent2D, window []math.Extent2D) bool {
	for _, w := range window {
		if math.Overlaps(b, w) {
			return true
		}
	}
	return false
}
