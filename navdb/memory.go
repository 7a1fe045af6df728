// navdb/memory.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/math"
)

// MemoryStore answers queries from in-memory indexes built over an
// aviation.Database: a k-d tree per point category, and a linear scan of
// bounding boxes for airways and airspaces.
type MemoryStore struct {
	trees    [aviation.NumCategories]*math.KDTree[aviation.Entity]
	extended [aviation.NumCategories][]aviation.Entity
}

// Check the context every this many entities during linear scans.
const scanCheckInterval = 1024

func NewMemoryStore(db *aviation.Database) *MemoryStore {
	s := &MemoryStore{}
	for c := range aviation.NumCategories {
		entities := db.Entities(c)
		if isExtended(c) {
			s.extended[c] = entities
		} else {
			s.trees[c] = math.BuildKDTree(entities, aviation.Entity.Position)
		}
	}
	return s
}

// isExtended returns true for categories whose entities cover an area
// rather than a single point.
func isExtended(c aviation.Category) bool {
	return c == aviation.CategoryAirway || c == aviation.CategoryAirspace
}

func (s *MemoryStore) Len(c aviation.Category) int {
	if isExtended(c) {
		return len(s.extended[c])
	}
	return s.trees[c].Len()
}

func (s *MemoryStore) FindNearest(ctx context.Context, cat aviation.Category, pt math.Point2LL, window math.Extent2D,
	limit int, subtables aviation.Subtables) ([]aviation.Entity, error) {
	if err := checkQuery(cat, window); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []aviation.Entity
	if isExtended(cat) {
		split := window.SplitLL()
		for i, e := range s.extended[cat] {
			if i%scanCheckInterval == scanCheckInterval-1 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			if overlapsWindow(e.Bounds(), split) {
				result = append(result, e)
			}
		}
	} else {
		tree := s.trees[cat]
		for _, idx := range tree.InBox(window) {
			result = append(result, tree.Items[idx])
		}
	}

	result = orderByDistance(pt, result, limit)
	applySubtables(result, subtables)
	return result, nil
}

func (s *MemoryStore) Close() error { return nil }
