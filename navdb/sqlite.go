// navdb/sqlite.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/flightdeck/navquery/aviation"
	"github.com/flightdeck/navquery/log"
	"github.com/flightdeck/navquery/math"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the navigation database in an SQLite file, one table
// per category. Each row holds the entity's position and bounds for the
// window test and ordering along with the msgpack-encoded entity.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	lg     *log.Logger
	closed atomic.Bool
}

func tableName(c aviation.Category) string {
	return c.String() + "s"
}

// OpenSQLiteStore opens (creating if necessary) the SQLite database at
// path.
func OpenSQLiteStore(path string, lg *log.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open navigation database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, lg: lg}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	for c := range aviation.NumCategories {
		t := tableName(c)
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id INTEGER PRIMARY KEY,
			ident TEXT NOT NULL,
			lon REAL NOT NULL,
			lat REAL NOT NULL,
			swlon REAL NOT NULL,
			swlat REAL NOT NULL,
			nelon REAL NOT NULL,
			nelat REAL NOT NULL,
			data BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS %[1]s_ident ON %[1]s(ident);
		CREATE INDEX IF NOT EXISTS %[1]s_lat ON %[1]s(swlat, nelat);
		`, t)
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	return nil
}

// Import replaces the contents of the store with the given database.
func (s *SQLiteStore) Import(ctx context.Context, db *aviation.Database) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for c := range aviation.NumCategories {
		t := tableName(c)
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+t+`
			(id, ident, lon, lat, swlon, swlat, nelon, nelat, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}

		for i, e := range db.Entities(c) {
			data, err := msgpack.Marshal(e)
			if err != nil {
				stmt.Close()
				return fmt.Errorf("%s %s: %w", c, e.Ident(), err)
			}
			p, b := e.Position(), e.Bounds()
			if _, err := stmt.ExecContext(ctx, i, e.Ident(), f64(p[0]), f64(p[1]),
				f64(b.P0[0]), f64(b.P0[1]), f64(b.P1[0]), f64(b.P1[1]), data); err != nil {
				stmt.Close()
				return fmt.Errorf("failed to insert %s %s: %w", c, e.Ident(), err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.lg.Infof("%s: imported %s", s.path, db)
	return nil
}

func (s *SQLiteStore) Len(c aviation.Category) (int, error) {
	if c < 0 || c >= aviation.NumCategories {
		return 0, aviation.ErrUnknownCategory
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + tableName(c)).Scan(&n)
	return n, err
}

func f64(v float32) float64 { return float64(v) }

func decodeEntity(c aviation.Category, data []byte) (aviation.Entity, error) {
	switch c {
	case aviation.CategoryAirport:
		var ap aviation.Airport
		err := msgpack.Unmarshal(data, &ap)
		return ap, err
	case aviation.CategoryNavaid:
		var n aviation.Navaid
		err := msgpack.Unmarshal(data, &n)
		return n, err
	case aviation.CategoryWaypoint:
		var f aviation.Fix
		err := msgpack.Unmarshal(data, &f)
		return f, err
	case aviation.CategoryAirway:
		var a aviation.Airway
		err := msgpack.Unmarshal(data, &a)
		return a, err
	case aviation.CategoryAirspace:
		var a aviation.Airspace
		err := msgpack.Unmarshal(data, &a)
		return a, err
	case aviation.CategoryMapElement:
		var m aviation.MapElement
		err := msgpack.Unmarshal(data, &m)
		return m, err
	default:
		return nil, aviation.ErrUnknownCategory
	}
}

// FindNearest runs one SELECT per longitude range of the window (two if
// it crosses the antimeridian). The ordering expression is evaluated
// against a copy of pt shifted by 360 degrees as needed so that it
// matches SimpleDistance2LL; the per-range results are then merged.
func (s *SQLiteStore) FindNearest(ctx context.Context, cat aviation.Category, pt math.Point2LL, window math.Extent2D,
	limit int, subtables aviation.Subtables) ([]aviation.Entity, error) {
	if err := checkQuery(cat, window); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	sqlLimit := limit
	if sqlLimit <= 0 {
		sqlLimit = -1 // no limit
	}
	query := `SELECT data FROM ` + tableName(cat) + `
		WHERE nelon >= ? AND swlon <= ? AND nelat >= ? AND swlat <= ?
		ORDER BY (lon - ?) * (lon - ?) + (lat - ?) * (lat - ?), id
		LIMIT ?`

	var result []aviation.Entity
	for _, w := range window.SplitLL() {
		plon := pt[0]
		if w.P1[0] < plon-180 {
			plon -= 360
		} else if w.P0[0] > plon+180 {
			plon += 360
		}

		rows, err := s.db.QueryContext(ctx, query, f64(w.P0[0]), f64(w.P1[0]), f64(w.P0[1]), f64(w.P1[1]),
			f64(plon), f64(plon), f64(pt[1]), f64(pt[1]), sqlLimit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%s: %w", tableName(cat), err)
		}

		for rows.Next() {
			var data []byte
			if err := rows.Scan(&data); err != nil {
				rows.Close()
				return nil, err
			}
			e, err := decodeEntity(cat, data)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("%s: %w", tableName(cat), err)
			}
			result = append(result, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
	}

	result = orderByDistance(pt, result, limit)
	applySubtables(result, subtables)
	return result, nil
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
