// query/errors.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package query

import "errors"

var (
	ErrEngineUnavailable = errors.New("Spatial engine unavailable")
	ErrNoAction          = errors.New("Handle has no search to execute")
	ErrSearchPanicked    = errors.New("Search panicked")
)
