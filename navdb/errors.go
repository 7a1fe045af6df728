// navdb/errors.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import "errors"

var (
	ErrInvalidWindow = errors.New("Invalid search window")
	ErrStoreClosed   = errors.New("Navigation database store is closed")
)
