// aviation/errors.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import "errors"

var (
	ErrInvalidCoordinate = errors.New("Invalid coordinate")
	ErrMissingCSVField   = errors.New("CSV header is missing a required field")
	ErrStaleSnapshot     = errors.New("Database snapshot is older than its sources")
	ErrUnknownCategory   = errors.New("Unknown database category")
)
