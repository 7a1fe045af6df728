// engine/errors.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package engine

import "errors"

var (
	ErrEngineClosed     = errors.New("Search engine has been closed")
	ErrUnexpectedEntity = errors.New("Store returned an entity of the wrong category")
)
