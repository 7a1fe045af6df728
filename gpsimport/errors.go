// gpsimport/errors.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package gpsimport

import "errors"

var (
	ErrEmptyFlightPlan   = errors.New("Device flight plan has no waypoints")
	ErrEngineUnavailable = errors.New("No search engine available")
	ErrInvalidWaypoint   = errors.New("Invalid waypoint index")
	ErrNoFlightPlan      = errors.New("No device has a flight plan")
	ErrShortRecord       = errors.New("Waypoint record is too short")
	ErrUnknownDeviceType = errors.New("Unknown device waypoint type")
)
