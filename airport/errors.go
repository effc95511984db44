// airport/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airport

import "errors"

var (
	ErrUnknownAirport = errors.New("Unknown airport")
	ErrUnknownHelipad = errors.New("Unknown helipad")
	ErrUnknownRunway  = errors.New("Unknown runway")
)
