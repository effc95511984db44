// positioned/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import "errors"

var (
	ErrNotFound        = errors.New("Not found")
	ErrInvalidPosition = errors.New("Invalid position: NaN coordinate")
)
