// scenery/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenery

import "errors"

var ErrMalformed = errors.New("Malformed scenery data")
