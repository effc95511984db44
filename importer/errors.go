// importer/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package importer

import "errors"

var ErrUnknownFormat = errors.New("Unknown navigation data file format")
