// math/core.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

func Sqrt(a float64) float64 {
	return gomath.Sqrt(a)
}

func Mod(a, b float64) float64 {
	return gomath.Mod(a, b)
}

func Round(v float64) float64 {
	return gomath.Round(v)
}

func IsNaN(v float64) bool {
	return gomath.IsNaN(v)
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }
