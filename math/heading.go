// math/heading.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// NormalizeHeading reduces h to [0,360).
func NormalizeHeading(h float64) float64 {
	h = Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		// -1e-20 + 360 rounds to 360.
		h = 0
	}
	return h
}

func OppositeHeading(h float64) float64 {
	return NormalizeHeading(h + 180)
}

// SignedHeadingDifference returns a-b reduced to [-180,180]: the turn
// from b to a, positive to the right.
func SignedHeadingDifference(a, b float64) float64 {
	d := NormalizeHeading(a - b)
	if d > 180 {
		d -= 360
	}
	return d
}

// HeadingDifference returns the smallest angle between two headings, in
// [0,180].
func HeadingDifference(a, b float64) float64 {
	return Abs(SignedHeadingDifference(a, b))
}
