// positioned/runway.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"github.com/mmp/navdb/math"
)

// Surface codes follow the X-Plane apt.dat convention.
type Surface int

const (
	SurfaceUnknown     Surface = 0
	SurfaceAsphalt     Surface = 1
	SurfaceConcrete    Surface = 2
	SurfaceTurf        Surface = 3
	SurfaceDirt        Surface = 4
	SurfaceGravel      Surface = 5
	SurfaceDryLakebed  Surface = 12
	SurfaceWater       Surface = 13
	SurfaceSnow        Surface = 14
	SurfaceTransparent Surface = 15
)

func (s Surface) IsHard() bool {
	return s == SurfaceAsphalt || s == SurfaceConcrete
}

// score returns the relative desirability of the surface for runway
// selection.
func (s Surface) score() float64 {
	switch s {
	case SurfaceAsphalt, SurfaceConcrete:
		return 3
	case SurfaceDryLakebed, SurfaceGravel:
		return 2
	default:
		return 1
	}
}

// RunwayBase is the geometry shared by runways, helipads, and taxiways.
// The entity's position is the center of the paved area.
type RunwayBase struct {
	Base
	HeadingDeg float64
	LengthM    float64
	WidthM     float64
	Surface    Surface
	Airport    ID
}

func (r *RunwayBase) LengthFt() float64 { return math.MetersToFeet(r.LengthM) }
func (r *RunwayBase) WidthFt() float64  { return math.MetersToFeet(r.WidthM) }

func (r *RunwayBase) IsHardSurface() bool {
	return r.Surface.IsHard()
}

// PointOnCenterline returns the point offset meters along the centerline
// from the beginning of the runway.
func (r *RunwayBase) PointOnCenterline(offset float64) math.Geod {
	return math.Offset(r.Begin(), r.HeadingDeg, offset)
}

// Begin returns the start of the paved area, ignoring any displaced
// threshold.
func (r *RunwayBase) Begin() math.Geod {
	return math.Offset(r.Geod(), math.OppositeHeading(r.HeadingDeg), r.LengthM/2)
}

// End returns the far end of the paved area.
func (r *RunwayBase) End() math.Geod {
	return math.Offset(r.Geod(), r.HeadingDeg, r.LengthM/2)
}

// Score returns a weighted measure of the runway's suitability, without
// regard to its heading.
func (r *RunwayBase) Score(lengthWt, widthWt, surfaceWt float64) float64 {
	return r.LengthM*lengthWt + r.WidthM*widthWt + r.Surface.score()*surfaceWt + 1e-20
}

// Runway is one end of a physical runway; the other end, if present, is
// its reciprocal.
type Runway struct {
	RunwayBase
	DisplacedM float64
	StopwayM   float64
	Reciprocal ID
	ILS        ID
}

func NewRunway(guid ID, ident string, center math.Geod, hdg, length, width float64, surface Surface, airport ID) *Runway {
	return &Runway{
		RunwayBase: RunwayBase{
			Base:       NewBase(guid, TypeRunway, ident, center),
			HeadingDeg: hdg,
			LengthM:    length,
			WidthM:     width,
			Surface:    surface,
			Airport:    airport,
		},
	}
}

// Threshold returns the landing threshold, taking any displacement into
// account.
func (r *Runway) Threshold() math.Geod {
	return r.PointOnCenterline(r.DisplacedM)
}

func (r *Runway) HasReciprocal() bool { return r.Reciprocal != 0 }
func (r *Runway) HasILS() bool        { return r.ILS != 0 }

// Helipad is a helicopter landing area.
type Helipad struct {
	RunwayBase
}

func NewHelipad(guid ID, ident string, center math.Geod, hdg, length, width float64, surface Surface, airport ID) *Helipad {
	return &Helipad{
		RunwayBase: RunwayBase{
			Base:       NewBase(guid, TypeHelipad, ident, center),
			HeadingDeg: hdg,
			LengthM:    length,
			WidthM:     width,
			Surface:    surface,
			Airport:    airport,
		},
	}
}

type Taxiway struct {
	RunwayBase
}

func NewTaxiway(guid ID, ident string, center math.Geod, hdg, length, width float64, surface Surface, airport ID) *Taxiway {
	return &Taxiway{
		RunwayBase: RunwayBase{
			Base:       NewBase(guid, TypeTaxiway, ident, center),
			HeadingDeg: hdg,
			LengthM:    length,
			WidthM:     width,
			Surface:    surface,
			Airport:    airport,
		},
	}
}

// ReciprocalIdent returns the ident of the opposite end of the runway
// with the given ident: the number differs by 18 and L/R are swapped.
func ReciprocalIdent(rwy string) string {
	if len(rwy) == 0 || rwy[0] < '0' || rwy[0] > '9' {
		return rwy
	}

	n := 0
	i := 0
	for ; i < len(rwy) && rwy[i] >= '0' && rwy[i] <= '9'; i++ {
		n = 10*n + int(rwy[i]-'0')
	}
	n += 18
	if n > 36 {
		n -= 36
	}

	s := string([]byte{byte('0' + n/10), byte('0' + n%10)})
	for _, ch := range rwy[i:] {
		switch ch {
		case 'L':
			s += "R"
		case 'R':
			s += "L"
		default:
			s += string(ch)
		}
	}
	return s
}
