// positioned/navaid.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"fmt"
	"strings"

	"github.com/mmp/navdb/math"
)

// Frequency is a navaid frequency in hundredths of its display unit:
// 110.90 MHz is 11090 and an NDB on 338 kHz is 33800.
type Frequency int

func FrequencyFromFloat(f float64) Frequency {
	return Frequency(f*100 + 0.5)
}

func (f Frequency) Float() float64 {
	return float64(f) / 100
}

func (f Frequency) String() string {
	return fmt.Sprintf("%.2f", f.Float())
}

// Default ranges in nautical miles for navaids that don't specify one.
const (
	NavDefaultRangeNM = 50
	LocDefaultRangeNM = 18
	DMEDefaultRangeNM = 50
	NavMaxRangeNM     = 300
)

// Navaid is a radio navigation aid: NDBs, VORs, ILS components, DMEs,
// TACANs, and marker beacons.
type Navaid struct {
	Base
	FullName string
	Freq     Frequency
	RangeNM  float64
	// Multiuse is the slaved variation of a VOR, the course of a
	// localizer, or the bias of a DME.
	Multiuse    float64
	Runway      ID
	Colocated   ID
	Serviceable bool
}

func NewNavaid(guid ID, t Type, ident string, g math.Geod, name string, freq Frequency, rangeNM, multiuse float64) *Navaid {
	if rangeNM <= 0 {
		rangeNM = DefaultRangeNM(t)
	}
	return &Navaid{
		Base:        NewBase(guid, t, ident, g),
		FullName:    name,
		Freq:        freq,
		RangeNM:     rangeNM,
		Multiuse:    multiuse,
		Serviceable: true,
	}
}

func DefaultRangeNM(t Type) float64 {
	switch t {
	case TypeILS, TypeLOC, TypeGS:
		return LocDefaultRangeNM
	case TypeDME:
		return DMEDefaultRangeNM
	default:
		return NavDefaultRangeNM
	}
}

func (n *Navaid) Name() string {
	if n.FullName == "" {
		return n.Ident()
	}
	return n.FullName
}

// LocalizerCourse returns the course of an ILS or localizer.
func (n *Navaid) LocalizerCourse() float64 {
	return n.Multiuse
}

func (n *Navaid) HasDME() bool {
	return n.Colocated != 0
}

// IsVORTAC reports whether the navaid is a VOR colocated with a TACAN, as
// indicated by its name.
func (n *Navaid) IsVORTAC() bool {
	return strings.Contains(strings.ToUpper(n.Name()), "VORTAC")
}
