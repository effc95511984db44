// positioned/entities.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"github.com/mmp/navdb/math"
)

// Airport is the stored record of an airport, heliport, or seaport. Its
// runways, taxiways, and other sub-entities are loaded on demand by the
// airport package.
type Airport struct {
	Base
	FullName string
	HasMetar bool
}

func NewAirport(guid ID, t Type, ident string, g math.Geod, name string, hasMetar bool) *Airport {
	return &Airport{Base: NewBase(guid, t, ident, g), FullName: name, HasMetar: hasMetar}
}

func (ap *Airport) Name() string {
	if ap.FullName == "" {
		return ap.Ident()
	}
	return ap.FullName
}

func (ap *Airport) IsHeliport() bool { return ap.Type() == TypeHeliport }
func (ap *Airport) IsSeaport() bool  { return ap.Type() == TypeSeaport }
func (ap *Airport) IsAirport() bool  { return ap.Type() == TypeAirport }

// Waypoint is used for fixes, waypoints, obstacles, and taxi nodes:
// entities with nothing beyond an ident and a location.
type Waypoint struct {
	Base
}

func NewWaypoint(guid ID, t Type, ident string, g math.Geod) *Waypoint {
	return &Waypoint{Base: NewBase(guid, t, ident, g)}
}

// POI is a named point of interest: a country, city, town, or village.
type POI struct {
	Base
	FullName string
}

func NewPOI(guid ID, t Type, ident string, g math.Geod, name string) *POI {
	return &POI{Base: NewBase(guid, t, ident, g), FullName: name}
}

func (p *POI) Name() string {
	if p.FullName == "" {
		return p.Ident()
	}
	return p.FullName
}

// CommStation is an airport radio frequency.
type CommStation struct {
	Base
	FullName string
	FreqKHz  int
	RangeNM  float64
	Airport  ID
}

func NewCommStation(guid ID, t Type, ident string, g math.Geod, name string, freqKHz int, rangeNM float64, airport ID) *CommStation {
	return &CommStation{
		Base:     NewBase(guid, t, ident, g),
		FullName: name,
		FreqKHz:  freqKHz,
		RangeNM:  rangeNM,
		Airport:  airport,
	}
}

func (c *CommStation) Name() string {
	if c.FullName == "" {
		return c.Ident()
	}
	return c.FullName
}

func (c *CommStation) FreqMHz() float64 {
	return float64(c.FreqKHz) / 1000
}

// Tower is the location of an airport's control tower.
type Tower struct {
	Base
	Airport ID
}

func NewTower(guid ID, ident string, g math.Geod, airport ID) *Tower {
	return &Tower{Base: NewBase(guid, TypeTower, ident, g), Airport: airport}
}

// Parking is a gate or parking stand.
type Parking struct {
	Base
	HeadingDeg float64
	RadiusM    float64
	Airport    ID
}

func NewParking(guid ID, ident string, g math.Geod, hdg, radius float64, airport ID) *Parking {
	return &Parking{Base: NewBase(guid, TypeParking, ident, g), HeadingDeg: hdg, RadiusM: radius, Airport: airport}
}

// Pavement is an area of airport pavement described by its outline.
type Pavement struct {
	Base
	Outline []math.Geod
	Airport ID
}

func NewPavement(guid ID, ident string, g math.Geod, outline []math.Geod, airport ID) *Pavement {
	return &Pavement{Base: NewBase(guid, TypePavement, ident, g), Outline: outline, Airport: airport}
}
