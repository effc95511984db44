// importer/dataset.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package importer

import (
	"slices"
	"strings"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
)

// Dataset holds parsed navigation data before it is added to the cache.
// Entities refer to each other by ident rather than by ID.
type Dataset struct {
	// ICAO -> airport. Airports may be created as placeholders by
	// records (e.g., runways) that are parsed before the airport itself;
	// they have TypeInvalid until the airport record is seen.
	Airports map[string]*Airport
	Navaids  []Navaid
	Fixes    []Fix
}

type Airport struct {
	Ident string
	Type  positioned.Type
	Name  string
	Pos   math.Geod

	Runways    []Runway
	Helipads   []Runway
	Comms      []Comm
	ILS        []Navaid
	Procedures []navcache.Procedure
}

type Runway struct {
	Ident string
	// Beginning of the paved surface; the landing threshold may be
	// displaced from it.
	Begin      math.Geod
	HeadingDeg float64
	LengthM    float64
	WidthM     float64
	DisplacedM float64
	StopwayM   float64
	Surface    positioned.Surface
}

// Center returns the midpoint of the runway.
func (r Runway) Center() math.Geod {
	c := math.Offset(r.Begin, r.HeadingDeg, r.LengthM/2)
	c.ElevM = r.Begin.ElevM
	return c
}

type Navaid struct {
	Type     positioned.Type
	Ident    string
	Name     string
	Pos      math.Geod
	Freq     positioned.Frequency
	RangeNM  float64
	Multiuse float64

	// For VORs with a colocated DME (or TACAN) the DME's position.
	DME     *math.Geod
	DMEType positioned.Type

	// ILS components only.
	Runway string
}

type Fix struct {
	Ident string
	Pos   math.Geod
}

type Comm struct {
	Type    positioned.Type
	Ident   string
	Name    string
	FreqKHz int
}

func NewDataset() *Dataset {
	return &Dataset{Airports: make(map[string]*Airport)}
}

// Airport returns the airport with the given ICAO code, creating a
// placeholder if it hasn't been seen yet.
func (d *Dataset) Airport(icao string) *Airport {
	ap, ok := d.Airports[icao]
	if !ok {
		ap = &Airport{Ident: icao}
		d.Airports[icao] = ap
	}
	return ap
}

// Merge adds the contents of o to d. Where both have information about
// the same airport, d's takes precedence; runways, comm stations, ILSs,
// and procedures are only taken from o if d has none of them, though
// missing runway surfaces and widths are filled in.
func (d *Dataset) Merge(o *Dataset) {
	for icao, oap := range o.Airports {
		ap, ok := d.Airports[icao]
		if !ok {
			d.Airports[icao] = oap
			continue
		}

		if ap.Type == positioned.TypeInvalid {
			ap.Type, ap.Pos = oap.Type, oap.Pos
		}
		if ap.Name == "" {
			ap.Name = oap.Name
		}
		if len(ap.Runways) == 0 {
			ap.Runways = oap.Runways
		} else {
			// CIFP runways don't have surfaces; take them from o when
			// it has them.
			for i := range ap.Runways {
				rwy := &ap.Runways[i]
				idx := slices.IndexFunc(oap.Runways, func(r Runway) bool { return r.Ident == rwy.Ident })
				if idx == -1 {
					continue
				}
				if rwy.Surface == positioned.SurfaceUnknown {
					rwy.Surface = oap.Runways[idx].Surface
				}
				if rwy.WidthM == 0 {
					rwy.WidthM = oap.Runways[idx].WidthM
				}
			}
		}
		if len(ap.Helipads) == 0 {
			ap.Helipads = oap.Helipads
		}
		if len(ap.Comms) == 0 {
			ap.Comms = oap.Comms
		}
		if len(ap.ILS) == 0 {
			ap.ILS = oap.ILS
		}
		if len(ap.Procedures) == 0 {
			ap.Procedures = oap.Procedures
		}
	}

	d.Navaids = append(d.Navaids, o.Navaids...)
	d.Fixes = append(d.Fixes, o.Fixes...)
}

// normalizeRunwayIdent upper-cases the runway identifier and adds a
// leading zero to single-digit runway numbers ("9L" -> "09L").
func normalizeRunwayIdent(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) > 0 && s[0] >= '0' && s[0] <= '9' && (len(s) == 1 || s[1] < '0' || s[1] > '9') {
		return "0" + s
	}
	return s
}

// useTrueRunwayHeadings replaces the headings of runways with both ends
// known with the true course between them; CIFP headings are magnetic.
func (ap *Airport) useTrueRunwayHeadings() {
	for i := range ap.Runways {
		rwy := &ap.Runways[i]
		recip := positioned.ReciprocalIdent(rwy.Ident)
		if j := slices.IndexFunc(ap.Runways, func(r Runway) bool { return r.Ident == recip }); j != -1 {
			rwy.HeadingDeg = math.CourseDeg(rwy.Begin, ap.Runways[j].Begin)
		}
	}
}
