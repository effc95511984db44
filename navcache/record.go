// navcache/record.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navcache

import (
	"fmt"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

// Record is the stored form of a positioned entity. Which of the fields
// beyond the common ones are meaningful depends on Type.
type Record struct {
	ID    positioned.ID   `msgpack:"id"`
	Type  positioned.Type `msgpack:"type"`
	Ident string          `msgpack:"ident"`
	Name  string          `msgpack:"name,omitempty"`
	Pos   math.Geod       `msgpack:"pos"`

	// Owning airport, for runways, helipads, taxiways, pavements, comm
	// stations, towers, parking, and ILS components.
	Airport positioned.ID `msgpack:"apt,omitempty"`

	// Runways, helipads, and taxiways.
	HeadingDeg float64            `msgpack:"hdg,omitempty"`
	LengthM    float64            `msgpack:"len,omitempty"`
	WidthM     float64            `msgpack:"wid,omitempty"`
	Surface    positioned.Surface `msgpack:"surf,omitempty"`
	DisplacedM float64            `msgpack:"displ,omitempty"`
	StopwayM   float64            `msgpack:"stopw,omitempty"`
	Reciprocal positioned.ID      `msgpack:"recip,omitempty"`
	ILS        positioned.ID      `msgpack:"ils,omitempty"`

	// Navaids and comm stations. Navaid frequencies are in hundredths of
	// MHz (or kHz for NDBs); comm station frequencies are in kHz.
	Freq          int           `msgpack:"freq,omitempty"`
	RangeNM       float64       `msgpack:"range,omitempty"`
	Multiuse      float64       `msgpack:"multi,omitempty"`
	Runway        positioned.ID `msgpack:"rwy,omitempty"`
	Colocated     positioned.ID `msgpack:"coloc,omitempty"`
	Unserviceable bool          `msgpack:"us,omitempty"`

	// Airports
	HasMetar bool `msgpack:"metar,omitempty"`

	// Pavement outline
	Nodes []math.Geod `msgpack:"nodes,omitempty"`
}

func (r *Record) String() string {
	return fmt.Sprintf("%d:%s:%s", r.ID, r.Type, r.Ident)
}

// materialize creates the entity for the record.
func materialize(r *Record) positioned.Positioned {
	switch t := r.Type; {
	case t.IsAirport():
		return positioned.NewAirport(r.ID, t, r.Ident, r.Pos, r.Name, r.HasMetar)

	case t == positioned.TypeRunway:
		rwy := positioned.NewRunway(r.ID, r.Ident, r.Pos, r.HeadingDeg, r.LengthM, r.WidthM, r.Surface, r.Airport)
		rwy.DisplacedM = r.DisplacedM
		rwy.StopwayM = r.StopwayM
		rwy.Reciprocal = r.Reciprocal
		rwy.ILS = r.ILS
		return rwy

	case t == positioned.TypeHelipad:
		return positioned.NewHelipad(r.ID, r.Ident, r.Pos, r.HeadingDeg, r.LengthM, r.WidthM, r.Surface, r.Airport)

	case t == positioned.TypeTaxiway:
		return positioned.NewTaxiway(r.ID, r.Ident, r.Pos, r.HeadingDeg, r.LengthM, r.WidthM, r.Surface, r.Airport)

	case t == positioned.TypePavement:
		return positioned.NewPavement(r.ID, r.Ident, r.Pos, r.Nodes, r.Airport)

	case t.IsNavaid():
		nav := positioned.NewNavaid(r.ID, t, r.Ident, r.Pos, r.Name, positioned.Frequency(r.Freq), r.RangeNM, r.Multiuse)
		nav.Runway = r.Runway
		nav.Colocated = r.Colocated
		nav.Serviceable = !r.Unserviceable
		return nav

	case t.IsCommStation():
		return positioned.NewCommStation(r.ID, t, r.Ident, r.Pos, r.Name, r.Freq, r.RangeNM, r.Airport)

	case t == positioned.TypeTower:
		return positioned.NewTower(r.ID, r.Ident, r.Pos, r.Airport)

	case t == positioned.TypeParking:
		return positioned.NewParking(r.ID, r.Ident, r.Pos, r.HeadingDeg, r.WidthM/2, r.Airport)

	case t.IsPOI():
		return positioned.NewPOI(r.ID, t, r.Ident, r.Pos, r.Name)

	default:
		return positioned.NewWaypoint(r.ID, t, r.Ident, r.Pos)
	}
}

// refresh brings a live entity up to date with its record after a
// committed change.
func refresh(p positioned.Positioned, r *Record) error {
	if m, ok := p.(positioned.Movable); ok && m.Geod() != r.Pos {
		if err := m.ModifyPosition(r.Pos); err != nil {
			return err
		}
	}

	switch e := p.(type) {
	case *positioned.Runway:
		e.HeadingDeg, e.LengthM, e.WidthM = r.HeadingDeg, r.LengthM, r.WidthM
		e.DisplacedM, e.StopwayM = r.DisplacedM, r.StopwayM
		e.Reciprocal, e.ILS = r.Reciprocal, r.ILS
	case *positioned.Helipad:
		e.HeadingDeg, e.LengthM, e.WidthM = r.HeadingDeg, r.LengthM, r.WidthM
	case *positioned.Navaid:
		e.Multiuse = r.Multiuse
		e.Runway, e.Colocated = r.Runway, r.Colocated
		e.Serviceable = !r.Unserviceable
	}
	return nil
}

type ProcedureKind int

const (
	ProcedureSID ProcedureKind = iota
	ProcedureSTAR
	ProcedureApproach
)

func (k ProcedureKind) String() string {
	switch k {
	case ProcedureSID:
		return "SID"
	case ProcedureSTAR:
		return "STAR"
	case ProcedureApproach:
		return "Approach"
	default:
		return "unknown"
	}
}

// Procedure is a stored SID, STAR, or approach. Only the information
// needed to list and look them up is kept; the waypoint sequences are
// opaque to the cache.
type Procedure struct {
	Airport positioned.ID `msgpack:"apt"`
	Kind    ProcedureKind `msgpack:"kind"`
	Ident   string        `msgpack:"ident"`
	// Approach type (e.g. "ILS", "RNAV"); empty for SIDs and STARs.
	Type      string   `msgpack:"type,omitempty"`
	Runways   []string `msgpack:"rwys,omitempty"`
	Waypoints []string `msgpack:"wps,omitempty"`
}

func (p Procedure) Key() ProcedureKey {
	return ProcedureKey{Airport: p.Airport, Kind: p.Kind, Ident: p.Ident}
}

type ProcedureKey struct {
	Airport positioned.ID
	Kind    ProcedureKind
	Ident   string
}

// FileStamp records the state of a source file when it was last
// imported.
type FileStamp struct {
	Path    string `msgpack:"path" db:"path"`
	ModTime int64  `msgpack:"mtime" db:"mod_time"`
	Size    int64  `msgpack:"size" db:"size"`
}
