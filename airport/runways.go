// airport/runways.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

func (ap *Airport) NumRunways() int {
	ap.loadRunways()
	return len(ap.runways)
}

// RunwayByIndex returns the i'th runway, or nil if i is out of range.
func (ap *Airport) RunwayByIndex(i int) *positioned.Runway {
	ap.loadRunways()
	if i < 0 || i >= len(ap.runways) {
		return nil
	}
	rwy, _ := load[*positioned.Runway](ap.reg, ap.runways[i])
	return rwy
}

func (ap *Airport) Runways() []*positioned.Runway {
	ap.loadRunways()
	return loadAll[*positioned.Runway](ap.reg, ap.runways)
}

// RunwayMap returns the airport's runways keyed by ident, leaving out
// those shorter than minLengthFt.
func (ap *Airport) RunwayMap(minLengthFt float64) map[string]*positioned.Runway {
	m := make(map[string]*positioned.Runway)
	for _, rwy := range ap.Runways() {
		if rwy.LengthFt() >= minLengthFt {
			m[rwy.Ident()] = rwy
		}
	}
	return m
}

func (ap *Airport) HasRunwayWithIdent(ident string) bool {
	return ap.store().AirportItemWithIdent(ap.GUID(), positioned.TypeRunway, ident) != 0
}

func (ap *Airport) RunwayByIdent(ident string) (*positioned.Runway, error) {
	ap.loadSceneryDefinitions()
	id := ap.store().AirportItemWithIdent(ap.GUID(), positioned.TypeRunway, ident)
	if id == 0 {
		return nil, fmt.Errorf("%s at %s: %w", ident, ap.Ident(), ErrUnknownRunway)
	}
	if rwy, ok := load[*positioned.Runway](ap.reg, id); ok {
		return rwy, nil
	}
	return nil, fmt.Errorf("%s at %s: %w", ident, ap.Ident(), ErrUnknownRunway)
}

func (ap *Airport) NumHelipads() int {
	ap.loadHelipads()
	return len(ap.helipads)
}

func (ap *Airport) HelipadByIndex(i int) *positioned.Helipad {
	ap.loadHelipads()
	if i < 0 || i >= len(ap.helipads) {
		return nil
	}
	h, _ := load[*positioned.Helipad](ap.reg, ap.helipads[i])
	return h
}

func (ap *Airport) Helipads() []*positioned.Helipad {
	ap.loadHelipads()
	return loadAll[*positioned.Helipad](ap.reg, ap.helipads)
}

func (ap *Airport) HelipadMap() map[string]*positioned.Helipad {
	m := make(map[string]*positioned.Helipad)
	for _, h := range ap.Helipads() {
		m[h.Ident()] = h
	}
	return m
}

func (ap *Airport) HasHelipadWithIdent(ident string) bool {
	return ap.store().AirportItemWithIdent(ap.GUID(), positioned.TypeHelipad, ident) != 0
}

func (ap *Airport) HelipadByIdent(ident string) (*positioned.Helipad, error) {
	id := ap.store().AirportItemWithIdent(ap.GUID(), positioned.TypeHelipad, ident)
	if id == 0 {
		return nil, fmt.Errorf("%s at %s: %w", ident, ap.Ident(), ErrUnknownHelipad)
	}
	if h, ok := load[*positioned.Helipad](ap.reg, id); ok {
		return h, nil
	}
	return nil, fmt.Errorf("%s at %s: %w", ident, ap.Ident(), ErrUnknownHelipad)
}

// FindBestRunwayForHeading returns the runway that best balances size
// and surface quality against deviation from the given heading. It
// returns nil if the airport has no runways.
func (ap *Airport) FindBestRunwayForHeading(hdg float64) *positioned.Runway {
	w := ap.reg.opts.RunwayWeights

	var best *positioned.Runway
	bestQuality := 0.
	for _, rwy := range ap.Runways() {
		good := rwy.Score(w.Length, w.Width, w.Surface)
		dev := math.SignedHeadingDifference(hdg, rwy.HeadingDeg)
		bad := math.Abs(w.Deviation*dev) + 1e-20

		if quality := good / bad; quality > bestQuality {
			best, bestQuality = rwy, quality
		}
	}
	return best
}

// FindBestRunwayForPos returns the runway most closely aligned with the
// course from pos to the runway's end.
func (ap *Airport) FindBestRunwayForPos(pos math.Geod) (*positioned.Runway, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	var best *positioned.Runway
	lowestDev := 180.
	for _, rwy := range ap.Runways() {
		inbound := math.CourseDeg(pos, rwy.End())
		if dev := math.HeadingDifference(inbound, rwy.HeadingDeg); dev < lowestDev {
			best, lowestDev = rwy, dev
		}
	}
	return best, nil
}

// GetActiveRunwayForUsage returns the best runway for the current wind.
// Without wind information, or with calm winds, west-facing runways are
// preferred.
func (ap *Airport) GetActiveRunwayForUsage(env Environment) *positioned.Runway {
	hdg := 270.
	if env != nil {
		if from, speed, ok := env.Wind(ap.Geod()); ok && speed > 0 {
			hdg = from
		}
	}
	return ap.FindBestRunwayForHeading(hdg)
}

func (ap *Airport) HasHardRunwayOfLengthFt(lengthFt float64) bool {
	return slices.ContainsFunc(ap.Runways(), func(rwy *positioned.Runway) bool {
		return rwy.IsHardSurface() && rwy.LengthFt() >= lengthFt
	})
}

// RunwaysWithoutReciprocals returns one end of each physical runway.
func (ap *Airport) RunwaysWithoutReciprocals() []*positioned.Runway {
	var r []*positioned.Runway
	for _, rwy := range ap.Runways() {
		if rwy.HasReciprocal() && slices.ContainsFunc(r, func(o *positioned.Runway) bool {
			return o.GUID() == rwy.Reciprocal
		}) {
			continue
		}
		r = append(r, rwy)
	}
	return r
}

// ILS returns the ILS or localizer serving the runway, or nil if it
// doesn't have one.
func (ap *Airport) ILS(runway string) (*positioned.Navaid, error) {
	ap.validateILSData()

	rwy, err := ap.RunwayByIdent(runway)
	if err != nil {
		return nil, err
	}
	if !rwy.HasILS() {
		return nil, nil
	}
	nav, _ := load[*positioned.Navaid](ap.reg, rwy.ILS)
	return nav, nil
}

func (ap *Airport) NumTaxiways() int {
	ap.loadTaxiways()
	return len(ap.taxiways)
}

func (ap *Airport) TaxiwayByIndex(i int) *positioned.Taxiway {
	ap.loadTaxiways()
	if i < 0 || i >= len(ap.taxiways) {
		return nil
	}
	tw, _ := load[*positioned.Taxiway](ap.reg, ap.taxiways[i])
	return tw
}

func (ap *Airport) Taxiways() []*positioned.Taxiway {
	ap.loadTaxiways()
	return loadAll[*positioned.Taxiway](ap.reg, ap.taxiways)
}

func (ap *Airport) NumPavements() int {
	ap.loadTaxiways()
	return len(ap.pavements)
}

func (ap *Airport) PavementByIndex(i int) *positioned.Pavement {
	ap.loadTaxiways()
	if i < 0 || i >= len(ap.pavements) {
		return nil
	}
	pv, _ := load[*positioned.Pavement](ap.reg, ap.pavements[i])
	return pv
}

func (ap *Airport) Pavements() []*positioned.Pavement {
	ap.loadTaxiways()
	return loadAll[*positioned.Pavement](ap.reg, ap.pavements)
}

// TowerLocation returns the position of the airport's control tower.
func (ap *Airport) TowerLocation() (math.Geod, bool) {
	ap.validateTowerData()

	towers := ap.store().AirportItemsOfType(ap.GUID(), positioned.TypeTower)
	if len(towers) == 0 {
		ap.reg.lg.Warnf("%s: no tower defined", ap.Ident())
		return math.Geod{}, false
	}
	if twr, ok := load[*positioned.Tower](ap.reg, towers[0]); ok {
		return twr.Geod(), true
	}
	return math.Geod{}, false
}

func (ap *Airport) CommStations() []*positioned.CommStation {
	ids := ap.store().AirportItemsOfTypeRange(ap.GUID(), positioned.TypeFreqGround, positioned.TypeFreqUnicom)
	return loadAll[*positioned.CommStation](ap.reg, ids)
}

func (ap *Airport) CommStationsOfType(t positioned.Type) []*positioned.CommStation {
	if !t.IsCommStation() {
		return nil
	}
	return loadAll[*positioned.CommStation](ap.reg, ap.store().AirportItemsOfType(ap.GUID(), t))
}

///////////////////////////////////////////////////////////////////////////
// Procedures

func (ap *Airport) SIDs() []navcache.Procedure {
	ap.loadProcedures()
	return ap.sids
}

func (ap *Airport) STARs() []navcache.Procedure {
	ap.loadProcedures()
	return ap.stars
}

// Approaches returns the airport's approaches of the given type (e.g.,
// "ILS" or "RNAV"); all of them are returned if typ is empty.
func (ap *Airport) Approaches(typ string) []navcache.Procedure {
	ap.loadProcedures()
	if typ == "" {
		return ap.approaches
	}
	return util.FilterSlice(ap.approaches, func(p navcache.Procedure) bool { return strings.EqualFold(p.Type, typ) })
}

func findProcedure(procs []navcache.Procedure, ident string) *navcache.Procedure {
	for i := range procs {
		if strings.EqualFold(procs[i].Ident, ident) {
			return &procs[i]
		}
	}
	return nil
}

func (ap *Airport) FindSIDWithIdent(ident string) *navcache.Procedure {
	return findProcedure(ap.SIDs(), ident)
}

func (ap *Airport) FindSTARWithIdent(ident string) *navcache.Procedure {
	return findProcedure(ap.STARs(), ident)
}

func (ap *Airport) FindApproachWithIdent(ident string) *navcache.Procedure {
	return findProcedure(ap.Approaches(""), ident)
}

// SIDsForRunway returns the SIDs that can be flown from the given
// runway.
func (ap *Airport) SIDsForRunway(runway string) []navcache.Procedure {
	return util.FilterSlice(ap.SIDs(), func(sid navcache.Procedure) bool {
		return slices.ContainsFunc(sid.Runways, func(rwy string) bool { return strings.EqualFold(rwy, runway) })
	})
}
