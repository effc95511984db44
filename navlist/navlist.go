// navlist/navlist.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package navlist finds navaids by frequency and ident, taking care to
// pick the right end of runways whose ILSs share a frequency.
package navlist

import (
	"slices"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
)

// Store is the part of the navigation data cache used for navaid
// lookups; *navcache.Cache implements it.
type Store interface {
	LoadByID(id positioned.ID) (positioned.Positioned, error)
	FindNavaidsByFreq(freq positioned.Frequency, pos *math.Geod, filter *positioned.Filter) []positioned.ID
	FindAllWithIdent(ident string, filter *positioned.Filter, exact bool) []positioned.Positioned
}

var _ Store = (*navcache.Cache)(nil)

type NavList struct {
	store Store
	lg    *log.Logger
}

func New(store Store, lg *log.Logger) *NavList {
	return &NavList{store: store, lg: lg}
}

func (nl *NavList) navaid(id positioned.ID) *positioned.Navaid {
	p, err := nl.store.LoadByID(id)
	if err != nil {
		nl.lg.Warnf("%d: %v", id, err)
		return nil
	}
	nav, ok := p.(*positioned.Navaid)
	if !ok {
		nl.lg.Warnf("%d: %T is not a navaid", id, p)
	}
	return nav
}

func (nl *NavList) runway(id positioned.ID) *positioned.Runway {
	if id == 0 {
		return nil
	}
	p, err := nl.store.LoadByID(id)
	if err != nil {
		nl.lg.Warnf("%d: %v", id, err)
		return nil
	}
	rwy, _ := p.(*positioned.Runway)
	return rwy
}

// navidUsable reports whether the navaid should be used by an aircraft
// at pos. When both ends of a runway have an ILS on the same frequency,
// only the one for the runway end the aircraft is approaching is usable:
// the one whose runway heading is within 90 degrees of the course from
// the aircraft to the runway.
func (nl *NavList) navidUsable(nav *positioned.Navaid, pos math.Geod) bool {
	rwy := nl.runway(nav.Runway)
	if rwy == nil || !rwy.HasReciprocal() {
		return true
	}
	recip := nl.runway(rwy.Reciprocal)
	if recip == nil || !rwy.HasILS() || !recip.HasILS() {
		return true
	}

	locA, locB := nl.navaid(rwy.ILS), nl.navaid(recip.ILS)
	if locA == nil || locB == nil || locA.Freq != locB.Freq {
		// Not paired
		return true
	}

	// Use the runway's position rather than the navaid's; this gets
	// back courses and missed approaches wrong.
	crs := math.CourseDeg(pos, rwy.Geod())
	return math.Abs(math.SignedHeadingDifference(crs, rwy.HeadingDeg)) < 90
}

// FindByFreq returns the closest usable navaid on the given frequency
// (in MHz, or kHz for NDBs) within NavMaxRangeNM of pos that passes the
// filter, or nil if there isn't one.
func (nl *NavList) FindByFreq(freq float64, pos math.Geod, filter *positioned.Filter) (*positioned.Navaid, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	ids := nl.store.FindNavaidsByFreq(positioned.FrequencyFromFloat(freq), &pos, filter)

	cart := math.CartFromGeod(pos)
	maxDist2 := math.Sqr(math.NMToMeters(positioned.NavMaxRangeNM))
	for _, id := range ids {
		nav := nl.navaid(id)
		if nav == nil || !filter.Pass(nav) {
			continue
		}
		if math.Dist2(nav.Cart(), cart) > maxDist2 {
			// The rest are further away.
			break
		}
		if nl.navidUsable(nav, pos) {
			return nav, nil
		}
	}
	return nil, nil
}

// FindByFreqAnywhere returns the first navaid on the frequency that
// passes the filter, regardless of where it is.
func (nl *NavList) FindByFreqAnywhere(freq float64, filter *positioned.Filter) *positioned.Navaid {
	for _, id := range nl.store.FindNavaidsByFreq(positioned.FrequencyFromFloat(freq), nil, filter) {
		if nav := nl.navaid(id); nav != nil && filter.Pass(nav) {
			return nav
		}
	}
	return nil
}

// FindAllByFreq returns all of the navaids on the frequency that pass
// the filter, sorted by distance from pos.
func (nl *NavList) FindAllByFreq(freq float64, pos math.Geod, filter *positioned.Filter) ([]*positioned.Navaid, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	var navs []*positioned.Navaid
	for _, id := range nl.store.FindNavaidsByFreq(positioned.FrequencyFromFloat(freq), &pos, filter) {
		if nav := nl.navaid(id); nav != nil && filter.Pass(nav) {
			navs = append(navs, nav)
		}
	}
	return navs, nil
}

// FindByIdentAndFreq returns the navaids with the given ident passing
// the filter; if freq is positive, only those on that frequency are
// returned.
func (nl *NavList) FindByIdentAndFreq(ident string, freq float64, filter *positioned.Filter) []*positioned.Navaid {
	f := positioned.FrequencyFromFloat(freq)

	var navs []*positioned.Navaid
	for _, p := range nl.store.FindAllWithIdent(ident, filter, true) {
		if nav, ok := p.(*positioned.Navaid); ok && (freq <= 0 || nav.Freq == f) {
			navs = append(navs, nav)
		}
	}
	return navs
}

// FindByIdentAndFreqNear is FindByIdentAndFreq with the results sorted by
// distance from pos.
func (nl *NavList) FindByIdentAndFreqNear(pos math.Geod, ident string, freq float64,
	filter *positioned.Filter) ([]*positioned.Navaid, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	navs := nl.FindByIdentAndFreq(ident, freq, filter)
	positioned.SortByRange(navs, pos)
	return slices.Clip(navs), nil
}
