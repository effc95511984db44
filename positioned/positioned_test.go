// positioned/positioned_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	gomath "math"
	"slices"
	"testing"

	"github.com/mmp/navdb/math"
)

func TestTypeNameRoundTrip(t *testing.T) {
	for ty := TypeInvalid; ty < TypeLast; ty++ {
		name := NameForType(ty)
		if name == "" || name == "unknown" {
			t.Errorf("type %d has no canonical name", ty)
		}
		if rt := TypeFromName(name); rt != ty {
			t.Errorf("TypeFromName(NameForType(%d)) = %d (%q)", ty, rt, name)
		}
	}
}

func TestTypeFromNameAliases(t *testing.T) {
	for _, tc := range []struct {
		name string
		t    Type
	}{
		{"gnd", TypeFreqGround},
		{"GND", TypeFreqGround},
		{"arpt", TypeAirport},
		{"apt", TypeAirport},
		{"Airport", TypeAirport},
		{"twr", TypeFreqTower},
		{"tower", TypeFreqTower},
		{"TWR", TypeFreqTower},
		{"tower-freq", TypeFreqTower},
		{"control-tower", TypeTower},
		{"localizer", TypeLOC},
		{"approach", TypeFreqAppDep},
		{"departure", TypeFreqAppDep},
		{"all", TypeInvalid},
		{"any", TypeInvalid},
		{" vor ", TypeVOR},
		{"no-such-type", TypeInvalid},
	} {
		if got := TypeFromName(tc.name); got != tc.t {
			t.Errorf("TypeFromName(%q) = %s, expected %s", tc.name, got, tc.t)
		}
	}
}

func TestTypeRanges(t *testing.T) {
	// Filters and the co-location heuristics depend on these adjacencies.
	if TypeTACAN != TypeDME+1 {
		t.Errorf("DME and TACAN must be adjacent")
	}
	if TypeLOC != TypeILS+1 || TypeGS != TypeLOC+1 {
		t.Errorf("ILS, LOC, and GS must be adjacent")
	}
	if TypeSeaport != TypeAirport+2 {
		t.Errorf("airport types must be contiguous")
	}
	if !TypeHeliport.IsAirport() || TypeRunway.IsAirport() {
		t.Errorf("IsAirport mismatch")
	}
	if !TypeFreqAWOS.IsCommStation() || TypeTower.IsCommStation() {
		t.Errorf("IsCommStation mismatch")
	}
}

func TestModifyPosition(t *testing.T) {
	p := NewWaypoint(1, TypeFix, "ALCOA", math.Geod{Lat: 37.5, Lon: -122.5})
	if p.Cart() != math.CartFromGeod(p.Geod()) {
		t.Errorf("cartesian position doesn't match geodetic")
	}

	g2 := math.Geod{Lat: 38, Lon: -121, ElevM: 100}
	if err := p.ModifyPosition(g2); err != nil {
		t.Fatalf("ModifyPosition: %v", err)
	}
	if p.Geod() != g2 || p.Cart() != math.CartFromGeod(g2) {
		t.Errorf("stale position after ModifyPosition")
	}

	err := p.ModifyPosition(math.Geod{Lat: gomath.NaN(), Lon: 1})
	if err != ErrInvalidPosition {
		t.Errorf("expected ErrInvalidPosition, got %v", err)
	}
	if p.Geod() != g2 {
		t.Errorf("position changed after failed ModifyPosition")
	}
}

func TestNames(t *testing.T) {
	ap := NewAirport(1, TypeAirport, "KSFO", math.Geod{}, "San Francisco Intl", true)
	if ap.Name() != "San Francisco Intl" || ap.Ident() != "KSFO" {
		t.Errorf("airport name/ident mismatch")
	}
	var p Positioned = ap
	if p.Name() != "San Francisco Intl" {
		t.Errorf("interface Name() didn't use override")
	}

	fix := NewWaypoint(2, TypeFix, "BRIXX", math.Geod{})
	if fix.Name() != "BRIXX" {
		t.Errorf("Name() should default to ident")
	}
	if fix.TypeString() != "fix" {
		t.Errorf("TypeString %q", fix.TypeString())
	}
}

func TestRunwayGeometry(t *testing.T) {
	center := math.Geod{Lat: 37.6, Lon: -122.4}
	rwy := NewRunway(10, "28L", center, 280, 3000, 60, SurfaceAsphalt, 1)
	rwy.DisplacedM = 300

	if d := math.DistanceM(rwy.Begin(), rwy.End()); math.Abs(d-3000) > 0.01 {
		t.Errorf("runway length %f", d)
	}
	if c := math.CourseDeg(rwy.Begin(), rwy.End()); math.HeadingDifference(c, 280) > 0.05 {
		t.Errorf("runway course %f", c)
	}
	if d := math.DistanceM(rwy.Begin(), rwy.Threshold()); math.Abs(d-300) > 0.01 {
		t.Errorf("displaced threshold at %fm", d)
	}
	if !rwy.IsHardSurface() {
		t.Errorf("asphalt should be hard")
	}
	if math.Abs(rwy.LengthFt()-9842.5197) > 0.01 {
		t.Errorf("length ft %f", rwy.LengthFt())
	}

	grass := NewRunway(11, "28R", center, 280, 3000, 60, SurfaceTurf, 1)
	if grass.Score(0.01, 0.01, 10) >= rwy.Score(0.01, 0.01, 10) {
		t.Errorf("turf runway should score lower than asphalt")
	}
}

func TestReciprocalIdent(t *testing.T) {
	for _, tc := range [][2]string{
		{"01L", "19R"}, {"19R", "01L"}, {"28C", "10C"}, {"36", "18"}, {"18", "36"},
		{"9", "27"}, {"27", "09"}, {"H1", "H1"},
	} {
		if r := ReciprocalIdent(tc[0]); r != tc[1] {
			t.Errorf("ReciprocalIdent(%q) = %q, expected %q", tc[0], r, tc[1])
		}
	}
}

func TestFilter(t *testing.T) {
	vor := NewNavaid(1, TypeVOR, "SFO", math.Geod{}, "SAN FRANCISCO VORTAC", 11580, 0, 17)
	ndb := NewNavaid(2, TypeNDB, "OA", math.Geod{}, "", 36200, 0, 0)
	ap := NewAirport(3, TypeAirport, "KOAK", math.Geod{}, "", false)

	var nilFilter *Filter
	if !nilFilter.Pass(vor) || !nilFilter.Pass(ap) {
		t.Errorf("nil filter should pass everything")
	}
	if lo, hi := nilFilter.TypeRange(); lo != TypeInvalid || hi != TypeLast {
		t.Errorf("nil filter range %s-%s", lo, hi)
	}

	f := TypeFilter(TypeVOR, TypeInvalid)
	if !f.Pass(vor) || f.Pass(ndb) || f.Pass(ap) {
		t.Errorf("TypeFilter(VOR) mismatch")
	}
	f.AddType(TypeNDB)
	if lo, hi := f.TypeRange(); lo != TypeNDB || hi != TypeVOR {
		t.Errorf("range %s-%s after AddType", lo, hi)
	}
	if !f.Pass(ndb) {
		t.Errorf("NDB should pass after AddType")
	}

	if all := TypeFilter(TypeInvalid); !all.Pass(ap) || !all.Pass(vor) {
		t.Errorf("TypeFilter(INVALID) should be unrestricted")
	}

	r := TypeRangeFilter(TypeNDB, TypeGS)
	if !r.Pass(vor) || !r.Pass(ndb) || r.Pass(ap) {
		t.Errorf("range filter mismatch")
	}

	named := r.And(func(p Positioned) bool { return p.(*Navaid).IsVORTAC() })
	if !named.Pass(vor) || named.Pass(ndb) || named.Pass(ap) {
		t.Errorf("predicate filter mismatch")
	}
	if r.Predicate != nil {
		t.Errorf("And modified the original filter")
	}
	if !named.PassType(TypeNDB) || named.PassType(TypeAirport) {
		t.Errorf("PassType mismatch")
	}
}

func TestSortByRange(t *testing.T) {
	origin := math.Geod{Lat: 37, Lon: -122}
	var fixes []*Waypoint
	for i, d := range []float64{30, 10, 20, 10, 5} {
		fixes = append(fixes, NewWaypoint(ID(i+1), TypeFix, "F", math.Offset(origin, 90, math.NMToMeters(d))))
	}
	SortByRange(fixes, origin)
	if ids := IDs(fixes); !slices.Equal(ids, []ID{5, 2, 4, 3, 1}) {
		t.Errorf("sorted order %v", ids)
	}
}
