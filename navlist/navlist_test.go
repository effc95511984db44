// navlist/navlist_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navlist

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
)

var ksfoPos = math.Geod{Lat: 37.618817, Lon: -122.375428, ElevM: 4}

func makeNavList(t *testing.T) (*NavList, map[string]positioned.ID) {
	t.Helper()

	c, err := navcache.Open(navcache.NewMemoryBackend(), navcache.Options{})
	if err != nil {
		t.Fatal(err)
	}

	ids := make(map[string]positioned.ID)
	txn := c.Begin()
	defer txn.Rollback()
	add := func(key string, r navcache.Record) positioned.ID {
		id := txn.Insert(r)
		ids[key] = id
		return id
	}

	ksfo := add("KSFO", navcache.Record{Type: positioned.TypeAirport, Ident: "KSFO", Pos: ksfoPos})
	r10r := add("10R", navcache.Record{Type: positioned.TypeRunway, Ident: "10R", Airport: ksfo, Pos: ksfoPos,
		HeadingDeg: 118, LengthM: 3200, WidthM: 61, Surface: positioned.SurfaceAsphalt})
	r28l := add("28L", navcache.Record{Type: positioned.TypeRunway, Ident: "28L", Airport: ksfo, Pos: ksfoPos,
		HeadingDeg: 298, LengthM: 3200, WidthM: 61, Surface: positioned.SurfaceAsphalt})
	if err := txn.SetReciprocal(r10r, r28l); err != nil {
		t.Fatal(err)
	}

	// Localizer antennas are at the far end of the runway.
	i28l := add("ISFO", navcache.Record{Type: positioned.TypeILS, Ident: "ISFO", Name: "KSFO 28L ILS-CAT-III",
		Freq: 11090, Multiuse: 298, Pos: math.Offset(ksfoPos, 298, 1600)})
	i10r := add("IGWQ", navcache.Record{Type: positioned.TypeILS, Ident: "IGWQ", Name: "KSFO 10R ILS-CAT-I",
		Freq: 11090, Multiuse: 118, Pos: math.Offset(ksfoPos, 118, 1600)})
	for _, pair := range [][2]positioned.ID{{r28l, i28l}, {r10r, i10r}} {
		if err := txn.SetRunwayILS(pair[0], pair[1]); err != nil {
			t.Fatal(err)
		}
	}

	add("SFO", navcache.Record{Type: positioned.TypeVOR, Ident: "SFO", Name: "SAN FRANCISCO VOR-DME",
		Freq: 11580, Pos: math.Geod{Lat: 37.6195, Lon: -122.3738}})
	add("SEA", navcache.Record{Type: positioned.TypeVOR, Ident: "SEA", Name: "SEATTLE VORTAC",
		Freq: 11580, Pos: math.Geod{Lat: 47.4352, Lon: -122.3097}})
	add("OAK", navcache.Record{Type: positioned.TypeNDB, Ident: "OA", Name: "OAKLAND NDB",
		Freq: 34100, Pos: math.Geod{Lat: 37.72, Lon: -122.22}})

	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}
	return New(c, nil), ids
}

func TestPairedILS(t *testing.T) {
	nl, ids := makeNavList(t)

	for _, test := range []struct {
		name  string
		pos   math.Geod
		ident string
	}{
		{"east", math.Offset(ksfoPos, 118, math.NMToMeters(10)), "ISFO"},
		{"west", math.Offset(ksfoPos, 298, math.NMToMeters(10)), "IGWQ"},
		// Off to the side but still on the 28L side of the airport
		{"northeast", math.Offset(ksfoPos, 60, math.NMToMeters(5)), "ISFO"},
	} {
		t.Run(test.name, func(t *testing.T) {
			nav, err := nl.FindByFreq(110.90, test.pos, LocFilter())
			if err != nil {
				t.Fatalf("FindByFreq: %v", err)
			}
			if nav == nil {
				t.Fatalf("no navaid found")
			}
			if nav.Ident() != test.ident {
				t.Errorf("got %s, expected %s", nav.Ident(), test.ident)
			}
			if nav.GUID() != ids[test.ident] {
				t.Errorf("got id %d, expected %d", nav.GUID(), ids[test.ident])
			}
		})
	}

	// Both are returned when usability isn't a concern.
	all, err := nl.FindAllByFreq(110.90, math.Offset(ksfoPos, 118, math.NMToMeters(10)), nil)
	if err != nil {
		t.Fatalf("FindAllByFreq: %v", err)
	}
	if len(all) != 2 || all[0].Ident() != "IGWQ" || all[1].Ident() != "ISFO" {
		t.Errorf("FindAllByFreq: got %v", all)
	}
}

func TestFindByFreq(t *testing.T) {
	nl, _ := makeNavList(t)
	find := func(freq float64, pos math.Geod, filter *positioned.Filter) *positioned.Navaid {
		t.Helper()
		nav, err := nl.FindByFreq(freq, pos, filter)
		if err != nil {
			t.Fatalf("FindByFreq %.2f: %v", freq, err)
		}
		return nav
	}

	near := math.Offset(ksfoPos, 0, math.NMToMeters(20))
	if nav := find(115.80, near, nil); nav == nil || nav.Ident() != "SFO" {
		t.Errorf("expected SFO, got %v", nav)
	}

	seattle := math.Geod{Lat: 47.45, Lon: -122.3}
	if nav := find(115.80, seattle, NavFilter()); nav == nil || nav.Ident() != "SEA" {
		t.Errorf("expected SEA, got %v", nav)
	}

	// Out of range of everything on the frequency
	denver := math.Geod{Lat: 39.86, Lon: -104.67}
	if nav := find(115.80, denver, nil); nav != nil {
		t.Errorf("expected nil, got %s", nav.Ident())
	}

	// Filtered out
	if nav := find(115.80, near, NDBFilter()); nav != nil {
		t.Errorf("expected nil with NDB filter, got %s", nav.Ident())
	}
	if nav := find(341, near, NDBFilter()); nav == nil || nav.Ident() != "OA" {
		t.Errorf("expected OA, got %v", nav)
	}

	if nav := nl.FindByFreqAnywhere(115.80, nil); nav == nil || nav.Ident() != "SFO" {
		t.Errorf("FindByFreqAnywhere: expected SFO, got %v", nav)
	}
	if nav := nl.FindByFreqAnywhere(115.80, TACANFilter()); nav != nil {
		t.Errorf("FindByFreqAnywhere: VORs should not pass the TACAN filter")
	}
	if nav := nl.FindByFreqAnywhere(117.00, nil); nav != nil {
		t.Errorf("FindByFreqAnywhere: expected nil on unused frequency")
	}
}

func TestFindByIdentAndFreq(t *testing.T) {
	nl, _ := makeNavList(t)

	if navs := nl.FindByIdentAndFreq("SFO", 0, nil); len(navs) != 1 {
		t.Errorf("expected 1 SFO, got %d", len(navs))
	}
	if navs := nl.FindByIdentAndFreq("SFO", 115.80, nil); len(navs) != 1 {
		t.Errorf("expected 1 SFO on 115.80, got %d", len(navs))
	}
	if navs := nl.FindByIdentAndFreq("SFO", 116.00, nil); len(navs) != 0 {
		t.Errorf("expected no SFO on 116.00, got %d", len(navs))
	}
	if navs := nl.FindByIdentAndFreq("SFO", 0, NDBFilter()); len(navs) != 0 {
		t.Errorf("expected no SFO NDB, got %d", len(navs))
	}

	navs, err := nl.FindByIdentAndFreqNear(math.Geod{Lat: 47, Lon: -122}, "SEA", -1, TypeFilter(positioned.TypeInvalid))
	if err != nil {
		t.Fatalf("FindByIdentAndFreqNear: %v", err)
	}
	if len(navs) != 1 || navs[0].Ident() != "SEA" {
		t.Errorf("FindByIdentAndFreqNear: got %v", navs)
	}
}

func TestFilters(t *testing.T) {
	g := math.Geod{Lat: 37, Lon: -122}
	tacan := positioned.NewNavaid(1, positioned.TypeTACAN, "NUQ", g, "MOFFETT TACAN", 0, 0, 0)
	vortacDME := positioned.NewNavaid(2, positioned.TypeDME, "SJC", g, "SAN JOSE VORTAC DME", 11410, 0, 0)
	dme := positioned.NewNavaid(3, positioned.TypeDME, "ISFO", g, "KSFO 28L DME-ILS", 11090, 0, 0)
	vor := positioned.NewNavaid(4, positioned.TypeVOR, "OSI", g, "WOODSIDE VORTAC", 11310, 0, 0)
	carrier := positioned.NewNavaid(5, positioned.TypeMobileTACAN, "CVN", g, "CARRIER", 0, 0, 0)

	check := func(name string, f *positioned.Filter, expect map[*positioned.Navaid]bool) {
		t.Helper()
		for nav, ok := range expect {
			if f.Pass(nav) != ok {
				t.Errorf("%s: %s: expected %v", name, nav.Ident(), ok)
			}
		}
	}

	check("tacan", TACANFilter(), map[*positioned.Navaid]bool{tacan: true, vortacDME: true, dme: false, vor: false, carrier: false})
	check("carrier", CarrierFilter(), map[*positioned.Navaid]bool{carrier: true, tacan: false})
	check("nav", NavFilter(), map[*positioned.Navaid]bool{vor: true, dme: false, tacan: false})
	check("any", TypeFilter(positioned.TypeInvalid), map[*positioned.Navaid]bool{vor: true, dme: false, tacan: false})

	for _, s := range []string{"any", "fix", "vor", "ndb", "ils", "dme", "tacan"} {
		if _, ok := FilterFromTypeString(s); !ok {
			t.Errorf("%s: not recognized", s)
		}
	}
	if _, ok := FilterFromTypeString("airport"); ok {
		t.Errorf("airport: unexpectedly recognized")
	}
	if f, _ := FilterFromTypeString("dme"); !f.Pass(dme) || f.Pass(vor) {
		t.Errorf("dme filter mismatch")
	}
}

func TestTACANChannels(t *testing.T) {
	for _, test := range []struct {
		channel string
		freq    positioned.Frequency
	}{
		{"17X", 10800},
		{"17Y", 10805},
		{"29X", 10920},
		{"59y", 11225},
		{"70X", 11230},
		{"126Y", 11795},
	} {
		f, err := ChannelFrequency(test.channel)
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.channel, err)
		} else if f != test.freq {
			t.Errorf("%s: got %s, expected %s", test.channel, f, test.freq)
		}
	}

	for _, bad := range []string{"", "X", "12X", "65Y", "29Z", "abcX", "127X"} {
		if _, err := ChannelFrequency(bad); !errors.Is(err, ErrInvalidChannel) {
			t.Errorf("%q: expected ErrInvalidChannel, got %v", bad, err)
		}
	}

	l := NewStandardTACANList()
	if rec, ok := l.FindByChannel("29x"); !ok || rec.Freq != 10920 || rec.Channel != "29X" {
		t.Errorf("29X: got %+v %v", rec, ok)
	}
	if _, ok := l.FindByChannel("5X"); ok {
		t.Errorf("5X: should not be in the standard list")
	}

	l.Add("29X", 11000)
	if rec, _ := l.FindByChannel("29X"); rec.Freq != 10920 {
		t.Errorf("FindByChannel should return the first record added")
	}
	var nilList *TACANList
	if _, ok := nilList.FindByChannel("29X"); ok {
		t.Errorf("nil list returned a record")
	}
}

func TestFreqInvalidPosition(t *testing.T) {
	nl, _ := makeNavList(t)

	bad := math.Geod{Lat: gomath.NaN(), Lon: -122.38}
	if nav, err := nl.FindByFreq(115.80, bad, nil); !errors.Is(err, positioned.ErrInvalidPosition) || nav != nil {
		t.Errorf("FindByFreq: got %v, %v", nav, err)
	}
	if navs, err := nl.FindAllByFreq(115.80, bad, nil); !errors.Is(err, positioned.ErrInvalidPosition) || navs != nil {
		t.Errorf("FindAllByFreq: got %v, %v", navs, err)
	}
	if _, err := nl.FindByIdentAndFreqNear(bad, "SFO", 0, nil); !errors.Is(err, positioned.ErrInvalidPosition) {
		t.Errorf("FindByIdentAndFreqNear: got %v", err)
	}
}
