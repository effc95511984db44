// navcache/cache_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navcache

import (
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

var ksfoPos = math.Geod{Lat: 37.618817, Lon: -122.375428, ElevM: 4}

type testDB struct {
	c       *Cache
	backend *MemoryBackend
	ids     map[string]positioned.ID
}

func makeTestDB(t *testing.T) *testDB {
	t.Helper()
	backend := NewMemoryBackend()
	c, err := Open(backend, Options{})
	require.NoError(t, err)

	db := &testDB{c: c, backend: backend, ids: make(map[string]positioned.ID)}

	txn := c.Begin()
	defer txn.Rollback()

	add := func(key string, r Record) positioned.ID {
		id := txn.Insert(r)
		db.ids[key] = id
		return id
	}
	ksfo := add("KSFO", Record{Type: positioned.TypeAirport, Ident: "KSFO", Name: "San Francisco Intl", Pos: ksfoPos})
	add("KSQL", Record{Type: positioned.TypeAirport, Ident: "KSQL", Name: "San Carlos", Pos: math.Geod{Lat: 37.5119, Lon: -122.2495}})
	add("KSJC", Record{Type: positioned.TypeAirport, Ident: "KSJC", Name: "San Jose Intl", Pos: math.Geod{Lat: 37.3626, Lon: -121.9291}})
	add("KOAK", Record{Type: positioned.TypeAirport, Ident: "KOAK", Name: "Oakland Intl", Pos: math.Geod{Lat: 37.7213, Lon: -122.2207}})
	add("SFO", Record{Type: positioned.TypeVOR, Ident: "SFO", Name: "SAN FRANCISCO VORTAC", Freq: 11580,
		Pos: math.Geod{Lat: 37.6193, Lon: -122.3739}})
	add("KSFO-FIX", Record{Type: positioned.TypeFix, Ident: "KSFOX", Pos: math.Geod{Lat: 37.7, Lon: -122.5}})

	r28l := add("28L", Record{Type: positioned.TypeRunway, Ident: "28L", Airport: ksfo, HeadingDeg: 298, LengthM: 3618, WidthM: 61,
		Surface: positioned.SurfaceAsphalt, Pos: math.Offset(ksfoPos, 298, 0)})
	r10r := add("10R", Record{Type: positioned.TypeRunway, Ident: "10R", Airport: ksfo, HeadingDeg: 118, LengthM: 3618, WidthM: 61,
		Surface: positioned.SurfaceAsphalt, Pos: ksfoPos})
	require.NoError(t, txn.SetReciprocal(r28l, r10r))
	ils := add("ISFO", Record{Type: positioned.TypeILS, Ident: "ISFO", Freq: 10930, Multiuse: 298,
		Pos: math.Offset(ksfoPos, 298, 2000)})
	require.NoError(t, txn.SetRunwayILS(r28l, ils))
	add("GS", Record{Type: positioned.TypeGS, Ident: "ISFO", Freq: 10930, Airport: ksfo, Runway: r28l, Pos: ksfoPos})
	add("GND", Record{Type: positioned.TypeFreqGround, Ident: "GND", Freq: 121800, Airport: ksfo, Pos: ksfoPos})
	txn.InsertProcedure(Procedure{Airport: ksfo, Kind: ProcedureSID, Ident: "TRUKN2", Runways: []string{"28L"}})
	txn.InsertProcedure(Procedure{Airport: ksfo, Kind: ProcedureSID, Ident: "OFFSH9"})
	txn.InsertProcedure(Procedure{Airport: ksfo, Kind: ProcedureApproach, Ident: "I28L", Type: "ILS"})

	require.NoError(t, txn.Commit())
	return db
}

func idents(ps []positioned.Positioned) []string {
	var s []string
	for _, p := range ps {
		s = append(s, p.Ident())
	}
	return s
}

func TestLoadByID(t *testing.T) {
	db := makeTestDB(t)

	p, err := db.c.LoadByID(db.ids["KSFO"])
	require.NoError(t, err)
	assert.Equal(t, "KSFO", p.Ident())
	assert.Equal(t, "San Francisco Intl", p.Name())
	assert.IsType(t, &positioned.Airport{}, p)

	p2, err := db.c.LoadByID(db.ids["KSFO"])
	require.NoError(t, err)
	assert.Same(t, p, p2)

	_, err = db.c.LoadByID(12345)
	assert.True(t, errors.Is(err, positioned.ErrNotFound))

	rwy, err := db.c.LoadByID(db.ids["28L"])
	require.NoError(t, err)
	require.IsType(t, &positioned.Runway{}, rwy)
	assert.Equal(t, db.ids["10R"], rwy.(*positioned.Runway).Reciprocal)
	assert.Equal(t, db.ids["ISFO"], rwy.(*positioned.Runway).ILS)
}

func TestFindAllWithIdent(t *testing.T) {
	db := makeTestDB(t)
	airports := positioned.TypeRangeFilter(positioned.TypeAirport, positioned.TypeSeaport)

	got := db.c.FindAllWithIdent("KS", airports, false)
	assert.Equal(t, []string{"KSFO", "KSQL", "KSJC"}, idents(got))

	// The fix KSFOX matches the prefix but not the filter; unfiltered it
	// comes after the airports since it was added later.
	got = db.c.FindAllWithIdent("ks", nil, false)
	assert.Equal(t, []string{"KSFO", "KSQL", "KSJC", "KSFOX"}, idents(got))

	assert.Empty(t, db.c.FindAllWithIdent("KS", positioned.TypeRangeFilter(positioned.TypeNDB, positioned.TypeGS), false))

	got = db.c.FindAllWithIdent("ksfo", nil, true)
	assert.Equal(t, []string{"KSFO"}, idents(got))
	assert.Empty(t, db.c.FindAllWithIdent("KSF", nil, true))

	got = db.c.FindAllWithName("san ", airports, false)
	assert.Equal(t, []string{"KSFO", "KSQL", "KSJC"}, idents(got))
	got = db.c.FindAllWithName("Oakland Intl", nil, true)
	assert.Equal(t, []string{"KOAK"}, idents(got))
}

func TestAirportItems(t *testing.T) {
	db := makeTestDB(t)
	ksfo := db.ids["KSFO"]

	assert.Equal(t, []positioned.ID{db.ids["28L"], db.ids["10R"]}, db.c.AirportItemsOfType(ksfo, positioned.TypeRunway))
	assert.Equal(t, []positioned.ID{db.ids["GND"]},
		db.c.AirportItemsOfTypeRange(ksfo, positioned.TypeFreqGround, positioned.TypeFreqUnicom))
	assert.Empty(t, db.c.AirportItemsOfType(db.ids["KOAK"], positioned.TypeRunway))

	assert.Equal(t, db.ids["10R"], db.c.AirportItemWithIdent(ksfo, positioned.TypeRunway, "10r"))
	assert.Equal(t, positioned.ID(0), db.c.AirportItemWithIdent(ksfo, positioned.TypeRunway, "01L"))

	// The ILS was associated with the airport through its runway.
	assert.Equal(t, db.ids["ISFO"], db.c.FindILS(ksfo, "28L", "ISFO"))
	assert.Equal(t, positioned.ID(0), db.c.FindILS(ksfo, "10R", "ISFO"))

	sids := db.c.Procedures(ksfo, ProcedureSID)
	require.Len(t, sids, 2)
	assert.Equal(t, "OFFSH9", sids[0].Ident)
	assert.Equal(t, "TRUKN2", sids[1].Ident)
	assert.Len(t, db.c.Procedures(ksfo, ProcedureApproach), 1)
	assert.Empty(t, db.c.Procedures(ksfo, ProcedureSTAR))
}

func TestFindNavaidsByFreq(t *testing.T) {
	db := makeTestDB(t)

	txn := db.c.Begin()
	far := txn.Insert(Record{Type: positioned.TypeILS, Ident: "IFAR", Freq: 10930, Pos: math.Geod{Lat: 40, Lon: -100}})
	require.NoError(t, txn.Commit())

	// GS shares the frequency but isn't passed by the LOC filter.
	locs := positioned.TypeRangeFilter(positioned.TypeILS, positioned.TypeLOC)
	ids := db.c.FindNavaidsByFreq(10930, nil, locs)
	assert.Equal(t, []positioned.ID{db.ids["ISFO"], far}, ids)

	near := math.Geod{Lat: 40.1, Lon: -100}
	ids = db.c.FindNavaidsByFreq(10930, &near, locs)
	assert.Equal(t, []positioned.ID{far, db.ids["ISFO"]}, ids)

	ids = db.c.FindNavaidsByFreq(10930, nil, nil)
	assert.Len(t, ids, 3)
	assert.Empty(t, db.c.FindNavaidsByFreq(11000, nil, nil))
}

func TestTransactionVisibility(t *testing.T) {
	db := makeTestDB(t)
	applies := db.backend.Applies

	txn := db.c.Begin()
	id := txn.Insert(Record{Type: positioned.TypeWaypoint, Ident: "NEWPT", Pos: ksfoPos})
	require.NoError(t, txn.UpdatePosition(db.ids["KSFO-FIX"], math.Geod{Lat: 38, Lon: -122}))

	// Not yet visible.
	assert.Empty(t, db.c.FindAllWithIdent("NEWPT", nil, true))
	_, err := db.c.LoadByID(id)
	assert.Error(t, err)
	fix, err := db.c.LoadByID(db.ids["KSFO-FIX"])
	require.NoError(t, err)
	assert.Equal(t, 37.7, fix.Geod().Lat)

	txn.Rollback()
	txn.Rollback()
	assert.ErrorIs(t, txn.Commit(), ErrTransactionDone)
	assert.Empty(t, db.c.FindAllWithIdent("NEWPT", nil, true))
	assert.Equal(t, 37.7, fix.Geod().Lat)
	assert.Equal(t, applies, db.backend.Applies)

	// Abandoned via defer.
	func() {
		txn := db.c.Begin()
		defer txn.Rollback()
		txn.Insert(Record{Type: positioned.TypeWaypoint, Ident: "ABANDON", Pos: ksfoPos})
	}()
	assert.Empty(t, db.c.FindAllWithIdent("ABANDON", nil, true))

	txn = db.c.Begin()
	defer txn.Rollback()
	require.NoError(t, txn.UpdatePosition(db.ids["KSFO-FIX"], math.Geod{Lat: 38, Lon: -122}))
	require.NoError(t, txn.Commit())
	assert.Equal(t, applies+1, db.backend.Applies)

	// The live entity was updated, cartesian position included.
	assert.Equal(t, 38.0, fix.Geod().Lat)
	assert.Equal(t, math.CartFromGeod(fix.Geod()), fix.Cart())

	// And the spatial index knows about the move.
	near, _ := db.c.Tree().FindNearestN(math.CartFromGeod(math.Geod{Lat: 38, Lon: -122}), 1, 1000, nil, 0)
	require.Len(t, near, 1)
	assert.Equal(t, db.ids["KSFO-FIX"], near[0].GUID())
}

func TestTransactionErrors(t *testing.T) {
	db := makeTestDB(t)
	txn := db.c.Begin()
	defer txn.Rollback()

	assert.ErrorIs(t, txn.UpdatePosition(db.ids["KSFO"], math.Geod{Lat: gomath.NaN()}), positioned.ErrInvalidPosition)
	assert.ErrorIs(t, txn.UpdatePosition(999, ksfoPos), positioned.ErrNotFound)
	assert.ErrorIs(t, txn.UpdateRunwayThreshold(db.ids["KSFO"], ksfoPos, 0, 0, 0), ErrTypeMismatch)
	assert.ErrorIs(t, txn.UpdateILS(db.ids["28L"], ksfoPos, 0), ErrTypeMismatch)
	_, err := txn.InsertTower(db.ids["28L"], ksfoPos)
	assert.ErrorIs(t, err, positioned.ErrNotFound)
	assert.ErrorIs(t, txn.Update(db.ids["KSFO"], func(r *Record) { r.Ident = "XXXX" }), ErrImmutableField)
}

type failingBackend struct {
	*MemoryBackend
	fail bool
}

func (f *failingBackend) Apply(cs *ChangeSet) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Apply(cs)
}

func TestCommitFailure(t *testing.T) {
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	c, err := Open(backend, Options{})
	require.NoError(t, err)

	backend.fail = true
	txn := c.Begin()
	txn.Insert(Record{Type: positioned.TypeFix, Ident: "FAIL", Pos: ksfoPos})
	assert.Error(t, txn.Commit())
	assert.Empty(t, c.FindAllWithIdent("FAIL", nil, true))
	assert.Equal(t, 0, c.Tree().Len())
}

func TestUpdateRunwayThreshold(t *testing.T) {
	db := makeTestDB(t)
	id := db.ids["28L"]
	p, err := db.c.LoadByID(id)
	require.NoError(t, err)
	rwy := p.(*positioned.Runway)

	thr := math.Geod{Lat: 37.6116, Lon: -122.3579, ElevM: 3}
	txn := db.c.Begin()
	require.NoError(t, txn.UpdateRunwayThreshold(id, thr, 297.5, 150, 60))
	require.NoError(t, txn.Commit())

	assert.Equal(t, 297.5, rwy.HeadingDeg)
	assert.Equal(t, 150.0, rwy.DisplacedM)
	assert.Equal(t, 60.0, rwy.StopwayM)
	assert.InDelta(t, 3618/2, math.DistanceM(thr, rwy.Geod()), 0.01)
	// The ends are found by following the heading from the center, so
	// they're only approximately where the threshold was given.
	assert.InDelta(t, 0, math.DistanceM(thr, rwy.Begin()), 1)
	assert.InDelta(t, 150, math.DistanceM(thr, rwy.Threshold()), 1)
}

func TestTowerAndILSUpdates(t *testing.T) {
	db := makeTestDB(t)
	ksfo := db.ids["KSFO"]

	twrPos := math.Geod{Lat: 37.6155, Lon: -122.3838, ElevM: 70}
	txn := db.c.Begin()
	twr, err := txn.InsertTower(ksfo, twrPos)
	require.NoError(t, err)
	ilsPos := math.Offset(ksfoPos, 298, 2500)
	require.NoError(t, txn.UpdateILS(db.ids["ISFO"], ilsPos, 297.9))
	require.NoError(t, txn.Commit())

	assert.Equal(t, []positioned.ID{twr}, db.c.AirportItemsOfType(ksfo, positioned.TypeTower))
	p, err := db.c.LoadByID(twr)
	require.NoError(t, err)
	assert.Equal(t, "KSFO", p.Ident())
	assert.Equal(t, twrPos, p.Geod())

	p, err = db.c.LoadByID(db.ids["ISFO"])
	require.NoError(t, err)
	assert.Equal(t, 297.9, p.(*positioned.Navaid).LocalizerCourse())
	assert.Equal(t, ilsPos, p.Geod())
}

func TestFileStamps(t *testing.T) {
	db := makeTestDB(t)
	path := filepath.Join(t.TempDir(), "KSFO.threshold.xml")
	require.NoError(t, os.WriteFile(path, []byte("<PropertyList/>"), 0o644))

	assert.True(t, db.c.IsCachedFileModified(path))

	txn := db.c.Begin()
	require.NoError(t, txn.StampCacheFile(path))
	// Not visible before commit.
	assert.True(t, db.c.IsCachedFileModified(path))
	require.NoError(t, txn.Commit())
	assert.False(t, db.c.IsCachedFileModified(path))

	require.NoError(t, os.WriteFile(path, []byte("<PropertyList></PropertyList>"), 0o644))
	assert.True(t, db.c.IsCachedFileModified(path))

	txn = db.c.Begin()
	assert.Error(t, txn.StampCacheFile(filepath.Join(t.TempDir(), "missing.xml")))
	txn.Rollback()
}

func TestReopen(t *testing.T) {
	db := makeTestDB(t)

	c2, err := Open(db.backend, Options{})
	require.NoError(t, err)
	assert.Equal(t, db.c.Len(), c2.Len())
	assert.Equal(t, db.c.Stats().Procedures, c2.Stats().Procedures)
	assert.Equal(t, idents(db.c.FindAllWithIdent("K", nil, false)), idents(c2.FindAllWithIdent("K", nil, false)))

	// New IDs don't collide with existing ones.
	txn := c2.Begin()
	id := txn.Insert(Record{Type: positioned.TypeFix, Ident: "NEWER", Pos: ksfoPos})
	require.NoError(t, txn.Commit())
	_, exists := db.c.Record(id)
	assert.False(t, exists)
}

func TestEntityEviction(t *testing.T) {
	backend := NewMemoryBackend()
	c, err := Open(backend, Options{EntityCacheSize: 2})
	require.NoError(t, err)

	txn := c.Begin()
	var ids []positioned.ID
	for _, ident := range []string{"AAAAA", "BBBBB", "CCCCC", "DDDDD"} {
		ids = append(ids, txn.Insert(Record{Type: positioned.TypeFix, Ident: ident, Pos: ksfoPos}))
	}
	require.NoError(t, txn.Commit())

	for range 2 {
		for i, id := range ids {
			p, err := c.LoadByID(id)
			require.NoError(t, err)
			assert.Equal(t, []string{"AAAAA", "BBBBB", "CCCCC", "DDDDD"}[i], p.Ident())
		}
	}
	assert.LessOrEqual(t, c.Stats().Materialized, 2)
}

func TestPOI(t *testing.T) {
	db := makeTestDB(t)
	pos := math.Geod{Lat: 37.8, Lon: -122.4}

	id, err := db.c.CreatePOI(positioned.TypeWaypoint, "HOME", pos, "")
	require.NoError(t, err)
	got := db.c.FindAllWithIdent("HOME", positioned.TypeFilter(positioned.TypeWaypoint), true)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].GUID())

	_, err = db.c.CreatePOI(positioned.TypeWaypoint, "BAD", math.Geod{Lat: gomath.NaN()}, "")
	assert.ErrorIs(t, err, positioned.ErrInvalidPosition)

	ok, err := db.c.RemovePOI(positioned.TypeWaypoint, "HOME")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, db.c.FindAllWithIdent("HOME", nil, true))
	_, err = db.c.LoadByID(id)
	assert.ErrorIs(t, err, positioned.ErrNotFound)

	ok, err = db.c.RemovePOI(positioned.TypeWaypoint, "HOME")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing the airport takes its procedures with it.
	txn := db.c.Begin()
	txn.Remove(db.ids["KSFO"])
	require.NoError(t, txn.Commit())
	assert.Empty(t, db.c.Procedures(db.ids["KSFO"], ProcedureSID))
}

func TestClearProcedures(t *testing.T) {
	db := makeTestDB(t)
	ksfo := db.ids["KSFO"]

	txn := db.c.Begin()
	txn.InsertProcedure(Procedure{Airport: ksfo, Kind: ProcedureSID, Ident: "GONE1"})
	txn.ClearProcedures(ksfo)
	txn.InsertProcedure(Procedure{Airport: ksfo, Kind: ProcedureSTAR, Ident: "BDEGA4", Waypoints: []string{"BDEGA"}})
	require.NoError(t, txn.Commit())

	assert.Empty(t, db.c.Procedures(ksfo, ProcedureSID))
	assert.Empty(t, db.c.Procedures(ksfo, ProcedureApproach))
	stars := db.c.Procedures(ksfo, ProcedureSTAR)
	require.Len(t, stars, 1)
	assert.Equal(t, "BDEGA4", stars[0].Ident)

	c2, err := Open(db.backend, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, c2.Stats().Procedures)
}
