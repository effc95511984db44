// importer/importer.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package importer reads navigation data from FAA CIFP (ARINC-424) files
// and the OurAirports CSV files and adds it to the navigation cache.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

// Navaids and fixes already in the cache with the same type and ident
// as an imported one are replaced if they're within this distance of
// it.
const replaceRadiusNM = 10

type Importer struct {
	cache  *navcache.Cache
	lg     *log.Logger
	errors util.ErrorLogger
}

type Stats struct {
	Files      int
	Airports   int
	Runways    int
	Helipads   int
	Comms      int
	ILS        int
	Navaids    int
	Fixes      int
	Procedures int
	Replaced   int
	Elapsed    time.Duration
}

func New(cache *navcache.Cache, lg *log.Logger) *Importer {
	return &Importer{cache: cache, lg: lg}
}

// Warnings returns the problems found in the data imported so far.
func (im *Importer) Warnings() []string {
	return im.errors.Errors()
}

// Import parses the given files and adds their contents to the cache in
// a single transaction. The files are parsed concurrently; where they
// disagree about an airport, the earlier file in paths takes precedence.
// Unless force is true, nothing is done if none of the files have changed
// since they were last imported. Problems with individual records are
// reported via Warnings and don't cause Import to fail.
func (im *Importer) Import(ctx context.Context, force bool, paths ...string) (Stats, error) {
	start := time.Now()

	if !force && !slices.ContainsFunc(paths, im.cache.IsCachedFileModified) {
		im.lg.Info("navigation data is up to date", slog.Any("files", paths))
		return Stats{}, nil
	}

	parsers := make([]func(io.Reader, *util.ErrorLogger) *Dataset, len(paths))
	for i, path := range paths {
		var err error
		if parsers[i], err = parserForFile(strings.TrimSuffix(filepath.Base(path), ".zst")); err != nil {
			return Stats{}, err
		}
	}

	// Each file gets its own ErrorLogger since they're not safe for
	// concurrent use.
	results := make([]*Dataset, len(paths))
	errs := make([]util.ErrorLogger, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[i].Push(filepath.Base(path))
			d, err := readFile(path, parsers[i], &errs[i])
			results[i] = d
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}

	d := NewDataset()
	for i := range results {
		d.Merge(results[i])
		for _, msg := range errs[i].Errors() {
			im.lg.Debug("import problem", slog.String("msg", msg))
		}
		if n := errs[i].Len(); n > 0 {
			im.lg.Warnf("%s: %d problems found", paths[i], n)
		}
		im.errors.Merge(&errs[i])
	}

	st := Stats{Files: len(paths)}
	if err := im.apply(d, paths, &st); err != nil {
		return st, err
	}
	st.Elapsed = time.Since(start)

	im.lg.Info("imported navigation data", slog.Int("airports", st.Airports),
		slog.Int("runways", st.Runways), slog.Int("navaids", st.Navaids),
		slog.Int("fixes", st.Fixes), slog.Int("procedures", st.Procedures),
		slog.Int("replaced", st.Replaced), slog.Duration("elapsed", st.Elapsed))

	return st, nil
}

func readFile(path string, parse func(io.Reader, *util.ErrorLogger) *Dataset, e *util.ErrorLogger) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	return parse(r, e), nil
}

func (im *Importer) apply(d *Dataset, paths []string, st *Stats) error {
	txn := im.cache.Begin()
	defer txn.Rollback()

	for _, icao := range util.SortedMapKeys(d.Airports) {
		ap := d.Airports[icao]
		if ap.Type == positioned.TypeInvalid {
			im.errors.ErrorString("%s: data for unknown airport", icao)
			continue
		}
		if err := im.addAirport(txn, ap, st); err != nil {
			return err
		}
	}

	type navKey struct {
		t        positioned.Type
		ident    string
		lat, lon int
	}
	seen := make(map[navKey]bool)
	unique := func(t positioned.Type, ident string, pos math.Geod) bool {
		// Fixes are often repeated (e.g., terminal waypoints shared by
		// multiple airports).
		k := navKey{t: t, ident: ident, lat: int(math.Round(pos.Lat * 1e4)), lon: int(math.Round(pos.Lon * 1e4))}
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	}

	for _, nav := range d.Navaids {
		if unique(nav.Type, nav.Ident, nav.Pos) {
			if err := im.addNavaid(txn, nav, st); err != nil {
				return err
			}
		}
	}
	for _, fix := range d.Fixes {
		if unique(positioned.TypeFix, fix.Ident, fix.Pos) {
			st.Replaced += im.removeExisting(txn, positioned.TypeFilter(positioned.TypeFix), fix.Ident, fix.Pos, replaceRadiusNM)
			txn.Insert(navcache.Record{Type: positioned.TypeFix, Ident: fix.Ident, Pos: fix.Pos})
			st.Fixes++
		}
	}

	for _, path := range paths {
		if err := txn.StampCacheFile(path); err != nil {
			return err
		}
	}
	return txn.Commit()
}

// removeExisting stages the removal of entities in the cache that are
// replaced by a new one with the given ident at pos. A negative radius
// matches regardless of distance. Airports are removed along with all
// of their runways, comm stations, and so forth.
func (im *Importer) removeExisting(txn *navcache.Transaction, filter *positioned.Filter, ident string, pos math.Geod, radiusNM float64) int {
	n := 0
	for _, p := range im.cache.FindAllWithIdent(ident, filter, true) {
		if radiusNM >= 0 && math.DistanceNM(p.Geod(), pos) > radiusNM {
			continue
		}
		if p.Type().IsAirport() {
			for _, id := range im.cache.AirportItemsOfTypeRange(p.GUID(), positioned.TypeRunway, positioned.TypeLast) {
				txn.Remove(id)
			}
		}
		txn.Remove(p.GUID())
		n++
	}
	return n
}

func (im *Importer) addAirport(txn *navcache.Transaction, ap *Airport, st *Stats) error {
	im.errors.Push(ap.Ident)
	defer im.errors.Pop()

	ports := positioned.TypeRangeFilter(positioned.TypeAirport, positioned.TypeSeaport)
	st.Replaced += im.removeExisting(txn, ports, ap.Ident, ap.Pos, -1)

	id := txn.Insert(navcache.Record{Type: ap.Type, Ident: ap.Ident, Name: ap.Name, Pos: ap.Pos})
	st.Airports++

	ap.useTrueRunwayHeadings()
	runways := make(map[string]positioned.ID)
	for _, rwy := range ap.Runways {
		if _, ok := runways[rwy.Ident]; ok {
			im.errors.ErrorString("runway %s: repeats", rwy.Ident)
			continue
		}
		runways[rwy.Ident] = txn.Insert(runwayRecord(positioned.TypeRunway, rwy, id))
		st.Runways++
	}
	for _, ident := range util.SortedMapKeys(runways) {
		recip := positioned.ReciprocalIdent(ident)
		if rid, ok := runways[recip]; ok && ident < recip {
			if err := txn.SetReciprocal(runways[ident], rid); err != nil {
				return err
			}
		}
	}

	for _, h := range ap.Helipads {
		txn.Insert(runwayRecord(positioned.TypeHelipad, h, id))
		st.Helipads++
	}

	for _, c := range ap.Comms {
		txn.Insert(navcache.Record{Type: c.Type, Ident: c.Ident, Name: c.Name, Freq: c.FreqKHz,
			Airport: id, Pos: ap.Pos})
		st.Comms++
	}

	for _, nav := range ap.ILS {
		rid, ok := runways[nav.Runway]
		if !ok {
			im.errors.ErrorString("%s: unknown runway %q", nav.Ident, nav.Runway)
			continue
		}
		r := navaidRecord(nav)
		r.Airport = id
		if nav.Type == positioned.TypeGS {
			r.Runway = rid
			txn.Insert(r)
			continue
		}
		if err := txn.SetRunwayILS(rid, txn.Insert(r)); err != nil {
			return err
		}
		st.ILS++
	}

	for _, proc := range ap.Procedures {
		proc.Airport = id
		if len(runways) > 0 {
			proc.Runways = slices.DeleteFunc(proc.Runways, func(r string) bool {
				_, ok := runways[r]
				return !ok
			})
		}
		txn.InsertProcedure(proc)
		st.Procedures++
	}

	return nil
}

func runwayRecord(t positioned.Type, rwy Runway, airport positioned.ID) navcache.Record {
	return navcache.Record{
		Type:       t,
		Ident:      rwy.Ident,
		Airport:    airport,
		Pos:        rwy.Center(),
		HeadingDeg: rwy.HeadingDeg,
		LengthM:    rwy.LengthM,
		WidthM:     rwy.WidthM,
		DisplacedM: rwy.DisplacedM,
		StopwayM:   rwy.StopwayM,
		Surface:    rwy.Surface,
	}
}

func navaidRecord(nav Navaid) navcache.Record {
	return navcache.Record{
		Type:     nav.Type,
		Ident:    nav.Ident,
		Name:     nav.Name,
		Pos:      nav.Pos,
		Freq:     int(nav.Freq),
		RangeNM:  nav.RangeNM,
		Multiuse: nav.Multiuse,
	}
}

func (im *Importer) addNavaid(txn *navcache.Transaction, nav Navaid, st *Stats) error {
	st.Replaced += im.removeExisting(txn, positioned.TypeFilter(nav.Type), nav.Ident, nav.Pos, replaceRadiusNM)
	id := txn.Insert(navaidRecord(nav))
	st.Navaids++

	if nav.DME != nil {
		st.Replaced += im.removeExisting(txn, positioned.TypeFilter(nav.DMEType), nav.Ident, *nav.DME, replaceRadiusNM)
		dme := navaidRecord(nav)
		dme.Type, dme.Pos, dme.Name = nav.DMEType, *nav.DME, nav.Name+" DME"
		dme.Multiuse = 0
		dme.Colocated = id
		dmeID := txn.Insert(dme)
		st.Navaids++

		return txn.Update(id, func(r *navcache.Record) { r.Colocated = dmeID })
	}
	return nil
}
