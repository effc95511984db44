// airport/airport.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package airport provides the Airport aggregate, which loads an
// airport's runways, helipads, taxiways, procedures, tower, and ILS data
// on first use, and the Registry that hands out airports by ident.
package airport

import (
	"fmt"
	"log/slog"

	"github.com/brunoga/deep"

	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/scenery"
)

type loadState int

const (
	notLoaded loadState = iota
	loading
	loaded
)

// lazy tracks one of an airport's lazily-loaded collections.
type lazy struct {
	state loadState
}

// load runs f unless it has already run (or is running) since the last
// reset.
func (l *lazy) load(f func()) {
	if l.state != notLoaded {
		return
	}
	l.state = loading
	f()
	l.state = loaded
}

func (l *lazy) reset() {
	l.state = notLoaded
}

func (l *lazy) loaded() bool {
	return l.state == loaded
}

// Airport is an airport, heliport, or seaport along with the things that
// belong to it. Its collections are loaded from the cache the first time
// they are needed, after first applying any scenery overrides.
//
// Airport is not safe for concurrent use.
type Airport struct {
	*positioned.Airport
	reg *Registry

	thresholdData lazy
	runwayData    lazy
	helipadData   lazy
	taxiwayData   lazy
	procedureData lazy
	towerData     lazy
	ilsData       lazy

	runways   []positioned.ID
	helipads  []positioned.ID
	taxiways  []positioned.ID
	pavements []positioned.ID

	sids       []navcache.Procedure
	stars      []navcache.Procedure
	approaches []navcache.Procedure
}

func newAirport(ap *positioned.Airport, reg *Registry) *Airport {
	return &Airport{Airport: ap, reg: reg}
}

func (ap *Airport) store() Store {
	return ap.reg.store
}

func (ap *Airport) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ap.reg.lg.Warn(msg, slog.String("airport", ap.Ident()))

	ap.reg.errors.Push(ap.Ident())
	ap.reg.errors.ErrorString("%s", msg)
	ap.reg.errors.Pop()
}

// sceneryFile returns the path of the airport's scenery file of the
// given kind if there is one and it differs from what the cache last
// saw.
func (ap *Airport) sceneryFile(kind scenery.Kind) (string, bool) {
	path, ok := ap.reg.opts.Locator.Find(ap.Ident(), kind)
	if !ok || !ap.store().IsCachedFileModified(path) {
		return "", false
	}
	return path, true
}

// commit stamps the scenery file and commits the transaction.
func (ap *Airport) commit(txn *navcache.Transaction, path string) {
	if err := txn.StampCacheFile(path); err != nil {
		ap.warnf("%s: %v", path, err)
	}
	if err := txn.Commit(); err != nil {
		ap.warnf("%s: %v", path, err)
	}
}

func (ap *Airport) loadSceneryDefinitions() {
	ap.thresholdData.load(func() {
		path, ok := ap.sceneryFile(scenery.KindThreshold)
		if !ok {
			return
		}

		th, err := readOverride(ap.reg, path, scenery.ReadThresholds)
		if err != nil {
			ap.warnf("%v", err)
			return
		}

		txn := ap.store().Begin()
		defer txn.Rollback()

		for _, t := range th {
			id := ap.store().AirportItemWithIdent(ap.GUID(), positioned.TypeRunway, t.Runway)
			if id == 0 {
				ap.reg.lg.Debugf("%s: runway %s in threshold data not found", ap.Ident(), t.Runway)
				continue
			}

			// Thresholds are at field elevation.
			pos := t.Pos
			pos.ElevM = ap.Geod().ElevM
			if err := txn.UpdateRunwayThreshold(id, pos, t.HeadingDeg, t.DisplacedM, t.StopwayM); err != nil {
				ap.warnf("%s: runway %s: %v", path, t.Runway, err)
			}
		}

		ap.commit(txn, path)
	})
}

func (ap *Airport) loadRunways() {
	ap.runwayData.load(func() {
		ap.loadSceneryDefinitions()
		ap.runways = ap.store().AirportItemsOfType(ap.GUID(), positioned.TypeRunway)
	})
}

func (ap *Airport) loadHelipads() {
	ap.helipadData.load(func() {
		ap.loadSceneryDefinitions()
		ap.helipads = ap.store().AirportItemsOfType(ap.GUID(), positioned.TypeHelipad)
	})
}

func (ap *Airport) loadTaxiways() {
	ap.taxiwayData.load(func() {
		ap.taxiways = ap.store().AirportItemsOfType(ap.GUID(), positioned.TypeTaxiway)
		ap.pavements = ap.store().AirportItemsOfType(ap.GUID(), positioned.TypePavement)
	})
}

func (ap *Airport) loadProcedures() {
	ap.procedureData.load(func() {
		if path, ok := ap.sceneryFile(scenery.KindProcedures); ok {
			if procs, err := readOverride(ap.reg, path, scenery.ReadProcedures); err != nil {
				ap.warnf("%v", err)
			} else {
				ap.storeProcedures(path, procs)
			}
		}

		ap.sids = deep.MustCopy(ap.store().Procedures(ap.GUID(), navcache.ProcedureSID))
		ap.stars = deep.MustCopy(ap.store().Procedures(ap.GUID(), navcache.ProcedureSTAR))
		ap.approaches = deep.MustCopy(ap.store().Procedures(ap.GUID(), navcache.ProcedureApproach))
	})
}

func (ap *Airport) storeProcedures(path string, procs *scenery.Procedures) {
	txn := ap.store().Begin()
	defer txn.Rollback()

	txn.ClearProcedures(ap.GUID())
	add := func(kind navcache.ProcedureKind, defs []scenery.ProcedureDef) {
		for _, def := range defs {
			for _, rwy := range def.Runways {
				if !ap.HasRunwayWithIdent(rwy) {
					ap.warnf("%s %s: runway %s not found", kind, def.Ident, rwy)
				}
			}
			txn.InsertProcedure(navcache.Procedure{
				Airport:   ap.GUID(),
				Kind:      kind,
				Ident:     def.Ident,
				Type:      def.Type,
				Runways:   def.Runways,
				Waypoints: def.Waypoints,
			})
		}
	}
	add(navcache.ProcedureSID, procs.SIDs)
	add(navcache.ProcedureSTAR, procs.STARs)
	add(navcache.ProcedureApproach, procs.Approaches)

	ap.commit(txn, path)
}

func (ap *Airport) validateTowerData() {
	ap.towerData.load(func() {
		path, ok := ap.sceneryFile(scenery.KindTower)
		if !ok {
			return
		}

		twr, err := readOverride(ap.reg, path, scenery.ReadTower)
		if err != nil {
			ap.warnf("%v", err)
			return
		}

		// The tower's elevation is given relative to the field.
		pos := twr.Pos
		pos.ElevM += ap.Geod().ElevM

		txn := ap.store().Begin()
		defer txn.Rollback()

		if towers := ap.store().AirportItemsOfType(ap.GUID(), positioned.TypeTower); len(towers) == 0 {
			_, err = txn.InsertTower(ap.GUID(), pos)
		} else {
			err = txn.UpdatePosition(towers[0], pos)
		}
		if err != nil {
			ap.warnf("%s: %v", path, err)
			return
		}

		ap.commit(txn, path)
	})
}

// validateILSData merges the airport's ILS scenery file into the cache.
// It returns true if anything was merged.
func (ap *Airport) validateILSData() bool {
	merged := false
	ap.ilsData.load(func() {
		path, ok := ap.sceneryFile(scenery.KindILS)
		if !ok {
			return
		}

		ils, err := readOverride(ap.reg, path, scenery.ReadILS)
		if err != nil {
			ap.warnf("%v", err)
			return
		}

		txn := ap.store().Begin()
		defer txn.Rollback()

		for _, i := range ils {
			// Match on both the runway and the navaid ident; some runways
			// have more than one ILS and sometimes both ends of a runway
			// share an ident.
			id := ap.store().FindILS(ap.GUID(), i.Runway, i.NavIdent)
			if id == 0 {
				ap.reg.lg.Infof("%s: ILS data for unknown runway/navaid %s/%s", ap.Ident(), i.Runway, i.NavIdent)
				continue
			}
			if err := txn.UpdateILS(id, i.Pos, i.HeadingDeg); err != nil {
				ap.warnf("%s: %s/%s: %v", path, i.Runway, i.NavIdent, err)
			}
		}

		ap.commit(txn, path)
		merged = true
	})
	return merged
}

// Refresh arranges for collections whose scenery files have changed
// since they were loaded to be reloaded on next use.
func (ap *Airport) Refresh() {
	modified := func(kind scenery.Kind) bool {
		_, ok := ap.sceneryFile(kind)
		return ok
	}

	if modified(scenery.KindThreshold) {
		ap.thresholdData.reset()
		ap.runwayData.reset()
		ap.helipadData.reset()
	}
	if modified(scenery.KindTower) {
		ap.towerData.reset()
	}
	if modified(scenery.KindILS) {
		ap.ilsData.reset()
	}
	if modified(scenery.KindProcedures) {
		ap.procedureData.reset()
	}
}

func load[T positioned.Positioned](reg *Registry, id positioned.ID) (T, bool) {
	var zero T
	p, err := reg.store.LoadByID(id)
	if err != nil {
		reg.lg.Warnf("%d: %v", id, err)
		return zero, false
	}
	t, ok := p.(T)
	if !ok {
		reg.lg.Warnf("%d: unexpected entity type %T", id, p)
		return zero, false
	}
	return t, true
}

func loadAll[T positioned.Positioned](reg *Registry, ids []positioned.ID) []T {
	var result []T
	for _, id := range ids {
		if t, ok := load[T](reg, id); ok {
			result = append(result, t)
		}
	}
	return result
}
