// navdb/finders.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navdb

import (
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

// FindClosest returns the closest entity to pos within cutoffNM that
// passes the filter, or nil if there is none.
func (db *DB) FindClosest(pos math.Geod, cutoffNM float64, filter *positioned.Filter) (positioned.Positioned, error) {
	found, err := db.FindClosestN(pos, 1, cutoffNM, filter)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// FindClosestN returns up to n entities passing the filter within
// cutoffNM of pos, sorted by increasing distance.
func (db *DB) FindClosestN(pos math.Geod, n int, cutoffNM float64, filter *positioned.Filter) ([]positioned.Positioned, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	found, _ := db.cache.Tree().FindNearestN(math.CartFromGeod(pos), n, math.NMToMeters(cutoffNM), filter, 0)
	return found, nil
}

// FindClosestNPartial is FindClosestN with a time limit; if it is
// reached, the closest entities found so far are returned and partial is
// true.
func (db *DB) FindClosestNPartial(pos math.Geod, n int, cutoffNM float64,
	filter *positioned.Filter) (found []positioned.Positioned, partial bool, err error) {
	if !pos.Valid() {
		return nil, false, positioned.ErrInvalidPosition
	}
	found, partial = db.cache.Tree().FindNearestN(math.CartFromGeod(pos), n, math.NMToMeters(cutoffNM), filter,
		db.cfg.PartialBudget())
	return
}

// FindWithinRange returns all of the entities passing the filter within
// rangeNM of pos, in no particular order.
func (db *DB) FindWithinRange(pos math.Geod, rangeNM float64, filter *positioned.Filter) ([]positioned.Positioned, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	found, _ := db.cache.Tree().FindAllWithinRange(math.CartFromGeod(pos), math.NMToMeters(rangeNM), filter, 0)
	return found, nil
}

// FindWithinRangePartial is FindWithinRange with a time limit; if it is
// reached, the entities found so far are returned and partial is true.
func (db *DB) FindWithinRangePartial(pos math.Geod, rangeNM float64,
	filter *positioned.Filter) (found []positioned.Positioned, partial bool, err error) {
	if !pos.Valid() {
		return nil, false, positioned.ErrInvalidPosition
	}
	found, partial = db.cache.Tree().FindAllWithinRange(math.CartFromGeod(pos), math.NMToMeters(rangeNM), filter,
		db.cfg.PartialBudget())
	return
}

// FindAllWithIdent returns the entities passing the filter whose idents
// match; if exact is false, those with ident as a prefix match.
func (db *DB) FindAllWithIdent(ident string, filter *positioned.Filter, exact bool) []positioned.Positioned {
	return db.cache.FindAllWithIdent(ident, filter, exact)
}

func (db *DB) FindAllWithName(name string, filter *positioned.Filter, exact bool) []positioned.Positioned {
	return db.cache.FindAllWithName(name, filter, exact)
}

// FindFirstWithIdent returns the first entity (in the order they were
// added) with exactly the given ident that passes the filter.
func (db *DB) FindFirstWithIdent(ident string, filter *positioned.Filter) positioned.Positioned {
	if found := db.cache.FindAllWithIdent(ident, filter, true); len(found) > 0 {
		return found[0]
	}
	return nil
}

// FindClosestWithIdent returns the entity with exactly the given ident
// that passes the filter and is closest to pos.
func (db *DB) FindClosestWithIdent(ident string, pos math.Geod, filter *positioned.Filter) (positioned.Positioned, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	found := db.cache.FindAllWithIdent(ident, filter, true)
	if len(found) == 0 {
		return nil, nil
	}
	positioned.SortByRange(found, pos)
	return found[0], nil
}

// SortByRange sorts the entities in place by increasing distance from
// pos.
func (db *DB) SortByRange(items []positioned.Positioned, pos math.Geod) {
	positioned.SortByRange(items, pos)
}

func (db *DB) LoadByID(id positioned.ID) (positioned.Positioned, error) {
	return db.cache.LoadByID(id)
}
