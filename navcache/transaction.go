// navcache/transaction.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navcache

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/brunoga/deep"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

// Transaction buffers a set of writes to the cache. None of them are
// visible to queries until Commit, and none of them persist if the
// transaction is rolled back or simply abandoned. The usual pattern is
//
//	txn := cache.Begin()
//	defer txn.Rollback()
//	... writes ...
//	return txn.Commit()
type Transaction struct {
	c    *Cache
	done bool

	// Staged copies of new and modified records, in the order they were
	// first touched.
	staged     map[positioned.ID]*Record
	order      []positioned.ID
	deletes    map[positioned.ID]bool
	clearProcs []positioned.ID
	procs      []Procedure
	stamps     []FileStamp
}

func (c *Cache) Begin() *Transaction {
	return &Transaction{
		c:       c,
		staged:  make(map[positioned.ID]*Record),
		deletes: make(map[positioned.ID]bool),
	}
}

// record returns the staged copy of the record with the given id, making
// one if necessary.
func (t *Transaction) record(id positioned.ID) (*Record, error) {
	if r, ok := t.staged[id]; ok {
		return r, nil
	}
	r, ok := t.c.records[id]
	if !ok || t.deletes[id] {
		return nil, fmt.Errorf("%d: %w", id, positioned.ErrNotFound)
	}
	cp := deep.MustCopy(*r)
	t.staged[id] = &cp
	t.order = append(t.order, id)
	return &cp, nil
}

// peek returns the transaction's view of the record without staging it.
func (t *Transaction) peek(id positioned.ID) (*Record, bool) {
	if r, ok := t.staged[id]; ok {
		return r, true
	}
	if t.deletes[id] {
		return nil, false
	}
	r, ok := t.c.records[id]
	return r, ok
}

// Insert stages a new record and returns the ID it has been assigned.
func (t *Transaction) Insert(r Record) positioned.ID {
	t.c.nextID++
	r.ID = t.c.nextID
	cp := deep.MustCopy(r)
	t.staged[r.ID] = &cp
	t.order = append(t.order, r.ID)
	return r.ID
}

// Update stages an arbitrary modification to an existing record. The
// record's ident and type may not be changed.
func (t *Transaction) Update(id positioned.ID, update func(r *Record)) error {
	r, err := t.record(id)
	if err != nil {
		return err
	}
	ident, typ := r.Ident, r.Type
	update(r)
	if r.Ident != ident || r.Type != typ || r.ID != id {
		r.Ident, r.Type, r.ID = ident, typ, id
		return ErrImmutableField
	}
	if !r.Pos.Valid() {
		return positioned.ErrInvalidPosition
	}
	return nil
}

// UpdatePosition moves the entity with the given id.
func (t *Transaction) UpdatePosition(id positioned.ID, pos math.Geod) error {
	if !pos.Valid() {
		return positioned.ErrInvalidPosition
	}
	r, err := t.record(id)
	if err != nil {
		return err
	}
	r.Pos = pos
	return nil
}

// UpdateRunwayThreshold sets a runway's heading, displaced threshold, and
// stopway and moves it so that its start is at threshold. The runway's
// length is preserved.
func (t *Transaction) UpdateRunwayThreshold(id positioned.ID, threshold math.Geod, hdg, displacedM, stopwayM float64) error {
	if !threshold.Valid() {
		return positioned.ErrInvalidPosition
	}
	r, err := t.record(id)
	if err != nil {
		return err
	}
	if r.Type != positioned.TypeRunway {
		return fmt.Errorf("%s: %w", r, ErrTypeMismatch)
	}

	r.HeadingDeg = hdg
	r.DisplacedM = displacedM
	r.StopwayM = stopwayM
	r.Pos = math.Offset(threshold, hdg, r.LengthM/2)
	r.Pos.ElevM = threshold.ElevM
	return nil
}

// InsertTower adds a control tower for the given airport.
func (t *Transaction) InsertTower(airport positioned.ID, pos math.Geod) (positioned.ID, error) {
	if !pos.Valid() {
		return 0, positioned.ErrInvalidPosition
	}
	ap, ok := t.peek(airport)
	if !ok || !ap.Type.IsAirport() {
		return 0, fmt.Errorf("%d: %w", airport, positioned.ErrNotFound)
	}
	return t.Insert(Record{Type: positioned.TypeTower, Ident: ap.Ident, Pos: pos, Airport: airport}), nil
}

// UpdateILS sets the position and localizer course of an ILS or
// localizer.
func (t *Transaction) UpdateILS(id positioned.ID, pos math.Geod, hdg float64) error {
	if !pos.Valid() {
		return positioned.ErrInvalidPosition
	}
	r, err := t.record(id)
	if err != nil {
		return err
	}
	if r.Type != positioned.TypeILS && r.Type != positioned.TypeLOC {
		return fmt.Errorf("%s: %w", r, ErrTypeMismatch)
	}
	r.Pos = pos
	r.Multiuse = hdg
	return nil
}

// SetReciprocal records that the two runways are opposite ends of the
// same physical runway.
func (t *Transaction) SetReciprocal(a, b positioned.ID) error {
	ra, err := t.record(a)
	if err != nil {
		return err
	}
	rb, err := t.record(b)
	if err != nil {
		return err
	}
	ra.Reciprocal, rb.Reciprocal = b, a
	return nil
}

// SetRunwayILS associates an ILS or localizer with a runway.
func (t *Transaction) SetRunwayILS(runway, ils positioned.ID) error {
	rr, err := t.record(runway)
	if err != nil {
		return err
	}
	ri, err := t.record(ils)
	if err != nil {
		return err
	}
	rr.ILS = ils
	ri.Runway = runway
	if ri.Airport == 0 {
		ri.Airport = rr.Airport
	}
	return nil
}

// InsertProcedure adds a procedure, replacing any existing one for the
// same airport with the same kind and ident.
func (t *Transaction) InsertProcedure(p Procedure) {
	t.procs = append(t.procs, deep.MustCopy(p))
}

// ClearProcedures removes all of the airport's procedures, including
// any added earlier in the transaction.
func (t *Transaction) ClearProcedures(airport positioned.ID) {
	t.procs = slices.DeleteFunc(t.procs, func(p Procedure) bool { return p.Airport == airport })
	if !slices.Contains(t.clearProcs, airport) {
		t.clearProcs = append(t.clearProcs, airport)
	}
}

// Remove stages the removal of the entity with the given id.
func (t *Transaction) Remove(id positioned.ID) {
	if _, ok := t.staged[id]; ok {
		delete(t.staged, id)
		t.order = slices.DeleteFunc(t.order, func(o positioned.ID) bool { return o == id })
	}
	if _, ok := t.c.records[id]; ok {
		t.deletes[id] = true
	}
}

// StampCacheFile records the current modification time and size of the
// file so that Cache.IsCachedFileModified reports false until it changes.
func (t *Transaction) StampCacheFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	t.stamps = append(t.stamps, FileStamp{Path: path, ModTime: fi.ModTime().UnixNano(), Size: fi.Size()})
	return nil
}

// Rollback discards the transaction's writes. It may safely be called
// after Commit, in which case it does nothing.
func (t *Transaction) Rollback() {
	if t.done {
		return
	}
	t.done = true
	t.staged, t.order, t.deletes, t.clearProcs, t.procs, t.stamps = nil, nil, nil, nil, nil, nil
}

// Commit persists the transaction's writes through the cache's backend
// and then makes them visible to queries. If the backend fails, nothing
// is changed.
func (t *Transaction) Commit() error {
	if t.done {
		return ErrTransactionDone
	}
	t.done = true

	cs := &ChangeSet{ClearProcedures: t.clearProcs, Procedures: t.procs, Stamps: t.stamps}
	for _, id := range t.order {
		cs.Upserts = append(cs.Upserts, *t.staged[id])
	}
	for id := range t.deletes {
		cs.Deletes = append(cs.Deletes, id)
	}
	slices.Sort(cs.Deletes)
	if cs.Empty() {
		return nil
	}

	if err := t.c.backend.Apply(cs); err != nil {
		return fmt.Errorf("navcache: commit: %w", err)
	}
	t.c.apply(cs)
	return nil
}

func (c *Cache) apply(cs *ChangeSet) {
	for _, id := range cs.Deletes {
		r, ok := c.records[id]
		if !ok {
			continue
		}
		c.unindex(r)
		c.tree.Remove(id, math.CartFromGeod(r.Pos))
		c.entities.Remove(id)
		delete(c.records, id)
		delete(c.procedures, id)
	}

	for i := range cs.Upserts {
		r := &cs.Upserts[i]
		old, ok := c.records[r.ID]
		if !ok {
			c.insertRecord(r)
			continue
		}

		c.unindex(old)
		c.records[r.ID] = r
		c.index(r)
		if oldCart, newCart := math.CartFromGeod(old.Pos), math.CartFromGeod(r.Pos); oldCart != newCart {
			c.tree.Move(r.ID, oldCart, newCart)
		}
		if p, ok := c.entities.Peek(r.ID); ok {
			if err := refresh(p, r); err != nil {
				c.lg.Warn("unable to refresh entity", slog.Any("record", r), slog.Any("error", err))
				c.entities.Remove(r.ID)
			}
		}
	}

	for _, id := range cs.ClearProcedures {
		delete(c.procedures, id)
	}
	for _, p := range cs.Procedures {
		procs := slices.DeleteFunc(c.procedures[p.Airport], func(q Procedure) bool { return q.Key() == p.Key() })
		c.procedures[p.Airport] = append(procs, p)
	}
	for _, st := range cs.Stamps {
		c.stamps[st.Path] = st
	}

	c.rebuildKeys()
}
