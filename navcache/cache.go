// navcache/cache.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package navcache provides the navigation data cache: the authoritative
// store of positioned-entity records, the indices used to find them by
// ident, name, frequency, and owning airport, and the spatial index.
package navcache

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/octree"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

const DefaultEntityCacheSize = 16384

type Options struct {
	// Maximum number of materialized entities to keep around.
	EntityCacheSize int
	Logger          *log.Logger
}

// Cache holds all of the records of a navigation database in memory,
// indexed for lookup, and materializes positioned entities from them on
// demand. Records are owned by the cache; entities handed out hold their
// own copies of the record's data and are kept up to date by committed
// transactions as long as the cache is still tracking them.
//
// Cache is not safe for concurrent mutation; queries may run concurrently
// with each other but not with Commit.
type Cache struct {
	backend Backend
	lg      *log.Logger

	records map[positioned.ID]*Record
	nextID  positioned.ID

	// Upper-cased ident/name -> IDs in increasing (i.e., insertion)
	// order, along with the sorted keys for prefix searches.
	byIdent   map[string][]positioned.ID
	identKeys []string
	byName    map[string][]positioned.ID
	nameKeys  []string
	keysDirty bool

	byAirport map[positioned.ID][]positioned.ID
	byFreq    map[int][]positioned.ID

	procedures map[positioned.ID][]Procedure
	stamps     map[string]FileStamp

	entities *lru.Cache[positioned.ID, positioned.Positioned]
	tree     *octree.Tree
}

// Open creates a Cache holding the contents of the given backend.
func Open(backend Backend, opts Options) (*Cache, error) {
	start := time.Now()
	snap, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("navcache: load: %w", err)
	}

	size := opts.EntityCacheSize
	if size <= 0 {
		size = DefaultEntityCacheSize
	}
	entities, err := lru.New[positioned.ID, positioned.Positioned](size)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		backend:    backend,
		lg:         opts.Logger,
		records:    make(map[positioned.ID]*Record, len(snap.Records)),
		byIdent:    make(map[string][]positioned.ID),
		byName:     make(map[string][]positioned.ID),
		byAirport:  make(map[positioned.ID][]positioned.ID),
		byFreq:     make(map[int][]positioned.ID),
		procedures: make(map[positioned.ID][]Procedure),
		stamps:     make(map[string]FileStamp),
		entities:   entities,
	}
	c.tree = octree.New(c, c.lg)

	// Index in ID order so that the per-key ID lists are sorted.
	slices.SortFunc(snap.Records, func(a, b Record) int { return cmp.Compare(a.ID, b.ID) })
	for i := range snap.Records {
		r := &snap.Records[i]
		c.insertRecord(r)
		c.nextID = max(c.nextID, r.ID)
	}
	for _, p := range snap.Procedures {
		c.procedures[p.Airport] = append(c.procedures[p.Airport], p)
	}
	for _, st := range snap.Stamps {
		c.stamps[st.Path] = st
	}
	c.rebuildKeys()

	c.lg.Info("navcache opened", slog.Int("records", len(c.records)),
		slog.Int("procedures", len(snap.Procedures)),
		slog.Duration("elapsed", time.Since(start)))

	return c, nil
}

// LoadByID returns the entity with the given id; ErrNotFound is returned
// if there is no such entity.
func (c *Cache) LoadByID(id positioned.ID) (positioned.Positioned, error) {
	if p, ok := c.entities.Get(id); ok {
		return p, nil
	}
	r, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%d: %w", id, positioned.ErrNotFound)
	}
	p := materialize(r)
	c.entities.Add(id, p)
	return p, nil
}

// Record returns a copy of the stored record for the given id.
func (c *Cache) Record(id positioned.ID) (Record, bool) {
	if r, ok := c.records[id]; ok {
		return *r, true
	}
	return Record{}, false
}

// Tree returns the spatial index of all of the cache's entities.
func (c *Cache) Tree() *octree.Tree {
	return c.tree
}

func (c *Cache) Len() int {
	return len(c.records)
}

func identKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (c *Cache) loadAll(ids []positioned.ID, filter *positioned.Filter) []positioned.Positioned {
	var result []positioned.Positioned
	for _, id := range ids {
		if r := c.records[id]; r == nil || !filter.PassType(r.Type) {
			continue
		}
		p, err := c.LoadByID(id)
		if err != nil {
			c.lg.Warnf("%d: %v", id, err)
			continue
		}
		if filter.Pass(p) {
			result = append(result, p)
		}
	}
	return result
}

func lookup(m map[string][]positioned.ID, keys []string, key string, exact bool) []positioned.ID {
	if exact {
		return m[key]
	}

	var ids []positioned.ID
	for i := sort.SearchStrings(keys, key); i < len(keys) && strings.HasPrefix(keys[i], key); i++ {
		ids = append(ids, m[keys[i]]...)
	}
	slices.Sort(ids)
	return ids
}

// FindAllWithIdent returns the entities passing the filter whose ident
// matches (if exact is true) or starts with the given string. Matching
// is case insensitive. Results are returned in the order the entities
// were added to the cache.
func (c *Cache) FindAllWithIdent(ident string, filter *positioned.Filter, exact bool) []positioned.Positioned {
	return c.loadAll(lookup(c.byIdent, c.identKeys, identKey(ident), exact), filter)
}

// FindAllWithName is the equivalent of FindAllWithIdent for names.
func (c *Cache) FindAllWithName(name string, filter *positioned.Filter, exact bool) []positioned.Positioned {
	return c.loadAll(lookup(c.byName, c.nameKeys, identKey(name), exact), filter)
}

// AirportItemsOfType returns the IDs of entities of the given type that
// belong to the airport, in insertion order.
func (c *Cache) AirportItemsOfType(airport positioned.ID, t positioned.Type) []positioned.ID {
	return c.AirportItemsOfTypeRange(airport, t, t)
}

// AirportItemsOfTypeRange returns the IDs of entities with types in
// [lo,hi] that belong to the airport, in insertion order.
func (c *Cache) AirportItemsOfTypeRange(airport positioned.ID, lo, hi positioned.Type) []positioned.ID {
	var ids []positioned.ID
	for _, id := range c.byAirport[airport] {
		if t := c.records[id].Type; t >= lo && t <= hi {
			ids = append(ids, id)
		}
	}
	return ids
}

// AirportItemWithIdent returns the ID of the airport's entity with the
// given type and ident, or 0 if there isn't one.
func (c *Cache) AirportItemWithIdent(airport positioned.ID, t positioned.Type, ident string) positioned.ID {
	key := identKey(ident)
	for _, id := range c.byAirport[airport] {
		if r := c.records[id]; r.Type == t && identKey(r.Ident) == key {
			return id
		}
	}
	return 0
}

// FindNavaidsByFreq returns the IDs of navaids passing the filter's type
// test that are on the given frequency. If pos is non-nil, they are
// sorted by increasing distance from it; otherwise they are in insertion
// order.
func (c *Cache) FindNavaidsByFreq(freq positioned.Frequency, pos *math.Geod, filter *positioned.Filter) []positioned.ID {
	var ids []positioned.ID
	for _, id := range c.byFreq[int(freq)] {
		if r := c.records[id]; r.Type.IsNavaid() && filter.PassType(r.Type) {
			ids = append(ids, id)
		}
	}

	if pos != nil {
		p := math.CartFromGeod(*pos)
		slices.SortStableFunc(ids, func(a, b positioned.ID) int {
			return cmp.Compare(math.Dist2(math.CartFromGeod(c.records[a].Pos), p),
				math.Dist2(math.CartFromGeod(c.records[b].Pos), p))
		})
	}
	return ids
}

// FindILS returns the ID of the ILS or localizer with the given ident
// that serves the airport's runway, or 0 if there isn't one.
func (c *Cache) FindILS(airport positioned.ID, runway string, navIdent string) positioned.ID {
	rwyKey, navKey := identKey(runway), identKey(navIdent)
	for _, id := range c.AirportItemsOfTypeRange(airport, positioned.TypeILS, positioned.TypeLOC) {
		r := c.records[id]
		if identKey(r.Ident) != navKey {
			continue
		}
		if rwy, ok := c.records[r.Runway]; ok && identKey(rwy.Ident) == rwyKey {
			return id
		}
	}
	return 0
}

// Procedures returns the airport's stored procedures of the given kind,
// sorted by ident.
func (c *Cache) Procedures(airport positioned.ID, kind ProcedureKind) []Procedure {
	var p []Procedure
	for _, proc := range c.procedures[airport] {
		if proc.Kind == kind {
			p = append(p, proc)
		}
	}
	slices.SortFunc(p, func(a, b Procedure) int { return strings.Compare(a.Ident, b.Ident) })
	return p
}

// CreatePOI adds a point of interest (or user waypoint) and returns its
// ID.
func (c *Cache) CreatePOI(t positioned.Type, ident string, pos math.Geod, name string) (positioned.ID, error) {
	if !pos.Valid() {
		return 0, positioned.ErrInvalidPosition
	}
	txn := c.Begin()
	defer txn.Rollback()

	id := txn.Insert(Record{Type: t, Ident: ident, Name: name, Pos: pos})
	if err := txn.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// RemovePOI removes all entities of the given type with the given ident.
// It returns false if there were none.
func (c *Cache) RemovePOI(t positioned.Type, ident string) (bool, error) {
	ids := lookup(c.byIdent, c.identKeys, identKey(ident), true)
	txn := c.Begin()
	defer txn.Rollback()

	n := 0
	for _, id := range ids {
		if c.records[id].Type == t {
			txn.Remove(id)
			n++
		}
	}
	if n == 0 {
		return false, nil
	}
	return true, txn.Commit()
}

// IsCachedFileModified reports whether the file at path has changed
// since it was stamped with Transaction.StampCacheFile. Files that have
// never been stamped or can't be examined are reported as modified.
func (c *Cache) IsCachedFileModified(path string) bool {
	st, ok := c.stamps[path]
	if !ok {
		return true
	}
	fi, err := os.Stat(path)
	if err != nil {
		return true
	}
	return fi.ModTime().UnixNano() != st.ModTime || fi.Size() != st.Size
}

type Stats struct {
	Records      int
	Materialized int
	Procedures   int
	TreeNodes    int
	TreeDepth    int
}

func (c *Cache) Stats() Stats {
	s := Stats{
		Records:      len(c.records),
		Materialized: c.entities.Len(),
	}
	for _, p := range c.procedures {
		s.Procedures += len(p)
	}
	s.TreeNodes, s.TreeDepth = c.tree.Stats()
	return s
}

///////////////////////////////////////////////////////////////////////////
// Index maintenance

func (c *Cache) insertRecord(r *Record) {
	c.records[r.ID] = r
	c.index(r)
	c.tree.Insert(r.ID, r.Type, math.CartFromGeod(r.Pos))
}

func (c *Cache) index(r *Record) {
	addKey := func(m map[string][]positioned.ID, key string) {
		if key == "" {
			return
		}
		if _, ok := m[key]; !ok {
			c.keysDirty = true
		}
		ids := m[key]
		// Keep the list sorted; new records always have the largest ID
		// so this is almost always an append.
		i, found := slices.BinarySearch(ids, r.ID)
		if !found {
			m[key] = slices.Insert(ids, i, r.ID)
		}
	}
	addKey(c.byIdent, identKey(r.Ident))
	if r.Name != "" {
		addKey(c.byName, identKey(r.Name))
	}

	if r.Airport != 0 {
		ids := c.byAirport[r.Airport]
		if i, found := slices.BinarySearch(ids, r.ID); !found {
			c.byAirport[r.Airport] = slices.Insert(ids, i, r.ID)
		}
	}
	if r.Type.IsNavaid() && r.Freq != 0 {
		ids := c.byFreq[r.Freq]
		if i, found := slices.BinarySearch(ids, r.ID); !found {
			c.byFreq[r.Freq] = slices.Insert(ids, i, r.ID)
		}
	}
}

func (c *Cache) unindex(r *Record) {
	removeID := func(ids []positioned.ID) []positioned.ID {
		if i, found := slices.BinarySearch(ids, r.ID); found {
			return slices.Delete(ids, i, i+1)
		}
		return ids
	}
	removeKey := func(m map[string][]positioned.ID, key string) {
		if ids := removeID(m[key]); len(ids) == 0 {
			delete(m, key)
			c.keysDirty = true
		} else {
			m[key] = ids
		}
	}

	removeKey(c.byIdent, identKey(r.Ident))
	if r.Name != "" {
		removeKey(c.byName, identKey(r.Name))
	}
	if r.Airport != 0 {
		c.byAirport[r.Airport] = removeID(c.byAirport[r.Airport])
	}
	if r.Type.IsNavaid() && r.Freq != 0 {
		c.byFreq[r.Freq] = removeID(c.byFreq[r.Freq])
	}
}

func (c *Cache) rebuildKeys() {
	if !c.keysDirty {
		return
	}
	c.identKeys = util.SortedMapKeys(c.byIdent)
	c.nameKeys = util.SortedMapKeys(c.byName)
	c.keysDirty = false
}
