// navcache/backend.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navcache

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/brunoga/deep"

	"github.com/mmp/navdb/positioned"
)

// Snapshot is the complete persisted state of a cache.
type Snapshot struct {
	Records    []Record    `msgpack:"records"`
	Procedures []Procedure `msgpack:"procedures"`
	Stamps     []FileStamp `msgpack:"stamps"`
}

// ChangeSet is the set of writes made by one committed transaction.
type ChangeSet struct {
	Upserts []Record        `msgpack:"upserts,omitempty"`
	Deletes []positioned.ID `msgpack:"deletes,omitempty"`
	// Airports whose procedures are all removed before Procedures are
	// added.
	ClearProcedures []positioned.ID `msgpack:"clear_procs,omitempty"`
	Procedures      []Procedure     `msgpack:"procedures,omitempty"`
	Stamps          []FileStamp     `msgpack:"stamps,omitempty"`
}

func (cs *ChangeSet) Empty() bool {
	return len(cs.Upserts) == 0 && len(cs.Deletes) == 0 && len(cs.ClearProcedures) == 0 &&
		len(cs.Procedures) == 0 && len(cs.Stamps) == 0
}

// Backend is the persistent storage underneath a Cache. Apply must be
// atomic: either all of the changes persist or none do.
type Backend interface {
	Load() (*Snapshot, error)
	Apply(cs *ChangeSet) error
}

// MemoryBackend is a Backend that keeps everything in memory; it is used
// for ephemeral databases and in tests.
type MemoryBackend struct {
	mu         sync.Mutex
	records    map[positioned.ID]Record
	procedures map[ProcedureKey]Procedure
	stamps     map[string]FileStamp
	// Number of calls to Apply.
	Applies int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records:    make(map[positioned.ID]Record),
		procedures: make(map[ProcedureKey]Procedure),
		stamps:     make(map[string]FileStamp),
	}
}

func (m *MemoryBackend) Load() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return deep.MustCopy(SnapshotFromMaps(m.records, m.procedures, m.stamps)), nil
}

func (m *MemoryBackend) Apply(cs *ChangeSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Applies++
	cs.ApplyTo(m.records, m.procedures, m.stamps)
	return nil
}

// ApplyTo applies the change set to maps holding the persisted state.
func (cs *ChangeSet) ApplyTo(records map[positioned.ID]Record, procs map[ProcedureKey]Procedure, stamps map[string]FileStamp) {
	for _, r := range cs.Upserts {
		records[r.ID] = deep.MustCopy(r)
	}
	clearProcs := func(airport positioned.ID) {
		for k := range procs {
			if k.Airport == airport {
				delete(procs, k)
			}
		}
	}
	for _, id := range cs.Deletes {
		delete(records, id)
		clearProcs(id)
	}
	for _, id := range cs.ClearProcedures {
		clearProcs(id)
	}
	for _, p := range cs.Procedures {
		procs[p.Key()] = deep.MustCopy(p)
	}
	for _, st := range cs.Stamps {
		stamps[st.Path] = st
	}
}

// SnapshotFromMaps builds a Snapshot with records in ID order.
func SnapshotFromMaps(records map[positioned.ID]Record, procs map[ProcedureKey]Procedure, stamps map[string]FileStamp) *Snapshot {
	s := &Snapshot{}
	for _, r := range records {
		s.Records = append(s.Records, r)
	}
	slices.SortFunc(s.Records, func(a, b Record) int { return cmp.Compare(a.ID, b.ID) })
	for _, p := range procs {
		s.Procedures = append(s.Procedures, p)
	}
	SortProcedures(s.Procedures)
	for _, st := range stamps {
		s.Stamps = append(s.Stamps, st)
	}
	slices.SortFunc(s.Stamps, func(a, b FileStamp) int { return strings.Compare(a.Path, b.Path) })
	return s
}

// Maps returns the contents of the snapshot as maps, suitable
// for ChangeSet.ApplyTo.
func (s *Snapshot) Maps() (map[positioned.ID]Record, map[ProcedureKey]Procedure, map[string]FileStamp) {
	records := make(map[positioned.ID]Record, len(s.Records))
	for _, r := range s.Records {
		records[r.ID] = r
	}
	procs := make(map[ProcedureKey]Procedure, len(s.Procedures))
	for _, p := range s.Procedures {
		procs[p.Key()] = p
	}
	stamps := make(map[string]FileStamp, len(s.Stamps))
	for _, st := range s.Stamps {
		stamps[st.Path] = st
	}
	return records, procs, stamps
}

// SortProcedures sorts procedures by airport, kind, and ident.
func SortProcedures(p []Procedure) {
	slices.SortFunc(p, func(a, b Procedure) int {
		if c := cmp.Compare(a.Airport, b.Airport); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return strings.Compare(a.Ident, b.Ident)
	})
}
