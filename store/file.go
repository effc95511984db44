// store/file.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package store provides persistent backends for the navigation data
// cache.
package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/util"
)

// FileStore keeps the cache in a zstd-compressed msgpack snapshot file
// along with a journal of the change sets committed since the snapshot
// was written. Each journal entry is a 4-byte little-endian length
// followed by the msgpack-encoded change set; a truncated final entry
// (e.g., from a crash mid-write) is cut off when the journal is loaded so
// that later entries are appended after the last complete one.
type FileStore struct {
	path        string
	journalPath string
	lg          *log.Logger

	mu      sync.Mutex
	journal *os.File
	// Current contents, maintained so that Compact can write a new
	// snapshot.
	records map[positioned.ID]navcache.Record
	procs   map[navcache.ProcedureKey]navcache.Procedure
	stamps  map[string]navcache.FileStamp
	// Number of change sets in the journal.
	pending int
}

func NewFileStore(path string, lg *log.Logger) *FileStore {
	return &FileStore{
		path:        path,
		journalPath: path + ".journal",
		lg:          lg,
	}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (*navcache.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snap navcache.Snapshot
	if _, err := util.RetrieveObject(f.path, &snap); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	f.records, f.procs, f.stamps = snap.Maps()

	n, err := f.replayJournal()
	if err != nil {
		return nil, err
	}
	f.pending = n
	if n > 0 {
		f.lg.Info("replayed journal", slog.String("path", f.journalPath), slog.Int("change_sets", n))
	}

	return navcache.SnapshotFromMaps(f.records, f.procs, f.stamps), nil
}

func (f *FileStore) replayJournal() (int, error) {
	jf, err := os.Open(f.journalPath)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	defer jf.Close()

	r := bufio.NewReader(jf)
	n := 0
	var offset int64 // end of the last complete entry
	for {
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			} else if errors.Is(err, io.ErrUnexpectedEOF) {
				return n, f.truncateJournal(offset)
			}
			return n, err
		}

		b := make([]byte, length)
		if _, err := io.ReadFull(r, b); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return n, f.truncateJournal(offset)
			}
			return n, err
		}

		var cs navcache.ChangeSet
		if err := msgpack.Unmarshal(b, &cs); err != nil {
			return n, fmt.Errorf("%s: entry %d: %w", f.journalPath, n, err)
		}
		cs.ApplyTo(f.records, f.procs, f.stamps)
		offset += 4 + int64(length)
		n++
	}
}

func (f *FileStore) truncateJournal(offset int64) error {
	f.lg.Warnf("%s: dropping truncated journal entry at offset %d", f.journalPath, offset)
	if err := os.Truncate(f.journalPath, offset); err != nil {
		return fmt.Errorf("%s: %w", f.journalPath, err)
	}
	return nil
}

// Apply appends the change set to the journal and syncs it to disk.
func (f *FileStore) Apply(cs *navcache.ChangeSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.records == nil {
		return errors.New("FileStore: Apply called before Load")
	}

	b, err := msgpack.Marshal(cs)
	if err != nil {
		return err
	}

	if f.journal == nil {
		if err := os.MkdirAll(filepath.Dir(f.journalPath), 0o755); err != nil {
			return err
		}
		f.journal, err = os.OpenFile(f.journalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
	}

	entry := binary.LittleEndian.AppendUint32(nil, uint32(len(b)))
	entry = append(entry, b...)
	if _, err := f.journal.Write(entry); err != nil {
		return err
	}
	if err := f.journal.Sync(); err != nil {
		return err
	}

	cs.ApplyTo(f.records, f.procs, f.stamps)
	f.pending++
	return nil
}

// Pending returns the number of change sets in the journal.
func (f *FileStore) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Compact writes a new snapshot containing everything in the journal and
// then removes the journal.
func (f *FileStore) Compact() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.records == nil {
		return errors.New("FileStore: Compact called before Load")
	}

	snap := navcache.SnapshotFromMaps(maps.Clone(f.records), maps.Clone(f.procs), maps.Clone(f.stamps))
	if err := util.StoreObject(f.path, snap); err != nil {
		return err
	}

	if f.journal != nil {
		f.journal.Close()
		f.journal = nil
	}
	if err := os.Remove(f.journalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f.lg.Info("compacted cache", slog.String("path", f.path), slog.Int("records", len(f.records)),
		slog.Int("change_sets", f.pending))
	f.pending = 0
	return nil
}

// Close compacts the store if there are pending change sets and
// releases the journal.
func (f *FileStore) Close() error {
	if f.Pending() > 0 {
		if err := f.Compact(); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.journal != nil {
		err := f.journal.Close()
		f.journal = nil
		return err
	}
	return nil
}
