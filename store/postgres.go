// store/postgres.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/positioned"
)

const schema = `
CREATE TABLE IF NOT EXISTS positioned (
	id      BIGINT PRIMARY KEY,
	type    INTEGER NOT NULL,
	ident   TEXT NOT NULL,
	name    TEXT NOT NULL DEFAULT '',
	lat     DOUBLE PRECISION NOT NULL,
	lon     DOUBLE PRECISION NOT NULL,
	elev_m  DOUBLE PRECISION NOT NULL,
	airport BIGINT NOT NULL DEFAULT 0,
	freq    INTEGER NOT NULL DEFAULT 0,
	data    BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS positioned_ident ON positioned (ident);
CREATE INDEX IF NOT EXISTS positioned_airport ON positioned (airport);

CREATE TABLE IF NOT EXISTS procedures (
	airport BIGINT NOT NULL,
	kind    INTEGER NOT NULL,
	ident   TEXT NOT NULL,
	data    BYTEA NOT NULL,
	PRIMARY KEY (airport, kind, ident)
);

CREATE TABLE IF NOT EXISTS file_stamps (
	path     TEXT PRIMARY KEY,
	mod_time BIGINT NOT NULL,
	size     BIGINT NOT NULL
);`

// positionedRow is the table form of a navcache.Record. The commonly
// queried fields have their own columns; the full record is stored
// msgpack-encoded in Data.
type positionedRow struct {
	ID      int64   `db:"id"`
	Type    int     `db:"type"`
	Ident   string  `db:"ident"`
	Name    string  `db:"name"`
	Lat     float64 `db:"lat"`
	Lon     float64 `db:"lon"`
	ElevM   float64 `db:"elev_m"`
	Airport int64   `db:"airport"`
	Freq    int     `db:"freq"`
	Data    []byte  `db:"data"`
}

type procedureRow struct {
	Airport int64  `db:"airport"`
	Kind    int    `db:"kind"`
	Ident   string `db:"ident"`
	Data    []byte `db:"data"`
}

func rowFromRecord(r navcache.Record) (positionedRow, error) {
	b, err := msgpack.Marshal(r)
	if err != nil {
		return positionedRow{}, err
	}
	return positionedRow{
		ID:      int64(r.ID),
		Type:    int(r.Type),
		Ident:   r.Ident,
		Name:    r.Name,
		Lat:     r.Pos.Lat,
		Lon:     r.Pos.Lon,
		ElevM:   r.Pos.ElevM,
		Airport: int64(r.Airport),
		Freq:    r.Freq,
		Data:    b,
	}, nil
}

func (row positionedRow) record() (navcache.Record, error) {
	var r navcache.Record
	if err := msgpack.Unmarshal(row.Data, &r); err != nil {
		return r, fmt.Errorf("positioned %d: %w", row.ID, err)
	}
	// The columns are authoritative.
	r.ID = positioned.ID(row.ID)
	r.Type = positioned.Type(row.Type)
	r.Ident = row.Ident
	r.Name = row.Name
	r.Pos = math.Geod{Lat: row.Lat, Lon: row.Lon, ElevM: row.ElevM}
	r.Airport = positioned.ID(row.Airport)
	r.Freq = row.Freq
	return r, nil
}

// PostgresStore is a navcache.Backend that keeps the cache in a
// PostgreSQL database.
type PostgresStore struct {
	db      *sqlx.DB
	lg      *log.Logger
	Timeout time.Duration
}

// NewPostgresStore connects to the database with the given DSN and
// creates the tables if they don't already exist.
func NewPostgresStore(dsn string, lg *log.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return NewPostgresStoreFromDB(db, lg)
}

func NewPostgresStoreFromDB(db *sqlx.DB, lg *log.Logger) (*PostgresStore, error) {
	s := &PostgresStore{db: db, lg: lg, Timeout: 30 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: creating schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Load() (*navcache.Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	start := time.Now()
	snap := &navcache.Snapshot{}

	var rows []positionedRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM positioned ORDER BY id`); err != nil {
		return nil, fmt.Errorf("postgres: loading positioned: %w", err)
	}
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		snap.Records = append(snap.Records, r)
	}

	var prows []procedureRow
	if err := s.db.SelectContext(ctx, &prows, `SELECT * FROM procedures`); err != nil {
		return nil, fmt.Errorf("postgres: loading procedures: %w", err)
	}
	for _, row := range prows {
		var p navcache.Procedure
		if err := msgpack.Unmarshal(row.Data, &p); err != nil {
			return nil, fmt.Errorf("procedure %d/%s: %w", row.Airport, row.Ident, err)
		}
		snap.Procedures = append(snap.Procedures, p)
	}
	navcache.SortProcedures(snap.Procedures)

	if err := s.db.SelectContext(ctx, &snap.Stamps, `SELECT path, mod_time, size FROM file_stamps ORDER BY path`); err != nil {
		return nil, fmt.Errorf("postgres: loading file stamps: %w", err)
	}

	s.lg.Info("loaded cache from postgres", slog.Int("records", len(snap.Records)),
		slog.Int("procedures", len(snap.Procedures)), slog.Duration("elapsed", time.Since(start)))

	return snap, nil
}

const (
	upsertPositioned = `
INSERT INTO positioned (id, type, ident, name, lat, lon, elev_m, airport, freq, data)
VALUES (:id, :type, :ident, :name, :lat, :lon, :elev_m, :airport, :freq, :data)
ON CONFLICT (id) DO UPDATE SET
	type = EXCLUDED.type, ident = EXCLUDED.ident, name = EXCLUDED.name,
	lat = EXCLUDED.lat, lon = EXCLUDED.lon, elev_m = EXCLUDED.elev_m,
	airport = EXCLUDED.airport, freq = EXCLUDED.freq, data = EXCLUDED.data`
	upsertProcedure = `
INSERT INTO procedures (airport, kind, ident, data)
VALUES (:airport, :kind, :ident, :data)
ON CONFLICT (airport, kind, ident) DO UPDATE SET data = EXCLUDED.data`
	upsertStamp = `
INSERT INTO file_stamps (path, mod_time, size)
VALUES (:path, :mod_time, :size)
ON CONFLICT (path) DO UPDATE SET mod_time = EXCLUDED.mod_time, size = EXCLUDED.size`
)

// Apply writes the change set in a single database transaction.
func (s *PostgresStore) Apply(cs *navcache.ChangeSet) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer tx.Rollback()

	for _, r := range cs.Upserts {
		row, err := rowFromRecord(r)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertPositioned, row); err != nil {
			return fmt.Errorf("postgres: %s: %w", r.String(), err)
		}
	}

	if len(cs.Deletes) > 0 {
		ids := make([]int64, len(cs.Deletes))
		for i, id := range cs.Deletes {
			ids[i] = int64(id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM positioned WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
			return fmt.Errorf("postgres: deleting: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM procedures WHERE airport = ANY($1)`, pq.Array(ids)); err != nil {
			return fmt.Errorf("postgres: deleting procedures: %w", err)
		}
	}

	if len(cs.ClearProcedures) > 0 {
		ids := make([]int64, len(cs.ClearProcedures))
		for i, id := range cs.ClearProcedures {
			ids[i] = int64(id)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM procedures WHERE airport = ANY($1)`, pq.Array(ids)); err != nil {
			return fmt.Errorf("postgres: clearing procedures: %w", err)
		}
	}

	for _, p := range cs.Procedures {
		b, err := msgpack.Marshal(p)
		if err != nil {
			return err
		}
		row := procedureRow{Airport: int64(p.Airport), Kind: int(p.Kind), Ident: p.Ident, Data: b}
		if _, err := tx.NamedExecContext(ctx, upsertProcedure, row); err != nil {
			return fmt.Errorf("postgres: procedure %s: %w", p.Ident, err)
		}
	}

	for _, st := range cs.Stamps {
		if _, err := tx.NamedExecContext(ctx, upsertStamp, st); err != nil {
			return fmt.Errorf("postgres: stamp %s: %w", st.Path, err)
		}
	}

	return tx.Commit()
}
