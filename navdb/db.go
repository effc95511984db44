// navdb/db.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package navdb provides DB, which ties together the navigation data
// cache, the airport registry, and navaid lookup, and answers the usual
// questions about what's near a position or has a given ident.
package navdb

import (
	"context"
	"io"
	"log/slog"

	"github.com/mmp/navdb/airport"
	"github.com/mmp/navdb/importer"
	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/navlist"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/scenery"
	"github.com/mmp/navdb/store"
)

// DB is a navigation database. It is not safe for concurrent use.
type DB struct {
	cfg      Config
	lg       *log.Logger
	backend  navcache.Backend
	cache    *navcache.Cache
	airports *airport.Registry
	navaids  *navlist.NavList
	tacans   *navlist.TACANList
}

// Open opens the database using the backend specified in the
// configuration: PostgreSQL if PostgresDSN is set and the cache file
// otherwise.
func Open(cfg Config, lg *log.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend navcache.Backend
	switch {
	case cfg.PostgresDSN != "":
		pg, err := store.NewPostgresStore(cfg.PostgresDSN, lg)
		if err != nil {
			return nil, err
		}
		backend = pg
	case cfg.CacheFile != "":
		backend = store.NewFileStore(cfg.CacheFile, lg)
	default:
		return nil, ErrNoBackend
	}

	db, err := OpenWithBackend(backend, cfg, lg)
	if err != nil {
		if c, ok := backend.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return db, nil
}

// OpenWithBackend opens the database using the given backend; the
// configuration's backend settings are ignored.
func OpenWithBackend(backend navcache.Backend, cfg Config, lg *log.Logger) (*DB, error) {
	cfg.CacheFile, cfg.PostgresDSN = "", ""
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := navcache.Open(backend, navcache.Options{EntityCacheSize: cfg.EntityCacheSize, Logger: lg})
	if err != nil {
		return nil, err
	}

	db := &DB{
		cfg:     cfg,
		lg:      lg,
		backend: backend,
		cache:   cache,
		navaids: navlist.New(cache, lg),
		tacans:  navlist.NewStandardTACANList(),
	}
	db.resetAirports()

	st := cache.Stats()
	lg.Info("navdb opened", slog.Int("records", st.Records), slog.Int("procedures", st.Procedures),
		slog.Any("scenery_paths", cfg.SceneryPaths))

	return db, nil
}

func (db *DB) resetAirports() {
	db.airports = airport.NewRegistry(db.cache, airport.Options{
		Locator:           scenery.NewLocator(db.cfg.SceneryPaths...),
		Logger:            db.lg,
		MinRunwayLengthFt: db.cfg.MinRunwayLengthFt,
		RunwayWeights:     db.cfg.RunwaySearch,
	})
}

// Close closes the backend, if it needs closing.
func (db *DB) Close() error {
	if c, ok := db.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (db *DB) Config() Config                { return db.cfg }
func (db *DB) Cache() *navcache.Cache        { return db.cache }
func (db *DB) Airports() *airport.Registry   { return db.airports }
func (db *DB) NavList() *navlist.NavList     { return db.navaids }
func (db *DB) TACANList() *navlist.TACANList { return db.tacans }
func (db *DB) Logger() *log.Logger           { return db.lg }

// Import adds the navigation data in the given files to the database;
// see importer.Importer.Import. Airports handed out before the import
// should not be used afterward.
func (db *DB) Import(ctx context.Context, force bool, paths ...string) (importer.Stats, []string, error) {
	im := importer.New(db.cache, db.lg)
	st, err := im.Import(ctx, force, paths...)
	if err != nil {
		return st, im.Warnings(), err
	}
	if st != (importer.Stats{}) {
		db.resetAirports()
	}
	return st, im.Warnings(), nil
}

// Airport returns the airport with the given ident or ErrUnknownAirport.
func (db *DB) Airport(ident string) (*airport.Airport, error) {
	return db.airports.GetByIdent(ident)
}

// CreateUserWaypoint adds a waypoint with the given ident at pos. If a
// user waypoint with that ident already exists, it is returned and
// nothing is created.
func (db *DB) CreateUserWaypoint(ident string, pos math.Geod) (positioned.Positioned, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	if wps := db.cache.FindAllWithIdent(ident, positioned.TypeFilter(positioned.TypeWaypoint), true); len(wps) > 0 {
		db.lg.Warn("user waypoint already exists", slog.String("ident", ident),
			slog.Any("existing", wps[0].Geod()), slog.Any("requested", pos))
		return wps[0], nil
	}

	id, err := db.cache.CreatePOI(positioned.TypeWaypoint, ident, pos, "")
	if err != nil {
		return nil, err
	}
	return db.cache.LoadByID(id)
}

// DeleteUserWaypoint removes the user waypoint with the given ident. It
// returns false if there was no such waypoint.
func (db *DB) DeleteUserWaypoint(ident string) (bool, error) {
	return db.cache.RemovePOI(positioned.TypeWaypoint, ident)
}
