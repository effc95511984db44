// airport/registry.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/scenery"
	"github.com/mmp/navdb/util"
)

// Registry hands out Airports, remembering the result of each ident
// lookup (including lookups that found nothing) so that each ident is
// only searched for once.
//
// Registry is not safe for concurrent use.
type Registry struct {
	store Store
	opts  Options
	lg    *log.Logger

	byIdent map[string]*Airport
	byID    map[positioned.ID]*Airport

	// Scenery files parsed ahead of time by Preload, keyed by path.
	parsed map[string]parseResult

	errors util.ErrorLogger
}

type parseResult struct {
	v   any
	err error
}

func NewRegistry(store Store, opts Options) *Registry {
	if opts.RunwayWeights == (RunwayWeights{}) {
		opts.RunwayWeights = DefaultRunwayWeights
	}
	return &Registry{
		store:   store,
		opts:    opts,
		lg:      opts.Logger,
		byIdent: make(map[string]*Airport),
		byID:    make(map[positioned.ID]*Airport),
		parsed:  make(map[string]parseResult),
	}
}

// FindByIdent returns the airport, heliport, or seaport with the given
// ident, or nil if there isn't one.
func (r *Registry) FindByIdent(ident string) *Airport {
	if ap, ok := r.byIdent[ident]; ok {
		return ap
	}

	var ap *Airport
	if ports := r.store.FindAllWithIdent(ident, PortsFilter(), true); len(ports) > 0 {
		ap = r.ForEntity(ports[0])
	}
	r.byIdent[ident] = ap
	return ap
}

// GetByIdent is like FindByIdent but returns ErrUnknownAirport if there
// is no such airport.
func (r *Registry) GetByIdent(ident string) (*Airport, error) {
	if ap := r.FindByIdent(ident); ap != nil {
		return ap, nil
	}
	return nil, fmt.Errorf("%s: %w", ident, ErrUnknownAirport)
}

// ForEntity returns the Airport for the given airport entity; nil is
// returned if p isn't an airport.
func (r *Registry) ForEntity(p positioned.Positioned) *Airport {
	if ap, ok := p.(*Airport); ok {
		return ap
	}
	pa, ok := p.(*positioned.Airport)
	if !ok {
		return nil
	}
	if ap, ok := r.byID[pa.GUID()]; ok {
		return ap
	}
	ap := newAirport(pa, r)
	r.byID[pa.GUID()] = ap
	return ap
}

// FindClosest returns the closest airport to pos within cutoffNM that
// passes the filter; AirportFilter is used if filter is nil.
func (r *Registry) FindClosest(pos math.Geod, cutoffNM float64, filter *positioned.Filter) (*Airport, error) {
	if !pos.Valid() {
		return nil, positioned.ErrInvalidPosition
	}
	if filter == nil {
		filter = AirportFilter()
	}
	found, _ := r.store.Tree().FindNearestN(math.CartFromGeod(pos), 1, math.NMToMeters(cutoffNM), filter, 0)
	if len(found) == 0 {
		return nil, nil
	}
	return r.ForEntity(found[0]), nil
}

// Refresh calls Refresh on each airport that has been handed out.
func (r *Registry) Refresh() {
	for _, ap := range r.byID {
		ap.Refresh()
	}
}

// Warnings returns the data problems found while applying scenery
// overrides.
func (r *Registry) Warnings() []string {
	return r.errors.Errors()
}

// Preload parses the modified scenery files of the given airports in
// parallel so that they are ready when the airports first need them.
// Unknown idents are ignored. Errors in individual files are reported
// when the airport loads them.
func (r *Registry) Preload(ctx context.Context, idents []string) error {
	type job struct {
		path string
		kind scenery.Kind
	}

	var jobs []job
	for _, ident := range idents {
		ap := r.FindByIdent(ident)
		if ap == nil {
			continue
		}
		for _, kind := range []scenery.Kind{scenery.KindThreshold, scenery.KindTower, scenery.KindILS, scenery.KindProcedures} {
			if path, ok := ap.sceneryFile(kind); ok {
				if _, ok := r.parsed[path]; !ok {
					jobs = append(jobs, job{path: path, kind: kind})
				}
			}
		}
	}

	start := time.Now()
	results := make([]parseResult, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, j := range jobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			switch j.kind {
			case scenery.KindThreshold:
				results[i].v, results[i].err = scenery.ReadThresholds(j.path)
			case scenery.KindTower:
				results[i].v, results[i].err = scenery.ReadTower(j.path)
			case scenery.KindILS:
				results[i].v, results[i].err = scenery.ReadILS(j.path)
			case scenery.KindProcedures:
				results[i].v, results[i].err = scenery.ReadProcedures(j.path)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, j := range jobs {
		r.parsed[j.path] = results[i]
	}
	r.lg.Info("preloaded scenery", slog.Int("airports", len(idents)), slog.Int("files", len(jobs)),
		slog.Duration("elapsed", time.Since(start)))

	return nil
}

// readOverride returns the contents of a scenery file, using the result
// from Preload if there is one.
func readOverride[T any](r *Registry, path string, read func(string) (T, error)) (T, error) {
	if pr, ok := r.parsed[path]; ok {
		delete(r.parsed, path)
		if pr.err != nil {
			var zero T
			return zero, pr.err
		}
		if v, ok := pr.v.(T); ok {
			return v, nil
		}
	}
	return read(path)
}
