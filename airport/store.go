// airport/store.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airport

import (
	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/navcache"
	"github.com/mmp/navdb/octree"
	"github.com/mmp/navdb/positioned"
	"github.com/mmp/navdb/scenery"
)

// Store is the part of the navigation data cache that airports use;
// *navcache.Cache implements it.
type Store interface {
	LoadByID(id positioned.ID) (positioned.Positioned, error)
	FindAllWithIdent(ident string, filter *positioned.Filter, exact bool) []positioned.Positioned
	AirportItemsOfType(airport positioned.ID, t positioned.Type) []positioned.ID
	AirportItemsOfTypeRange(airport positioned.ID, lo, hi positioned.Type) []positioned.ID
	AirportItemWithIdent(airport positioned.ID, t positioned.Type, ident string) positioned.ID
	FindILS(airport positioned.ID, runway, navIdent string) positioned.ID
	Procedures(airport positioned.ID, kind navcache.ProcedureKind) []navcache.Procedure
	IsCachedFileModified(path string) bool
	Begin() *navcache.Transaction
	Tree() *octree.Tree
}

var _ Store = (*navcache.Cache)(nil)

// RunwayWeights control how FindBestRunwayForHeading trades off runway
// size and surface against deviation from the desired heading.
type RunwayWeights struct {
	Length    float64 `json:"length_weight"`
	Width     float64 `json:"width_weight"`
	Surface   float64 `json:"surface_weight"`
	Deviation float64 `json:"deviation_weight"`
}

var DefaultRunwayWeights = RunwayWeights{
	Length:    0.01,
	Width:     0.01,
	Surface:   10,
	Deviation: 1,
}

type Options struct {
	Locator *scenery.Locator
	Logger  *log.Logger
	// Runways shorter than this are excluded from RunwayMap and used as
	// the default for the hard surface filters.
	MinRunwayLengthFt float64
	// Zero value gets DefaultRunwayWeights.
	RunwayWeights RunwayWeights
}

// Environment provides the weather used to pick an active runway.
type Environment interface {
	// Wind returns the direction the wind is blowing from and its speed
	// at the given location; ok is false if there's no information.
	Wind(pos math.Geod) (fromDeg, speedKt float64, ok bool)
}

// FixedWind is an Environment with the same wind everywhere.
type FixedWind struct {
	FromDeg float64
	SpeedKt float64
}

func (w FixedWind) Wind(math.Geod) (float64, float64, bool) {
	return w.FromDeg, w.SpeedKt, true
}
