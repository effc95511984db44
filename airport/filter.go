// airport/filter.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package airport

import (
	"github.com/mmp/navdb/positioned"
)

// AirportFilter passes land airports.
func AirportFilter() *positioned.Filter {
	return positioned.TypeFilter(positioned.TypeAirport)
}

// PortsFilter passes airports, heliports, and seaports.
func PortsFilter() *positioned.Filter {
	return positioned.TypeRangeFilter(positioned.TypeAirport, positioned.TypeSeaport)
}

// HardSurfaceFilter passes airports with a hard-surfaced runway at least
// minLengthFt long. A negative length gives the registry's minimum
// runway length.
func (r *Registry) HardSurfaceFilter(minLengthFt float64) *positioned.Filter {
	if minLengthFt < 0 {
		minLengthFt = r.opts.MinRunwayLengthFt
	}
	return AirportFilter().And(func(p positioned.Positioned) bool {
		ap := r.ForEntity(p)
		return ap != nil && ap.HasHardRunwayOfLengthFt(minLengthFt)
	})
}

// TypeRunwayFilter selects one of the airport types; land airports must
// also have a hard runway of at least MinRunwayLengthFt.
type TypeRunwayFilter struct {
	Type              positioned.Type
	MinRunwayLengthFt float64
}

func (r *Registry) NewTypeRunwayFilter() *TypeRunwayFilter {
	return &TypeRunwayFilter{Type: positioned.TypeAirport, MinRunwayLengthFt: r.opts.MinRunwayLengthFt}
}

// FromTypeString sets the type from "airport", "heliport", or "seaport",
// returning false for anything else.
func (f *TypeRunwayFilter) FromTypeString(s string) bool {
	switch s {
	case "airport":
		f.Type = positioned.TypeAirport
	case "heliport":
		f.Type = positioned.TypeHeliport
	case "seaport":
		f.Type = positioned.TypeSeaport
	default:
		return false
	}
	return true
}

func (f *TypeRunwayFilter) Filter(r *Registry) *positioned.Filter {
	t, minLength := f.Type, f.MinRunwayLengthFt
	return positioned.TypeFilter(t).And(func(p positioned.Positioned) bool {
		if p.Type() != positioned.TypeAirport {
			return true
		}
		ap := r.ForEntity(p)
		return ap != nil && ap.HasHardRunwayOfLengthFt(minLength)
	})
}
