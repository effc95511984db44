// navlist/filter.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package navlist

import (
	"strings"

	"github.com/mmp/navdb/positioned"
)

// TypeFilter returns a filter for navaids of the given type; TypeInvalid
// gives all of the radio navaids from NDBs through glideslopes.
func TypeFilter(t positioned.Type) *positioned.Filter {
	if t == positioned.TypeInvalid {
		return positioned.TypeRangeFilter(positioned.TypeNDB, positioned.TypeGS)
	}
	return positioned.TypeRangeFilter(t, t)
}

func TypeRangeFilter(min, max positioned.Type) *positioned.Filter {
	return positioned.TypeRangeFilter(min, max)
}

// FilterFromTypeString returns the filter for one of "any", "fix",
// "vor", "ndb", "ils", "dme", or "tacan".
func FilterFromTypeString(s string) (*positioned.Filter, bool) {
	var t positioned.Type
	switch s {
	case "any":
		t = positioned.TypeInvalid
	case "fix":
		t = positioned.TypeFix
	case "vor":
		t = positioned.TypeVOR
	case "ndb":
		t = positioned.TypeNDB
	case "ils":
		t = positioned.TypeILS
	case "dme":
		t = positioned.TypeDME
	case "tacan":
		t = positioned.TypeTACAN
	default:
		return nil, false
	}
	return TypeFilter(t), true
}

func LocFilter() *positioned.Filter {
	return positioned.TypeRangeFilter(positioned.TypeILS, positioned.TypeLOC)
}

func NDBFilter() *positioned.Filter {
	return TypeFilter(positioned.TypeNDB)
}

// NavFilter passes VORs and localizers.
func NavFilter() *positioned.Filter {
	return positioned.TypeRangeFilter(positioned.TypeVOR, positioned.TypeLOC)
}

// TACANFilter passes TACANs as well as DMEs that are part of a TACAN or
// VORTAC, which are recognized by name.
func TACANFilter() *positioned.Filter {
	return positioned.PredicateFilter(positioned.TypeDME, positioned.TypeTACAN, func(p positioned.Positioned) bool {
		if p.Type() == positioned.TypeTACAN {
			return true
		}
		name := p.Name()
		return strings.Contains(name, "TACAN") || strings.Contains(name, "VORTAC")
	})
}

// CarrierFilter passes TACANs on ships.
func CarrierFilter() *positioned.Filter {
	return TypeFilter(positioned.TypeMobileTACAN)
}
