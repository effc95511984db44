// positioned/types.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"strings"

	"github.com/mmp/navdb/log"
)

// Type identifies the kind of a positioned entity. The order of the
// values is significant: filters and the spatial index express type sets
// as inclusive [min,max] ranges, so related types are kept contiguous.
// In particular, AIRPORT..SEAPORT, NDB..GS, ILS..LOC, DME..TACAN, and
// FreqGround..FreqUnicom are relied upon.
type Type int

const (
	TypeInvalid Type = iota
	TypeAirport
	TypeHeliport
	TypeSeaport
	TypeRunway
	TypeHelipad
	TypeTaxiway
	TypePavement
	TypeWaypoint
	TypeFix
	TypeNDB
	TypeVOR
	TypeILS
	TypeLOC
	TypeGS
	TypeOM
	TypeMM
	TypeIM
	TypeDME
	TypeTACAN
	TypeMobileTACAN
	TypeObstacle
	TypeTower
	TypeFreqGround
	TypeFreqTower
	TypeFreqATIS
	TypeFreqAWOS
	TypeFreqAppDep
	TypeFreqEnroute
	TypeFreqClearance
	TypeFreqUnicom
	TypeParking
	TypeTaxiNode
	TypeCountry
	TypeCity
	TypeTown
	TypeVillage
	TypeLast
)

// Canonical names, indexed by Type. TypeFromName(NameForType(t)) == t
// holds for every t in [TypeInvalid, TypeLast).
var typeNames = [TypeLast]string{
	TypeInvalid:       "any",
	TypeAirport:       "airport",
	TypeHeliport:      "heliport",
	TypeSeaport:       "seaport",
	TypeRunway:        "runway",
	TypeHelipad:       "helipad",
	TypeTaxiway:       "taxiway",
	TypePavement:      "pavement",
	TypeWaypoint:      "waypoint",
	TypeFix:           "fix",
	TypeNDB:           "ndb",
	TypeVOR:           "vor",
	TypeILS:           "ils",
	TypeLOC:           "loc",
	TypeGS:            "gs",
	TypeOM:            "outer-marker",
	TypeMM:            "middle-marker",
	TypeIM:            "inner-marker",
	TypeDME:           "dme",
	TypeTACAN:         "tacan",
	TypeMobileTACAN:   "mobile-tacan",
	TypeObstacle:      "obstacle",
	TypeTower:         "control-tower",
	TypeFreqGround:    "ground",
	TypeFreqTower:     "tower",
	TypeFreqATIS:      "atis",
	TypeFreqAWOS:      "awos",
	TypeFreqAppDep:    "approach-departure",
	TypeFreqEnroute:   "enroute",
	TypeFreqClearance: "clearance",
	TypeFreqUnicom:    "unicom",
	TypeParking:       "parking",
	TypeTaxiNode:      "taxi-node",
	TypeCountry:       "country",
	TypeCity:          "city",
	TypeTown:          "town",
	TypeVillage:       "village",
}

// Historical and abbreviated names accepted by TypeFromName in addition
// to the canonical ones.
var typeAliases = map[string]Type{
	"all":        TypeInvalid,
	"invalid":    TypeInvalid,
	"apt":        TypeAirport,
	"arpt":       TypeAirport,
	"rwy":        TypeRunway,
	"wpt":        TypeWaypoint,
	"localizer":  TypeLOC,
	"glideslope": TypeGS,
	"om":         TypeOM,
	"mm":         TypeMM,
	"im":         TypeIM,
	"gnd":        TypeFreqGround,
	"twr":        TypeFreqTower,
	"tower-freq": TypeFreqTower,
	"approach":   TypeFreqAppDep,
	"departure":  TypeFreqAppDep,
	"ctaf":       TypeFreqUnicom,
	"stand":      TypeParking,
}

var nameToType map[string]Type

func init() {
	nameToType = make(map[string]Type, len(typeNames)+len(typeAliases))
	for t, n := range typeNames {
		nameToType[n] = Type(t)
	}
	for n, t := range typeAliases {
		nameToType[n] = t
	}
}

// TypeFromName returns the Type with the given name; matching is case
// insensitive and accepts the canonical names as well as a number of
// aliases. TypeInvalid is returned (and a warning logged) for unknown
// names.
func TypeFromName(name string) Type {
	return TypeFromNameLogged(name, nil)
}

func TypeFromNameLogged(name string, lg *log.Logger) Type {
	if t, ok := nameToType[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	lg.Warnf("%s: unknown positioned type name", name)
	return TypeInvalid
}

// NameForType returns the canonical name for t.
func NameForType(t Type) string {
	if t < TypeInvalid || t >= TypeLast {
		return "unknown"
	}
	return typeNames[t]
}

func (t Type) String() string {
	return NameForType(t)
}

func (t Type) IsAirport() bool {
	return t >= TypeAirport && t <= TypeSeaport
}

func (t Type) IsNavaid() bool {
	return t >= TypeNDB && t <= TypeMobileTACAN
}

func (t Type) IsCommStation() bool {
	return t >= TypeFreqGround && t <= TypeFreqUnicom
}

func (t Type) IsRunwayLike() bool {
	return t >= TypeRunway && t <= TypeTaxiway
}

func (t Type) IsPOI() bool {
	return t >= TypeCountry && t <= TypeVillage
}
