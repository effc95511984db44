// scenery/locator.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package scenery finds and parses the per-airport files that override or
// supplement the global navigation data: runway thresholds, tower
// positions, ILS positions, and procedures.
package scenery

import (
	"os"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindThreshold  Kind = "threshold"
	KindTower      Kind = "twr"
	KindILS        Kind = "ils"
	KindProcedures Kind = "procedures"
)

func (k Kind) extension() string {
	if k == KindProcedures {
		return ".json"
	}
	return ".xml"
}

// Locator searches a list of scenery roots for airport data files. Files
// live at <root>/Airports/I/C/A/ICAO.<kind>.xml, where I, C, and A are
// the first three characters of the airport ident.
type Locator struct {
	Roots []string
}

func NewLocator(roots ...string) *Locator {
	return &Locator{Roots: roots}
}

// RelativePath returns the path of an airport's file of the given kind
// with respect to a scenery root.
func RelativePath(icao string, kind Kind) string {
	icao = strings.ToUpper(icao)
	parts := []string{"Airports"}
	for i := 0; i < len(icao) && i < 3; i++ {
		parts = append(parts, icao[i:i+1])
	}
	parts = append(parts, icao+"."+string(kind)+kind.extension())
	return filepath.Join(parts...)
}

// Find returns the path of the file in the first root that has one.
func (l *Locator) Find(icao string, kind Kind) (string, bool) {
	if l == nil || icao == "" {
		return "", false
	}

	rel := RelativePath(icao, kind)
	for _, root := range l.Roots {
		path := filepath.Join(root, rel)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
