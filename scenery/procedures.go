// scenery/procedures.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package scenery

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/iancoleman/orderedmap"

	"github.com/mmp/navdb/util"
)

// ProcedureDef is a SID, STAR, or approach from an airport's procedures
// file.
type ProcedureDef struct {
	Ident     string   `json:"-"`
	Type      string   `json:"type,omitempty"` // approaches only: ILS, RNAV, VOR, ...
	Runways   []string `json:"runways"`
	Waypoints []string `json:"waypoints"`
}

// Procedures holds the contents of a procedures file, with each kind of
// procedure in the order it appears in the file.
type Procedures struct {
	SIDs       []ProcedureDef
	STARs      []ProcedureDef
	Approaches []ProcedureDef
}

type proceduresFile struct {
	SIDs       map[string]ProcedureDef `json:"sids"`
	STARs      map[string]ProcedureDef `json:"stars"`
	Approaches map[string]ProcedureDef `json:"approaches"`
}

// ParseProcedures parses a procedures file of the form
//
//	{ "sids": { "SSTIK4": { "runways": [...], "waypoints": [...] } },
//	  "stars": { ... },
//	  "approaches": { "I28L": { "type": "ILS", ... } } }
//
// Unknown keys are errors.
func ParseProcedures(r io.Reader) (*Procedures, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var e util.ErrorLogger
	util.CheckJSON[proceduresFile](b, &e)
	if e.HaveErrors() {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, e.String())
	}

	var pf proceduresFile
	if err := util.UnmarshalJSONBytes(b, &pf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// The typed maps lose the order of the procedures, so recover it
	// from a second pass with ordered maps.
	var sections struct {
		SIDs       json.RawMessage `json:"sids"`
		STARs      json.RawMessage `json:"stars"`
		Approaches json.RawMessage `json:"approaches"`
	}
	if err := json.Unmarshal(b, &sections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	ordered := func(raw json.RawMessage, defs map[string]ProcedureDef) ([]ProcedureDef, error) {
		if len(raw) == 0 || string(raw) == "null" {
			return nil, nil
		}
		om := orderedmap.New()
		if err := json.Unmarshal(raw, om); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		var p []ProcedureDef
		for _, ident := range om.Keys() {
			def := defs[ident]
			def.Ident = ident
			if len(def.Waypoints) == 0 {
				return nil, fmt.Errorf("%w: %s: no waypoints", ErrMalformed, ident)
			}
			p = append(p, def)
		}
		return p, nil
	}

	var procs Procedures
	if procs.SIDs, err = ordered(sections.SIDs, pf.SIDs); err != nil {
		return nil, err
	}
	if procs.STARs, err = ordered(sections.STARs, pf.STARs); err != nil {
		return nil, err
	}
	if procs.Approaches, err = ordered(sections.Approaches, pf.Approaches); err != nil {
		return nil, err
	}
	return &procs, nil
}

func ReadProcedures(path string) (*Procedures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseProcedures(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
