// util/util_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestErrorLogger(t *testing.T) {
	var e ErrorLogger
	if e.HaveErrors() {
		t.Errorf("empty logger reports errors")
	}

	e.Push("KSFO")
	e.Push("threshold")
	e.ErrorString("unknown runway %q", "01X")
	e.Pop()
	e.Pop()
	e.ErrorString("top level")

	if !e.HaveErrors() {
		t.Errorf("expected errors")
	}
	errs := e.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0] != `KSFO / threshold: unknown runway "01X"` {
		t.Errorf("unexpected error %q", errs[0])
	}
	if errs[1] != "top level" {
		t.Errorf("unexpected error %q", errs[1])
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("depth %d after balanced push/pop", e.CurrentDepth())
	}

	var file ErrorLogger
	file.Push("FAACIFP18")
	file.ErrorString("line %d: bad record", 12)
	e.Merge(&file)
	e.Merge(nil)
	if e.Len() != 3 || e.Errors()[2] != "FAACIFP18: line 12: bad record" {
		t.Errorf("unexpected errors after merge: %v", e.Errors())
	}

	unbalanced := func() (msg any) {
		defer func() { msg = recover() }()
		var u ErrorLogger
		defer u.CheckDepth(u.CurrentDepth())
		u.Push("KSFO")
		return nil
	}
	if msg, ok := unbalanced().(string); !ok || !strings.Contains(msg, "depth 1, expected 0") {
		t.Errorf("expected panic for unbalanced push, got %v", msg)
	}
}

func TestCheckJSON(t *testing.T) {
	type inner struct {
		Weight float64 `json:"weight"`
	}
	type config struct {
		Name    string           `json:"name"`
		Enabled bool             `json:"enabled"`
		Paths   []string         `json:"paths"`
		Weights map[string]inner `json:"weights"`
	}

	var e ErrorLogger
	CheckJSON[config]([]byte(`{"name": "a", "enabled": true, "paths": ["x"], "weights": {"l": {"weight": 1}}}`), &e)
	if e.HaveErrors() {
		t.Errorf("unexpected errors: %s", e.String())
	}

	e = ErrorLogger{}
	CheckJSON[config]([]byte(`{"nmae": "a", "enabled": "yes", "weights": {"l": {"wieght": 1}}}`), &e)
	errs := e.Errors()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %s", len(errs), e.String())
	}
	if !strings.Contains(errs[0], "enabled") || !strings.Contains(errs[1], "nmae") ||
		!strings.Contains(errs[2], "wieght") {
		t.Errorf("unexpected errors: %s", e.String())
	}
}

func TestUnmarshalJSONErrors(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	err := UnmarshalJSONBytes([]byte("{\n  \"a\": \"x\"\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error mentioning line 2, got %v", err)
	}
	err = UnmarshalJSONBytes([]byte("{\n\n  \"a\": 1,\n}"), &v)
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Errorf("expected syntax error at line 4, got %v", err)
	}
}

func TestStoreRetrieveObject(t *testing.T) {
	type rec struct {
		ID    int64
		Ident string
		Nodes []float64
	}
	path := filepath.Join(t.TempDir(), "sub", "cache.msgpack.zst")
	in := []rec{{1, "KSFO", nil}, {2, "01L", []float64{1, 2, 3}}}
	if err := StoreObject(path, in); err != nil {
		t.Fatalf("StoreObject: %v", err)
	}

	var out []rec
	mt, err := RetrieveObject(path, &out)
	if err != nil {
		t.Fatalf("RetrieveObject: %v", err)
	}
	if mt.IsZero() {
		t.Errorf("zero mod time")
	}
	if len(out) != 2 || out[0].Ident != "KSFO" || !slices.Equal(out[1].Nodes, in[1].Nodes) {
		t.Errorf("mismatch: %+v", out)
	}

	// No temporary files left behind.
	ents, _ := os.ReadDir(filepath.Dir(path))
	if len(ents) != 1 {
		t.Errorf("expected 1 file in cache dir, got %d", len(ents))
	}
}

func TestGenerics(t *testing.T) {
	m := map[string]int{"c": 3, "a": 1, "b": 2}
	if k := SortedMapKeys(m); !slices.Equal(k, []string{"a", "b", "c"}) {
		t.Errorf("SortedMapKeys: %v", k)
	}
	sq := MapSlice([]int{1, 2, 3}, func(i int) int { return i * i })
	if !slices.Equal(sq, []int{1, 4, 9}) {
		t.Errorf("MapSlice: %v", sq)
	}
	odd := FilterSlice([]int{1, 2, 3, 4, 5}, func(i int) bool { return i%2 == 1 })
	if !slices.Equal(odd, []int{1, 3, 5}) {
		t.Errorf("FilterSlice: %v", odd)
	}
	if Select(true, 1, 2) != 1 || Select(false, 1, 2) != 2 {
		t.Errorf("Select")
	}
}
