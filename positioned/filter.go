// positioned/filter.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"slices"
)

// Filter selects positioned entities. A nil *Filter passes everything.
//
// MinType and MaxType give an inclusive range of types that can possibly
// pass; the spatial index and the cache use it to skip entities (and
// whole subtrees) without materializing them. TypeInvalid for either
// bound leaves that side of the range open. Types, if non-empty, further
// restricts the set of passing types and Predicate, if non-nil, is
// called for entities of passing types.
type Filter struct {
	MinType, MaxType Type
	Types            []Type
	Predicate        func(Positioned) bool
}

// TypeFilter returns a Filter that passes the given types. TypeInvalid is
// ignored, so TypeFilter(TypeInvalid) passes everything.
func TypeFilter(types ...Type) *Filter {
	f := &Filter{}
	for _, t := range types {
		f.AddType(t)
	}
	return f
}

// TypeRangeFilter returns a Filter that passes all types in [min,max].
func TypeRangeFilter(min, max Type) *Filter {
	return &Filter{MinType: min, MaxType: max}
}

// PredicateFilter returns a Filter that passes entities with types in
// [min,max] for which pred returns true.
func PredicateFilter(min, max Type, pred func(Positioned) bool) *Filter {
	return &Filter{MinType: min, MaxType: max, Predicate: pred}
}

// AddType adds t to the set of types that pass and widens the type range
// hint to include it.
func (f *Filter) AddType(t Type) {
	if t == TypeInvalid {
		return
	}
	if len(f.Types) == 0 {
		f.MinType, f.MaxType = t, t
	} else {
		f.MinType, f.MaxType = min(f.MinType, t), max(f.MaxType, t)
	}
	if !slices.Contains(f.Types, t) {
		f.Types = append(f.Types, t)
	}
}

// TypeRange returns the inclusive range of types that may pass the
// filter.
func (f *Filter) TypeRange() (Type, Type) {
	if f == nil {
		return TypeInvalid, TypeLast
	}
	lo, hi := f.MinType, f.MaxType
	if hi == TypeInvalid {
		hi = TypeLast
	}
	return lo, hi
}

// PassType reports whether entities of type t may pass; when it returns
// false, Pass would too.
func (f *Filter) PassType(t Type) bool {
	if f == nil {
		return true
	}
	lo, hi := f.TypeRange()
	if t < lo || t > hi {
		return false
	}
	return len(f.Types) == 0 || slices.Contains(f.Types, t)
}

func (f *Filter) Pass(p Positioned) bool {
	if f == nil {
		return true
	}
	if !f.PassType(p.Type()) {
		return false
	}
	return f.Predicate == nil || f.Predicate(p)
}

// And returns a filter that passes entities that pass both f and pred.
// The type range of f is preserved.
func (f *Filter) And(pred func(Positioned) bool) *Filter {
	if f == nil {
		return &Filter{Predicate: pred}
	}
	g := *f
	g.Types = slices.Clone(f.Types)
	if prev := f.Predicate; prev != nil {
		g.Predicate = func(p Positioned) bool { return prev(p) && pred(p) }
	} else {
		g.Predicate = pred
	}
	return &g
}
