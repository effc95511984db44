// octree/octree_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package octree

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

type mapLoader map[positioned.ID]positioned.Positioned

func (m mapLoader) LoadByID(id positioned.ID) (positioned.Positioned, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, positioned.ErrNotFound
}

var ksfo = math.Geod{Lat: 37.618817, Lon: -122.375428}

// makeTree returns a tree with n fixes and VORs scattered within ~200nm
// of KSFO along with the entities in insertion order.
func makeTree(t *testing.T, n int) (*Tree, mapLoader, []positioned.Positioned) {
	t.Helper()
	r := rand.New(rand.NewPCG(1, 2))
	loader := make(mapLoader)
	tree := New(loader, nil)

	var all []positioned.Positioned
	for i := range n {
		g := math.Offset(ksfo, 360*r.Float64(), math.NMToMeters(200*r.Float64()))
		typ := positioned.TypeFix
		if i%5 == 0 {
			typ = positioned.TypeVOR
		}
		p := positioned.NewWaypoint(positioned.ID(i+1), typ, "WPT", g)
		loader[p.GUID()] = p
		tree.Insert(p.GUID(), p.Type(), p.Cart())
		all = append(all, p)
	}
	require.Equal(t, n, tree.Len())
	return tree, loader, all
}

func bruteForce(all []positioned.Positioned, c math.Vec3, radius float64, filter *positioned.Filter) []positioned.Positioned {
	var r []positioned.Positioned
	for _, p := range all {
		if filter.Pass(p) && math.Dist2(p.Cart(), c) <= radius*radius {
			r = append(r, p)
		}
	}
	// all is in insertion order so a stable sort gives distance then
	// insertion order.
	slices.SortStableFunc(r, func(a, b positioned.Positioned) int {
		return cmp.Compare(math.Dist2(a.Cart(), c), math.Dist2(b.Cart(), c))
	})
	return r
}

func idSet(ps []positioned.Positioned) map[positioned.ID]bool {
	m := make(map[positioned.ID]bool)
	for _, p := range ps {
		m[p.GUID()] = true
	}
	return m
}

func TestFindAllWithinRange(t *testing.T) {
	tree, _, all := makeTree(t, 5000)
	c := math.CartFromGeod(ksfo)

	for _, radiusNM := range []float64{0.5, 10, 50, 150, 500} {
		for _, filter := range []*positioned.Filter{nil, positioned.TypeFilter(positioned.TypeVOR),
			positioned.TypeFilter(positioned.TypeAirport)} {
			radius := math.NMToMeters(radiusNM)
			got, partial := tree.FindAllWithinRange(c, radius, filter, 0)
			require.False(t, partial)
			expected := bruteForce(all, c, radius, filter)
			assert.Equal(t, idSet(expected), idSet(got), "radius %f", radiusNM)
			assert.Len(t, got, len(expected))
		}
	}
}

func TestFindNearestN(t *testing.T) {
	tree, _, all := makeTree(t, 5000)

	for _, g := range []math.Geod{ksfo, math.Offset(ksfo, 45, math.NMToMeters(120)), {Lat: 0, Lon: 0}} {
		c := math.CartFromGeod(g)
		for _, n := range []int{1, 5, 50, 1000} {
			cutoff := math.NMToMeters(60)
			got, partial := tree.FindNearestN(c, n, cutoff, nil, 0)
			require.False(t, partial)

			expected := bruteForce(all, c, cutoff, nil)
			if len(expected) > n {
				expected = expected[:n]
			}
			require.Equal(t, positioned.IDs(expected), positioned.IDs(got))

			// Nearest-N results are a subset of the range query results.
			within, _ := tree.FindAllWithinRange(c, cutoff, nil, 0)
			ws := idSet(within)
			for _, p := range got {
				assert.True(t, ws[p.GUID()])
				assert.LessOrEqual(t, math.Dist2(p.Cart(), c), cutoff*cutoff)
			}
			assert.True(t, slices.IsSortedFunc(got, func(a, b positioned.Positioned) int {
				return cmp.Compare(math.Dist2(a.Cart(), c), math.Dist2(b.Cart(), c))
			}))
		}
	}
}

func TestFindNearestNFiltered(t *testing.T) {
	tree, _, all := makeTree(t, 2000)
	c := math.CartFromGeod(ksfo)

	odd := positioned.PredicateFilter(positioned.TypeVOR, positioned.TypeVOR, func(p positioned.Positioned) bool {
		return p.GUID()%2 == 1
	})
	got, _ := tree.FindNearestN(c, 10, math.NMToMeters(300), odd, 0)
	expected := bruteForce(all, c, math.NMToMeters(300), odd)[:10]
	require.Equal(t, positioned.IDs(expected), positioned.IDs(got))
	for _, p := range got {
		assert.Equal(t, positioned.TypeVOR, p.Type())
	}

	// Nothing in the tree is an airport.
	got, _ = tree.FindNearestN(c, 10, math.NMToMeters(300), positioned.TypeFilter(positioned.TypeAirport), 0)
	assert.Empty(t, got)
}

func TestTies(t *testing.T) {
	loader := make(mapLoader)
	tree := New(loader, nil)

	// 100 entries at the same spot; enough to force splits down to the
	// maximum depth.
	for i := range 100 {
		p := positioned.NewWaypoint(positioned.ID(100-i), positioned.TypeFix, "SAME", ksfo)
		loader[p.GUID()] = p
		tree.Insert(p.GUID(), p.Type(), p.Cart())
	}

	got, _ := tree.FindNearestN(math.CartFromGeod(ksfo), 10, 1000, nil, 0)
	require.Len(t, got, 10)
	for i, p := range got {
		assert.Equal(t, positioned.ID(100-i), p.GUID(), "insertion order should break ties")
	}
}

func TestPartialSearch(t *testing.T) {
	tree, _, _ := makeTree(t, 20000)
	c := math.CartFromGeod(ksfo)
	radius := math.NMToMeters(250)

	full, partial := tree.FindAllWithinRange(c, radius, nil, 0)
	require.False(t, partial)
	require.Len(t, full, 20000)

	some, partial := tree.FindAllWithinRange(c, radius, nil, time.Nanosecond)
	require.True(t, partial)
	assert.Less(t, len(some), len(full))
	fs := idSet(full)
	for _, p := range some {
		assert.True(t, fs[p.GUID()])
	}

	nearest, _ := tree.FindNearestN(c, 1000, radius, nil, 0)
	partialNearest, partial := tree.FindNearestN(c, 1000, radius, nil, time.Nanosecond)
	require.True(t, partial)
	// The partial results are the closest ones.
	require.Equal(t, positioned.IDs(nearest[:len(partialNearest)]), positioned.IDs(partialNearest))

	// A generous budget completes.
	_, partial = tree.FindAllWithinRange(c, radius, nil, time.Minute)
	assert.False(t, partial)
}

func TestRemoveMove(t *testing.T) {
	tree, loader, all := makeTree(t, 500)
	c := math.CartFromGeod(ksfo)

	victim := all[10]
	require.True(t, tree.Remove(victim.GUID(), victim.Cart()))
	require.False(t, tree.Remove(victim.GUID(), victim.Cart()))
	require.Equal(t, 499, tree.Len())

	got, _ := tree.FindAllWithinRange(victim.Cart(), 1, nil, 0)
	for _, p := range got {
		assert.NotEqual(t, victim.GUID(), p.GUID())
	}

	// Move an entity right on top of KSFO.
	mover := all[20].(*positioned.Waypoint)
	old := mover.Cart()
	require.NoError(t, mover.ModifyPosition(ksfo))
	require.True(t, tree.Move(mover.GUID(), old, mover.Cart()))
	loader[mover.GUID()] = mover

	nearest, _ := tree.FindNearestN(c, 1, 1000, nil, 0)
	require.Len(t, nearest, 1)
	assert.Equal(t, mover.GUID(), nearest[0].GUID())
	assert.Equal(t, 499, tree.Len())

	nodes, depth := tree.Stats()
	assert.Greater(t, nodes, 1)
	assert.Greater(t, depth, 0)
}

func BenchmarkFindNearestN(b *testing.B) {
	r := rand.New(rand.NewPCG(3, 4))
	loader := make(mapLoader)
	tree := New(loader, nil)
	for i := range 50000 {
		g := math.Geod{Lat: 180*r.Float64() - 90, Lon: 360*r.Float64() - 180}
		p := positioned.NewWaypoint(positioned.ID(i+1), positioned.TypeFix, "B", g)
		loader[p.GUID()] = p
		tree.Insert(p.GUID(), p.Type(), p.Cart())
	}
	c := math.CartFromGeod(ksfo)

	b.ResetTimer()
	for range b.N {
		tree.FindNearestN(c, 20, math.NMToMeters(500), nil, 0)
	}
}
