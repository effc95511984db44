// octree/octree.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package octree provides a spatial index over positioned entities in
// earth-centered cartesian space, supporting range and nearest-N queries
// that can be bounded by a time budget.
package octree

import (
	"slices"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

const (
	// Half the side length of the root cube, centered at the earth's
	// center; comfortably contains everything within ~10,000km of the
	// surface.
	rootHalfSize = 1 << 24

	defaultLeafCapacity = 32
	defaultMaxDepth     = 18
)

// Loader materializes entities for filtering and for returning from
// queries.
type Loader interface {
	LoadByID(id positioned.ID) (positioned.Positioned, error)
}

type entry struct {
	id   positioned.ID
	typ  positioned.Type
	cart math.Vec3
	// Insertion sequence number, used to break distance ties.
	seq uint64
}

// node is either a leaf, storing entries directly, or an interior node
// with eight children, one per octant. minType and maxType bound the
// types of all entries ever stored beneath the node; they are widened on
// insertion and not narrowed on removal.
type node struct {
	center   math.Vec3
	half     float64
	depth    int
	children *[8]*node
	entries  []entry

	minType, maxType positioned.Type
	count            int
}

// Tree is the spatial index. Queries do not modify the tree, so any
// number of them may run concurrently as long as no Insert, Remove, or
// Move is in progress.
type Tree struct {
	root         *node
	seq          uint64
	loader       Loader
	leafCapacity int
	maxDepth     int
	lg           *log.Logger
}

func New(loader Loader, lg *log.Logger) *Tree {
	return &Tree{
		root:         newNode(math.Vec3{}, rootHalfSize, 0),
		loader:       loader,
		leafCapacity: defaultLeafCapacity,
		maxDepth:     defaultMaxDepth,
		lg:           lg,
	}
}

func newNode(center math.Vec3, half float64, depth int) *node {
	return &node{
		center:  center,
		half:    half,
		depth:   depth,
		minType: positioned.TypeLast,
		maxType: positioned.TypeInvalid,
	}
}

// Len returns the number of entries in the tree.
func (t *Tree) Len() int {
	return t.root.count
}

func (n *node) isLeaf() bool {
	return n.children == nil
}

func (n *node) octant(c math.Vec3) int {
	o := 0
	for i := range 3 {
		if c[i] >= n.center[i] {
			o |= 1 << i
		}
	}
	return o
}

func (n *node) child(o int) *node {
	if n.children[o] == nil {
		var c math.Vec3
		h := n.half / 2
		for i := range 3 {
			if o&(1<<i) != 0 {
				c[i] = n.center[i] + h
			} else {
				c[i] = n.center[i] - h
			}
		}
		n.children[o] = newNode(c, h, n.depth+1)
	}
	return n.children[o]
}

// dist2 returns the squared distance from p to the closest point of the
// node's cube.
func (n *node) dist2(p math.Vec3) float64 {
	var d2 float64
	for i := range 3 {
		if d := math.Abs(p[i]-n.center[i]) - n.half; d > 0 {
			d2 += d * d
		}
	}
	return d2
}

func (n *node) overlapsTypes(lo, hi positioned.Type) bool {
	return n.count > 0 && n.minType <= hi && n.maxType >= lo
}

// Insert adds an entity to the index.
func (t *Tree) Insert(id positioned.ID, typ positioned.Type, cart math.Vec3) {
	t.seq++
	t.insert(entry{id: id, typ: typ, cart: cart, seq: t.seq})
}

func (t *Tree) insert(e entry) {
	n := t.root
	for {
		n.count++
		n.minType = min(n.minType, e.typ)
		n.maxType = max(n.maxType, e.typ)

		if n.isLeaf() {
			n.entries = append(n.entries, e)
			if len(n.entries) > t.leafCapacity && n.depth < t.maxDepth {
				t.split(n)
			}
			return
		}
		n = n.child(n.octant(e.cart))
	}
}

func (t *Tree) split(n *node) {
	entries := n.entries
	n.entries = nil
	n.children = &[8]*node{}
	for _, e := range entries {
		c := n.child(n.octant(e.cart))
		c.count++
		c.minType = min(c.minType, e.typ)
		c.maxType = max(c.maxType, e.typ)
		c.entries = append(c.entries, e)
	}
	for _, c := range n.children {
		if c != nil && len(c.entries) > t.leafCapacity && c.depth < t.maxDepth {
			t.split(c)
		}
	}
}

// Remove removes the entity with the given id, which must have been
// inserted at the given position. It returns false if it was not found.
func (t *Tree) Remove(id positioned.ID, cart math.Vec3) bool {
	_, ok := t.remove(id, cart)
	return ok
}

func (t *Tree) remove(id positioned.ID, cart math.Vec3) (entry, bool) {
	var path []*node
	n := t.root
	for !n.isLeaf() {
		path = append(path, n)
		n = n.children[n.octant(cart)]
		if n == nil {
			return entry{}, false
		}
	}

	idx := slices.IndexFunc(n.entries, func(e entry) bool { return e.id == id })
	if idx == -1 {
		return entry{}, false
	}
	e := n.entries[idx]
	n.entries = slices.Delete(n.entries, idx, idx+1)
	n.count--
	for _, p := range path {
		p.count--
	}
	return e, true
}

// Move updates the position of an entity in the index. Its insertion
// sequence, and so its tie-breaking order, is preserved.
func (t *Tree) Move(id positioned.ID, from, to math.Vec3) bool {
	e, ok := t.remove(id, from)
	if !ok {
		return false
	}
	e.cart = to
	t.insert(e)
	return true
}

// Stats returns the number of nodes and the maximum depth of the tree.
func (t *Tree) Stats() (nodes int, depth int) {
	var walk func(n *node)
	walk = func(n *node) {
		nodes++
		depth = max(depth, n.depth)
		if !n.isLeaf() {
			for _, c := range n.children {
				if c != nil {
					walk(c)
				}
			}
		}
	}
	walk(t.root)
	return
}
