// octree/query.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package octree

import (
	"container/heap"
	"time"

	"github.com/mmp/navdb/math"
	"github.com/mmp/navdb/positioned"
)

// The deadline is checked after this many nodes and entries have been
// visited.
const deadlineCheckInterval = 64

type deadline struct {
	end    time.Time
	visits int
	hit    bool
}

func makeDeadline(budget time.Duration) deadline {
	if budget <= 0 {
		return deadline{}
	}
	return deadline{end: time.Now().Add(budget)}
}

// expired reports whether the time budget has been used up; it only
// consults the clock every deadlineCheckInterval calls.
func (d *deadline) expired() bool {
	if d.hit {
		return true
	}
	if d.end.IsZero() {
		return false
	}
	d.visits++
	if d.visits%deadlineCheckInterval == 0 && time.Now().After(d.end) {
		d.hit = true
	}
	return d.hit
}

func (t *Tree) load(e entry, filter *positioned.Filter) positioned.Positioned {
	p, err := t.loader.LoadByID(e.id)
	if err != nil {
		t.lg.Warnf("%d: octree entry failed to load: %v", e.id, err)
		return nil
	}
	if !filter.Pass(p) {
		return nil
	}
	return p
}

// FindAllWithinRange returns the entities passing the filter that are
// within radiusM meters of point. If budget is non-zero and the search
// takes longer than it, the entities found so far are returned and
// partial is true.
func (t *Tree) FindAllWithinRange(point math.Vec3, radiusM float64, filter *positioned.Filter,
	budget time.Duration) (result []positioned.Positioned, partial bool) {
	lo, hi := filter.TypeRange()
	r2 := radiusM * radiusM
	dl := makeDeadline(budget)

	var visit func(n *node) bool
	visit = func(n *node) bool {
		if dl.expired() {
			return false
		}
		if !n.overlapsTypes(lo, hi) || n.dist2(point) > r2 {
			return true
		}
		if n.isLeaf() {
			for _, e := range n.entries {
				if dl.expired() {
					return false
				}
				if !filter.PassType(e.typ) || math.Dist2(e.cart, point) > r2 {
					continue
				}
				if p := t.load(e, filter); p != nil {
					result = append(result, p)
				}
			}
			return true
		}
		for _, c := range n.children {
			if c != nil && !visit(c) {
				return false
			}
		}
		return true
	}

	partial = !visit(t.root)
	return
}

// queueItem is either a node or an entry in the nearest-N search's
// priority queue.
type queueItem struct {
	d2    float64
	node  *node
	entry entry
}

type searchQueue []queueItem

func (q searchQueue) Len() int { return len(q) }

// Items are ordered by distance; at equal distances nodes come first so
// that all entries at that distance are queued before any are accepted,
// and entries then come out in insertion order.
func (q searchQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.d2 != b.d2 {
		return a.d2 < b.d2
	}
	if (a.node != nil) != (b.node != nil) {
		return a.node != nil
	}
	return a.node == nil && a.entry.seq < b.entry.seq
}

func (q searchQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *searchQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *searchQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// FindNearestN returns up to n entities passing the filter within cutoffM
// meters of point, sorted by increasing distance; ties are broken by
// insertion order. If budget is non-zero and the search takes longer than
// it, the nearest entities found so far are returned and partial is true.
func (t *Tree) FindNearestN(point math.Vec3, n int, cutoffM float64, filter *positioned.Filter,
	budget time.Duration) (result []positioned.Positioned, partial bool) {
	if n <= 0 {
		return nil, false
	}

	lo, hi := filter.TypeRange()
	cutoff2 := cutoffM * cutoffM
	dl := makeDeadline(budget)

	q := &searchQueue{{d2: t.root.dist2(point), node: t.root}}
	for q.Len() > 0 && len(result) < n {
		if dl.expired() {
			return result, true
		}

		item := heap.Pop(q).(queueItem)
		if item.d2 > cutoff2 {
			break
		}

		if item.node == nil {
			if p := t.load(item.entry, filter); p != nil {
				result = append(result, p)
			}
			continue
		}

		nd := item.node
		if nd.isLeaf() {
			for _, e := range nd.entries {
				if !filter.PassType(e.typ) {
					continue
				}
				if d2 := math.Dist2(e.cart, point); d2 <= cutoff2 {
					heap.Push(q, queueItem{d2: d2, entry: e})
				}
			}
		} else {
			for _, c := range nd.children {
				if c != nil && c.overlapsTypes(lo, hi) {
					if d2 := c.dist2(point); d2 <= cutoff2 {
						heap.Push(q, queueItem{d2: d2, node: c})
					}
				}
			}
		}
	}

	return result, false
}
