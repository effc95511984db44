// positioned/positioned.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package positioned

import (
	"cmp"
	"slices"

	"github.com/mmp/navdb/math"
)

// ID is the cache-assigned identifier of a positioned entity. Zero is
// never a valid ID.
type ID int64

// Positioned is implemented by all entities with a location that are
// tracked by the navigation database.
type Positioned interface {
	GUID() ID
	Type() Type
	Ident() string
	Name() string
	Geod() math.Geod
	Cart() math.Vec3
}

// Movable is implemented by entities whose position may be updated by
// their owning cache.
type Movable interface {
	Positioned
	ModifyPosition(g math.Geod) error
}

// Base holds the state shared by all positioned entities. The type and
// ident never change after construction; the geodetic and cartesian
// positions are only ever updated together.
type Base struct {
	guid  ID
	typ   Type
	ident string
	geod  math.Geod
	cart  math.Vec3
}

func NewBase(guid ID, t Type, ident string, g math.Geod) Base {
	return Base{
		guid:  guid,
		typ:   t,
		ident: ident,
		geod:  g,
		cart:  math.CartFromGeod(g),
	}
}

func (b *Base) GUID() ID           { return b.guid }
func (b *Base) Type() Type         { return b.typ }
func (b *Base) Ident() string      { return b.ident }
func (b *Base) Name() string       { return b.ident }
func (b *Base) Geod() math.Geod    { return b.geod }
func (b *Base) Cart() math.Vec3    { return b.cart }
func (b *Base) TypeString() string { return NameForType(b.typ) }

// ModifyPosition moves the entity. It must only be called by the cache
// that owns the entity, which is also responsible for updating its
// spatial index.
func (b *Base) ModifyPosition(g math.Geod) error {
	if !g.Valid() {
		return ErrInvalidPosition
	}
	b.geod = g
	b.cart = math.CartFromGeod(g)
	return nil
}

// Dist2 returns the squared cartesian distance in meters between p and
// the given point.
func Dist2(p Positioned, c math.Vec3) float64 {
	return math.Dist2(p.Cart(), c)
}

// SortByRange sorts the provided entities in place by increasing distance
// from pos. Entities at equal distances keep their relative order.
func SortByRange[P Positioned](items []P, pos math.Geod) {
	c := math.CartFromGeod(pos)
	slices.SortStableFunc(items, func(a, b P) int {
		return cmp.Compare(Dist2(a, c), Dist2(b, c))
	})
}

// IDs returns the GUIDs of the given entities.
func IDs[P Positioned](items []P) []ID {
	ids := make([]ID, len(items))
	for i, p := range items {
		ids[i] = p.GUID()
	}
	return ids
}
