// Package pkgset implements sets of package references over one pool,
// closed under boolean operations. Membership is kept in a roaring bitmap
// keyed by pool id, so copies are cheap and the algebra stays allocation
// light even for large universes.
package pkgset

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// Set is a set of package ids over one pool. Two sets are only combinable
// if they share the same pool instance; combining sets from different pools
// is a programming error and panics. The zero Set is not usable; construct
// sets with New or Full.
type Set struct {
	pool *pool.Pool
	bm   *roaring.Bitmap
}

// New creates an empty set over the given pool.
func New(p *pool.Pool) *Set {
	if p == nil {
		panic("pkgset: nil pool")
	}
	return &Set{pool: p, bm: roaring.New()}
}

// Full creates a set containing every package currently in the pool.
func Full(p *pool.Pool) *Set {
	s := New(p)
	if max := p.MaxID(); max > 0 {
		s.bm.AddRange(1, uint64(max)+1)
	}
	return s
}

// Pool returns the pool the set is defined over.
func (s *Set) Pool() *pool.Pool { return s.pool }

func (s *Set) samePool(o *Set) {
	if s.pool != o.pool {
		panic("pkgset: package sets belong to different pools")
	}
}

// Clone returns an independent copy sharing the same pool.
func (s *Set) Clone() *Set {
	return &Set{pool: s.pool, bm: s.bm.Clone()}
}

// Union adds all members of o to s.
func (s *Set) Union(o *Set) *Set {
	s.samePool(o)
	s.bm.Or(o.bm)
	return s
}

// Intersect keeps only members present in both sets.
func (s *Set) Intersect(o *Set) *Set {
	s.samePool(o)
	s.bm.And(o.bm)
	return s
}

// Difference removes all members of o from s.
func (s *Set) Difference(o *Set) *Set {
	s.samePool(o)
	s.bm.AndNot(o.bm)
	return s
}

// Add inserts a package into the set.
func (s *Set) Add(pkg pool.Package) {
	if pkg.Pool() != s.pool {
		panic("pkgset: package belongs to a different pool")
	}
	s.bm.Add(uint32(pkg.ID()))
}

// AddID inserts a pool id into the set.
func (s *Set) AddID(id pool.ID) {
	s.bm.Add(uint32(id))
}

// Remove deletes a package from the set if present.
func (s *Set) Remove(pkg pool.Package) {
	if pkg.Pool() != s.pool {
		panic("pkgset: package belongs to a different pool")
	}
	s.bm.Remove(uint32(pkg.ID()))
}

// Contains reports set membership.
func (s *Set) Contains(pkg pool.Package) bool {
	if pkg.Pool() != s.pool {
		panic("pkgset: package belongs to a different pool")
	}
	return s.bm.Contains(uint32(pkg.ID()))
}

// ContainsID reports membership of a raw pool id.
func (s *Set) ContainsID(id pool.ID) bool {
	return s.bm.Contains(uint32(id))
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool { return s.bm.IsEmpty() }

// Size returns the number of members.
func (s *Set) Size() int { return int(s.bm.GetCardinality()) }

// Clear removes all members.
func (s *Set) Clear() { s.bm.Clear() }

// Each calls fn for every member in ascending id order. Returning false
// stops the iteration. This order is stable but carries no semantic
// meaning; callers needing name or version order must sort explicitly.
func (s *Set) Each(fn func(pkg pool.Package) bool) {
	it := s.bm.Iterator()
	for it.HasNext() {
		if !fn(s.pool.Get(pool.ID(it.Next()))) {
			return
		}
	}
}

// Packages returns all members in ascending id order.
func (s *Set) Packages() []pool.Package {
	out := make([]pool.Package, 0, s.Size())
	s.Each(func(pkg pool.Package) bool {
		out = append(out, pkg)
		return true
	})
	return out
}

// Equal reports whether both sets have identical membership.
func (s *Set) Equal(o *Set) bool {
	s.samePool(o)
	return s.bm.Equals(o.bm)
}
