package pkgset

import (
	"testing"

	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(t *testing.T, n int) *pool.Pool {
	t.Helper()
	p := pool.New()
	for i := 0; i < n; i++ {
		p.Intern(pool.Record{
			Name:    string(rune('a' + i)),
			Version: "1.0", Release: "1", Arch: "noarch", RepoID: "test",
		})
	}
	return p
}

func TestSetBasics(t *testing.T) {
	p := testPool(t, 3)

	s := New(p)
	assert.True(t, s.Empty())
	assert.Equal(t, 0, s.Size())

	s.Add(p.Get(1))
	s.Add(p.Get(3))
	assert.False(t, s.Empty())
	assert.Equal(t, 2, s.Size())
	assert.True(t, s.Contains(p.Get(1)))
	assert.False(t, s.Contains(p.Get(2)))

	s.Remove(p.Get(1))
	assert.False(t, s.Contains(p.Get(1)))
}

func TestFullCoversPool(t *testing.T) {
	p := testPool(t, 5)
	s := Full(p)
	assert.Equal(t, 5, s.Size())

	empty := Full(pool.New())
	assert.True(t, empty.Empty())
}

func TestSetAlgebra(t *testing.T) {
	p := testPool(t, 6)
	mk := func(ids ...pool.ID) *Set {
		s := New(p)
		for _, id := range ids {
			s.AddID(id)
		}
		return s
	}

	t.Run("UnionCommutative", func(t *testing.T) {
		a := mk(1, 2)
		b := mk(2, 3)
		ab := a.Clone().Union(b)
		ba := b.Clone().Union(a)
		assert.True(t, ab.Equal(ba))
		assert.Equal(t, 3, ab.Size())
	})

	t.Run("IntersectCommutative", func(t *testing.T) {
		a := mk(1, 2, 3)
		b := mk(2, 3, 4)
		ab := a.Clone().Intersect(b)
		ba := b.Clone().Intersect(a)
		assert.True(t, ab.Equal(ba))
		assert.Equal(t, 2, ab.Size())
	})

	t.Run("UnionAssociative", func(t *testing.T) {
		a, b, c := mk(1), mk(2), mk(3)
		left := a.Clone().Union(b).Union(c)
		right := b.Clone().Union(c).Union(a)
		assert.True(t, left.Equal(right))
	})

	t.Run("Difference", func(t *testing.T) {
		a := mk(1, 2, 3)
		a.Difference(mk(2))
		assert.Equal(t, 2, a.Size())
		assert.False(t, a.ContainsID(2))
	})

	t.Run("ResultSharesPool", func(t *testing.T) {
		a := mk(1).Union(mk(2))
		assert.Same(t, p, a.Pool())
	})
}

func TestCrossPoolOperationsPanic(t *testing.T) {
	p1 := testPool(t, 2)
	p2 := testPool(t, 2)

	s1 := Full(p1)
	s2 := Full(p2)

	assert.Panics(t, func() { s1.Union(s2) })
	assert.Panics(t, func() { s1.Intersect(s2) })
	assert.Panics(t, func() { s1.Difference(s2) })
	assert.Panics(t, func() { s1.Contains(p2.Get(1)) })
	assert.Panics(t, func() { s1.Add(p2.Get(1)) })
}

func TestIterationOrder(t *testing.T) {
	p := testPool(t, 4)
	s := New(p)
	// Insert out of order; iteration must be ascending by id.
	s.AddID(3)
	s.AddID(1)
	s.AddID(4)

	var ids []pool.ID
	s.Each(func(pkg pool.Package) bool {
		ids = append(ids, pkg.ID())
		return true
	})
	assert.Equal(t, []pool.ID{1, 3, 4}, ids)

	pkgs := s.Packages()
	require.Len(t, pkgs, 3)
	assert.Equal(t, pool.ID(1), pkgs[0].ID())
}

func TestCloneIsIndependent(t *testing.T) {
	p := testPool(t, 3)
	a := New(p)
	a.AddID(1)

	b := a.Clone()
	b.AddID(2)

	assert.Equal(t, 1, a.Size())
	assert.Equal(t, 2, b.Size())
}
