package filter

import "sync"

const (
	// slabSize is the number of filter nodes per arena slab.
	slabSize = 64
	// inlineChildren is the child-count cutoff under which And/Or child
	// slices come from the arena's child slab instead of the heap.
	inlineChildren = 5
)

// Arena is a bump allocator for filter nodes and small child slices, used
// to assemble deep trees without a heap allocation per node. An arena is
// single-goroutine by construction; use Build to borrow one from the shared
// pool. Reset is O(1) and recycles every node at once.
type Arena struct {
	slabs [][]Filter
	slab  int
	used  int

	childSlabs [][]*Filter
	childSlab  int
	childUsed  int
}

// NewArena returns an arena with one slab of each kind pre-allocated.
func NewArena() *Arena {
	return &Arena{
		slabs:      [][]Filter{make([]Filter, slabSize)},
		childSlabs: [][]*Filter{make([]*Filter, slabSize*inlineChildren)},
	}
}

// Reset recycles all nodes. Trees built from this arena become invalid;
// Build materializes owned copies before resetting for exactly that reason.
func (a *Arena) Reset() {
	a.slab, a.used = 0, 0
	a.childSlab, a.childUsed = 0, 0
}

func (a *Arena) node() *Filter {
	if a.used == slabSize {
		a.slab++
		a.used = 0
		if a.slab == len(a.slabs) {
			a.slabs = append(a.slabs, make([]Filter, slabSize))
		}
	}
	f := &a.slabs[a.slab][a.used]
	a.used++
	*f = Filter{}
	return f
}

// children carves a zero-length, capacity-n slice off the child slab. The
// three-index form caps the slice so an overflowing append falls back to
// the heap instead of clobbering a neighbor.
func (a *Arena) children(n int) []*Filter {
	if n > inlineChildren {
		return make([]*Filter, 0, n)
	}
	if a.childUsed+n > slabSize*inlineChildren {
		a.childSlab++
		a.childUsed = 0
		if a.childSlab == len(a.childSlabs) {
			a.childSlabs = append(a.childSlabs, make([]*Filter, slabSize*inlineChildren))
		}
	}
	s := a.childSlabs[a.childSlab][a.childUsed : a.childUsed : a.childUsed+n]
	a.childUsed += n
	return s
}

// B builds filter trees inside an arena. It mirrors the package-level
// constructors, including their simplification laws.
type B struct {
	a *Arena
}

// NewB returns a builder over the given arena for callers that manage
// arena lifetimes themselves. Most callers want Build.
func NewB(a *Arena) *B { return &B{a: a} }

func (b *B) leaf(op Op, field string, v Value) *Filter {
	f := b.a.node()
	f.Op = op
	f.Field = field
	f.Value = v
	return f
}

// None returns the shared matches-all filter.
func (b *B) None() *Filter { return None() }

// Equals matches rows whose field equals v.
func (b *B) Equals(field string, v Value) *Filter { return b.leaf(OpEquals, field, v) }

// NotEquals matches rows whose field differs from v.
func (b *B) NotEquals(field string, v Value) *Filter { return b.leaf(OpNotEquals, field, v) }

// Lt matches rows whose field is less than v.
func (b *B) Lt(field string, v Value) *Filter { return b.leaf(OpLt, field, v) }

// Lte matches rows whose field is at most v.
func (b *B) Lte(field string, v Value) *Filter { return b.leaf(OpLte, field, v) }

// Gt matches rows whose field is greater than v.
func (b *B) Gt(field string, v Value) *Filter { return b.leaf(OpGt, field, v) }

// Gte matches rows whose field is at least v.
func (b *B) Gte(field string, v Value) *Filter { return b.leaf(OpGte, field, v) }

// Contains matches rows whose field contains v as a substring.
func (b *B) Contains(field string, v Value) *Filter { return b.leaf(OpContains, field, v) }

// StartsWith matches rows whose field starts with v.
func (b *B) StartsWith(field string, v Value) *Filter { return b.leaf(OpStartsWith, field, v) }

// EndsWith matches rows whose field ends with v.
func (b *B) EndsWith(field string, v Value) *Filter { return b.leaf(OpEndsWith, field, v) }

// In matches rows whose field equals one of vs.
func (b *B) In(field string, vs ...Value) *Filter {
	f := b.a.node()
	f.Op = OpIn
	f.Field = field
	f.Values = vs
	return f
}

// NotIn matches rows whose field equals none of vs.
func (b *B) NotIn(field string, vs ...Value) *Filter {
	f := b.a.node()
	f.Op = OpNotIn
	f.Field = field
	f.Values = vs
	return f
}

// IsNull matches rows whose field is NULL.
func (b *B) IsNull(field string) *Filter {
	f := b.a.node()
	f.Op = OpIsNull
	f.Field = field
	return f
}

// IsNotNull matches rows whose field is not NULL.
func (b *B) IsNotNull(field string) *Filter {
	f := b.a.node()
	f.Op = OpIsNotNull
	f.Field = field
	return f
}

// And returns the conjunction of the children, applying the same
// simplification as the package-level constructor.
func (b *B) And(children ...*Filter) *Filter {
	n := 0
	var only *Filter
	for _, c := range children {
		if !c.IsNone() {
			n++
			only = c
		}
	}
	switch n {
	case 0:
		return None()
	case 1:
		return only
	}
	f := b.a.node()
	f.Op = OpAnd
	kids := b.a.children(n)
	for _, c := range children {
		if !c.IsNone() {
			kids = append(kids, c)
		}
	}
	f.Children = kids
	return f
}

// Or returns the disjunction of the children, applying the same
// simplification as the package-level constructor.
func (b *B) Or(children ...*Filter) *Filter {
	for _, c := range children {
		if c.IsNone() {
			return None()
		}
	}
	switch len(children) {
	case 0:
		return None()
	case 1:
		return children[0]
	}
	f := b.a.node()
	f.Op = OpOr
	kids := b.a.children(len(children))
	kids = append(kids, children...)
	f.Children = kids
	return f
}

// Not negates the child.
func (b *B) Not(child *Filter) *Filter {
	if child.IsNone() {
		return None()
	}
	f := b.a.node()
	f.Op = OpNot
	kids := b.a.children(1)
	f.Children = append(kids, child)
	return f
}

var arenaPool = sync.Pool{
	New: func() any { return NewArena() },
}

// Build borrows a pooled arena, runs fn with a builder over it, and returns
// an owned copy of the tree fn produced. The returned tree shares no memory
// with the arena and is safe to publish across goroutines.
func Build(fn func(*B) *Filter) *Filter {
	a := arenaPool.Get().(*Arena)
	root := fn(&B{a: a})
	owned := materialize(root)
	a.Reset()
	arenaPool.Put(a)
	return owned
}

// materialize deep-copies an arena-backed tree into heap-owned nodes.
func materialize(f *Filter) *Filter {
	if f.IsNone() {
		return None()
	}
	o := &Filter{Op: f.Op, Field: f.Field, Value: f.Value, Values: f.Values}
	if len(f.Children) > 0 {
		o.Children = make([]*Filter, len(f.Children))
		for i, c := range f.Children {
			o.Children[i] = materialize(c)
		}
	}
	return o
}
