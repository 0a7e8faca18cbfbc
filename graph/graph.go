package graph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/syssam/prax/schema"
)

// CycleError reports a foreign-key cycle between models. Models lists the
// members in traversal order, so the message reads as the loop itself.
type CycleError struct {
	Models []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return "prax: relation cycle involving models " + strings.Join(e.Models, ", ")
}

// IsCycle reports whether err is a *CycleError.
func IsCycle(err error) bool {
	if err == nil {
		return false
	}
	var target *CycleError
	return errors.As(err, &target)
}

// Graph is the foreign-key dependency multigraph of a validated schema.
// Nodes are model names; an edge from A to B exists for every relation on A
// whose foreign key references B. Two models may be connected by several
// edges, one per relation.
//
// Self-referential relations never form edges. Their constraints cannot be
// part of CREATE TABLE ordering and are surfaced through DeferredRelations
// instead, to be added after the table exists.
type Graph struct {
	schema *schema.Schema
	nodes  []string
	owning map[string][]*schema.Relation
	deps   map[string][]string
	revs   map[string][]string
	defers []*schema.Relation
}

// New builds the dependency graph of s. The schema must have been validated
// first: the graph reads the materialized relation list and trusts that
// every relation target resolves to a model.
func New(s *schema.Schema) *Graph {
	g := &Graph{
		schema: s,
		nodes:  s.ModelNames(),
		owning: make(map[string][]*schema.Relation, len(s.Models)),
		deps:   make(map[string][]string, len(s.Models)),
		revs:   make(map[string][]string, len(s.Models)),
	}
	slices.Sort(g.nodes)

	depSet := make(map[string]map[string]bool, len(g.nodes))
	for _, r := range s.Relations {
		if !g.owns(r) {
			continue
		}
		g.owning[r.From] = append(g.owning[r.From], r)
		if r.From == r.To {
			g.defers = append(g.defers, r)
			continue
		}
		if depSet[r.From] == nil {
			depSet[r.From] = make(map[string]bool)
		}
		depSet[r.From][r.To] = true
	}
	for from, targets := range depSet {
		for to := range targets {
			g.deps[from] = append(g.deps[from], to)
			g.revs[to] = append(g.revs[to], from)
		}
	}
	for _, m := range g.deps {
		slices.Sort(m)
	}
	for _, m := range g.revs {
		slices.Sort(m)
	}
	slices.SortFunc(g.defers, func(a, b *schema.Relation) int {
		if a.From != b.From {
			return strings.Compare(a.From, b.From)
		}
		return strings.Compare(a.FromField, b.FromField)
	})
	return g
}

// owns reports whether r is the side of its relation that carries the
// foreign key. Explicit fields settle it outright. Without them a singular
// reference owns the key when its inverse is the list side or there is no
// inverse at all; when both sides are singular and neither declares fields
// the relation has no resolvable key and contributes no edge.
func (g *Graph) owns(r *schema.Relation) bool {
	if len(r.FromFields) > 0 {
		return true
	}
	if r.Kind != schema.ManyToOne {
		return false
	}
	inv, ok := r.Inverse(g.schema)
	if !ok {
		return true
	}
	if len(inv.FromFields) > 0 {
		return false
	}
	return inv.Kind == schema.OneToMany
}

// Models returns every node in name order.
func (g *Graph) Models() []string {
	return slices.Clone(g.nodes)
}

// Dependencies returns the models that model references through its foreign
// keys, in name order and without duplicates. Self-references are excluded.
func (g *Graph) Dependencies(model string) []string {
	return slices.Clone(g.deps[model])
}

// Dependents returns the models whose foreign keys reference model, in name
// order and without duplicates.
func (g *Graph) Dependents(model string) []string {
	return slices.Clone(g.revs[model])
}

// Edges returns every foreign-key relation from one model to another. The
// result preserves the relation's declaration order on the owning model.
func (g *Graph) Edges(from, to string) []*schema.Relation {
	var out []*schema.Relation
	for _, r := range g.owning[from] {
		if r.To == to {
			out = append(out, r)
		}
	}
	return out
}

// ForeignKeys returns the relations whose foreign key lives on model,
// including self-references, in declaration order.
func (g *Graph) ForeignKeys(model string) []*schema.Relation {
	return slices.Clone(g.owning[model])
}

// DeferredRelations returns the self-referential foreign keys of the whole
// schema, ordered by model then field. DDL generation creates their tables
// without the constraint and adds it afterwards.
func (g *Graph) DeferredRelations() []*schema.Relation {
	return slices.Clone(g.defers)
}

// DependencyOrder returns the models sorted so that every referenced model
// precedes the models referencing it. Creating tables in this order
// satisfies all non-deferred foreign keys; nested writes insert parents
// before children along the same order.
//
// Among models that are free to go next, the lexicographically smallest is
// emitted first, so the order is stable across runs. A foreign-key cycle
// between two or more models yields a *CycleError naming the loop.
func (g *Graph) DependencyOrder() ([]string, error) {
	indeg := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		indeg[n] = len(g.deps[n])
	}

	var ready []string
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, d := range g.revs[n] {
			indeg[d]--
			if indeg[d] == 0 {
				i, _ := slices.BinarySearch(ready, d)
				ready = slices.Insert(ready, i, d)
			}
		}
	}
	if len(order) != len(g.nodes) {
		residual := make(map[string]bool)
		for n, d := range indeg {
			if d > 0 {
				residual[n] = true
			}
		}
		return nil, &CycleError{Models: g.findCycle(residual)}
	}
	return order, nil
}

// ReverseOrder returns DependencyOrder backwards: referencing models first.
// Dropping tables or cascading deletes by hand walk this order.
func (g *Graph) ReverseOrder() ([]string, error) {
	order, err := g.DependencyOrder()
	if err != nil {
		return nil, err
	}
	slices.Reverse(order)
	return order, nil
}

// findCycle walks the residual graph left behind by a failed topological
// sort and extracts one concrete loop. Every residual node depends on a
// cycle, so the walk always closes.
func (g *Graph) findCycle(residual map[string]bool) []string {
	const (
		unseen = iota
		onPath
		done
	)
	state := make(map[string]int, len(residual))
	var path []string
	var cycle []string

	var walk func(n string) bool
	walk = func(n string) bool {
		state[n] = onPath
		path = append(path, n)
		for _, d := range g.deps[n] {
			if !residual[d] {
				continue
			}
			switch state[d] {
			case unseen:
				if walk(d) {
					return true
				}
			case onPath:
				i := slices.Index(path, d)
				cycle = append(cycle, path[i:]...)
				return true
			}
		}
		path = path[:len(path)-1]
		state[n] = done
		return false
	}

	for _, n := range g.nodes {
		if residual[n] && state[n] == unseen {
			if walk(n) {
				return cycle
			}
		}
	}
	// Unreachable on a residual set produced by DependencyOrder.
	names := make([]string, 0, len(residual))
	for n := range residual {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// String renders the graph one model per line for debugging.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, n := range g.nodes {
		fmt.Fprintf(&sb, "%s -> %s\n", n, strings.Join(g.deps[n], ", "))
	}
	return sb.String()
}
