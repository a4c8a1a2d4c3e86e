package engine

import (
	"sort"

	"github.com/strata-io/strata/internal/ir"
)

// Graph is the directed acyclic dependency graph over a descriptor set.
// An edge A -> B means A depends on B: B must be applied (and ready) first.
type Graph struct {
	nodes map[string]*graphNode
	order []string // declaration order
}

type graphNode struct {
	name       string
	descriptor *ir.Descriptor
	declIndex  int
	deps       []string // resources this node depends on
	dependents []string // resources that depend on this node
}

// BuildGraph constructs the dependency graph from a descriptor set. Edges come
// from explicit depends_on hints and from Reference values inside attribute
// maps; both are normalized into the same edge set. The result is independent
// of input iteration order: edges are deduplicated and sorted by the target's
// declaration position.
func BuildGraph(descriptors []*ir.Descriptor) (*Graph, error) {
	g := &Graph{
		nodes: make(map[string]*graphNode, len(descriptors)),
	}

	for i, d := range descriptors {
		g.nodes[d.Name] = &graphNode{name: d.Name, descriptor: d, declIndex: i}
		g.order = append(g.order, d.Name)
	}

	for _, d := range descriptors {
		node := g.nodes[d.Name]
		seen := make(map[string]bool)

		addEdge := func(target string) error {
			if target == d.Name || seen[target] {
				return nil
			}
			if _, ok := g.nodes[target]; !ok {
				return &UnresolvedReferenceError{From: d.Name, To: target}
			}
			seen[target] = true
			node.deps = append(node.deps, target)
			return nil
		}

		for _, dep := range d.DependsOn {
			if err := addEdge(dep); err != nil {
				return nil, err
			}
		}
		for _, ref := range ir.ExtractReferences(d.Attributes) {
			if err := addEdge(ref.Target); err != nil {
				return nil, err
			}
		}

		sort.Slice(node.deps, func(a, b int) bool {
			return g.nodes[node.deps[a]].declIndex < g.nodes[node.deps[b]].declIndex
		})
	}

	for _, node := range g.nodes {
		for _, dep := range node.deps {
			g.nodes[dep].dependents = append(g.nodes[dep].dependents, node.name)
		}
	}
	for _, node := range g.nodes {
		sort.Slice(node.dependents, func(a, b int) bool {
			return g.nodes[node.dependents[a]].declIndex < g.nodes[node.dependents[b]].declIndex
		})
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleDetectedError{Path: cycle}
	}

	return g, nil
}

// findCycle runs depth-first traversal with a recursion stack and returns the
// first cycle found, closed back to its first element, or nil.
func (g *Graph) findCycle() []string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(name string) []string
	visit = func(name string) []string {
		state[name] = inStack
		stack = append(stack, name)

		for _, dep := range g.nodes[name].deps {
			switch state[dep] {
			case inStack:
				// Slice the stack from the first occurrence of dep and close it.
				for i, n := range stack {
					if n == dep {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, dep)
					}
				}
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	for _, name := range g.order {
		if state[name] == unvisited {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// TopoOrder returns a topological ordering of the graph. Among resources whose
// dependencies are all satisfied, declaration order decides, so the ordering
// is deterministic.
func (g *Graph) TopoOrder() []string {
	remaining := make(map[string]int, len(g.nodes))
	for name, node := range g.nodes {
		remaining[name] = len(node.deps)
	}

	var ready []string
	for _, name := range g.order {
		if remaining[name] == 0 {
			ready = append(ready, name)
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		// Pick the ready node declared earliest.
		best := 0
		for i := 1; i < len(ready); i++ {
			if g.nodes[ready[i]].declIndex < g.nodes[ready[best]].declIndex {
				best = i
			}
		}
		name := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		sorted = append(sorted, name)

		for _, dependent := range g.nodes[name].dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	return sorted
}

// ReverseTopoOrder returns the destruction-safe ordering: every resource
// precedes everything it depends on.
func (g *Graph) ReverseTopoOrder() []string {
	order := g.TopoOrder()
	rev := make([]string, len(order))
	for i, name := range order {
		rev[len(order)-1-i] = name
	}
	return rev
}

// Dependencies returns the direct dependencies of a logical name.
func (g *Graph) Dependencies(name string) []string {
	if node, ok := g.nodes[name]; ok {
		return node.deps
	}
	return nil
}

// Dependents returns the resources that directly depend on a logical name.
func (g *Graph) Dependents(name string) []string {
	if node, ok := g.nodes[name]; ok {
		return node.dependents
	}
	return nil
}

// Descriptor returns the descriptor behind a graph node, or nil.
func (g *Graph) Descriptor(name string) *ir.Descriptor {
	if node, ok := g.nodes[name]; ok {
		return node.descriptor
	}
	return nil
}

// Names returns all node names in declaration order.
func (g *Graph) Names() []string {
	return g.order
}
