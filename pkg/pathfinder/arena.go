package pathfinder

import (
	"github.com/matzehuels/leakpath/pkg/exclusion"
	"github.com/matzehuels/leakpath/pkg/heap"
)

const noParent = -1

// node is one traversal record: an instance reached through one edge.
// Nodes are created per edge, so an instance may own several nodes.
type node struct {
	inst      heap.Instance
	parent    int
	exclusion *exclusion.Rule
	ref       Reference
	hasRef    bool
	// excluded is set when this node or one of its ancestors carries an
	// exclusion.
	excluded bool
}

// arena stores the nodes of one search. Parents always have smaller
// indices than their children.
type arena struct {
	nodes []node
}

func (a *arena) add(n node) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

func (a *arena) get(i int) *node {
	return &a.nodes[i]
}

// Step is a read-only view of one node on a found path.
type Step struct {
	a   *arena
	idx int
}

// Instance returns the instance reached by this step.
func (s Step) Instance() heap.Instance { return s.a.nodes[s.idx].inst }

// Exclusion returns the rule applied to the edge reaching this step, or nil.
func (s Step) Exclusion() *exclusion.Rule { return s.a.nodes[s.idx].exclusion }

// Reference returns the edge from the parent to this step. It reports false
// for the first step of a path and for direct root referents.
func (s Step) Reference() (Reference, bool) {
	n := &s.a.nodes[s.idx]
	return n.ref, n.hasRef
}

// Parent returns the step holding this one.
func (s Step) Parent() (Step, bool) {
	p := s.a.nodes[s.idx].parent
	if p == noParent {
		return Step{}, false
	}
	return Step{a: s.a, idx: p}, true
}
