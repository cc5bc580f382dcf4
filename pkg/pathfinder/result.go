package pathfinder

import (
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/heap"
)

// Result is the path found for one target.
type Result struct {
	Target heap.ObjID

	// UsedExclusion is true when the path crosses an edge matching a
	// conditional exclusion rule, meaning no exclusion-free path exists.
	UsedExclusion bool

	a    *arena
	head int
}

// Head returns the step reaching the target.
func (r *Result) Head() Step {
	return Step{a: r.a, idx: r.head}
}

// Path returns the steps from the top of the path (a GC root or the thread
// holding a local) down to the target.
func (r *Result) Path() []Step {
	var path []Step
	for s, ok := r.Head(), true; ok; s, ok = s.Parent() {
		path = append(path, s)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Len returns the number of edges on the path.
func (r *Result) Len() int {
	return len(r.Path()) - 1
}

// Walk calls fn for each step from the target up to the top of the path.
// It returns an internal error if the parent links do not terminate, which
// only happens if the arena is corrupted.
func (r *Result) Walk(fn func(Step) error) error {
	limit := len(r.a.nodes)
	s, ok := r.Head(), true
	for n := 0; ok; n++ {
		if n > limit {
			return errors.Internal("parent chain of target %d does not terminate", r.Target)
		}
		if err := fn(s); err != nil {
			return err
		}
		s, ok = s.Parent()
	}
	return nil
}
