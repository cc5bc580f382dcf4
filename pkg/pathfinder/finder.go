package pathfinder

import (
	"strconv"

	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/exclusion"
	"github.com/matzehuels/leakpath/pkg/heap"
)

// Stats counts the work done by the last [Finder.FindShortestPaths] call.
type Stats struct {
	Roots            int // roots seeded
	Visited          int // instances expanded
	EnqueuedNow      int // nodes put on the visit-now queue
	EnqueuedDeferred int // nodes put on the deferred queue
	Duplicates       int // nodes discarded because their instance was already expanded
}

// Finder searches heap graphs for shortest paths to GC roots.
//
// A Finder keeps per-call state and must not be used by several goroutines
// at once. Create one Finder per goroutine; the [exclusion.Ruleset] can be
// shared.
type Finder struct {
	rules *exclusion.Ruleset

	g             heap.Graph
	a             *arena
	now, deferred queue
	scheduledNow  map[heap.ObjID]struct{}
	scheduledLate map[heap.ObjID]struct{}
	visited       map[heap.ObjID]struct{}
	ignoreStrings bool
	classes       map[heap.ObjID]*classRules
	stats         Stats
}

// classRules are the rules accumulated over a class and its superclasses.
type classRules struct {
	class  *exclusion.Rule
	fields map[string]*exclusion.Rule
}

// New creates a Finder applying rules. A nil ruleset excludes nothing.
func New(rules *exclusion.Ruleset) *Finder {
	return &Finder{rules: rules}
}

// Stats returns the counters of the last call.
func (f *Finder) Stats() Stats {
	return f.stats
}

// FindShortestPaths searches g for paths from GC roots to every target.
//
// Targets that are unreachable from all roots, or missing from g, are absent
// from the result. An empty target list returns an empty map without
// traversing the graph. The only errors are internal ones, reported when
// the graph breaks the invariants the traversal depends on; no partial
// results are returned with them.
func (f *Finder) FindShortestPaths(g heap.Graph, targets []heap.ObjID) (map[heap.ObjID]*Result, error) {
	results := make(map[heap.ObjID]*Result)

	pending := make(map[heap.ObjID]struct{}, len(targets))
	ignoreStrings := true
	for _, id := range targets {
		inst := g.Instance(id)
		if inst == nil {
			continue
		}
		pending[id] = struct{}{}
		if heap.IsString(g, inst) {
			ignoreStrings = false
		}
	}

	f.reset(g, ignoreStrings)
	defer f.release()
	if len(pending) == 0 {
		return results, nil
	}

	f.seed()

	for {
		idx, fromDeferred, ok := f.pop()
		if !ok {
			break
		}
		n := f.a.get(idx)
		if fromDeferred && n.exclusion == nil {
			return nil, errors.Internal("deferred node for instance %d has no exclusion", n.inst.ObjectID())
		}

		id := n.inst.ObjectID()
		if _, ok := pending[id]; ok {
			results[id] = &Result{Target: id, UsedExclusion: n.excluded, a: f.a, head: idx}
			delete(pending, id)
			if len(pending) == 0 {
				break
			}
		}

		if _, ok := f.visited[id]; ok {
			f.stats.Duplicates++
			continue
		}
		f.visited[id] = struct{}{}
		f.stats.Visited++

		if err := f.expand(idx); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (f *Finder) reset(g heap.Graph, ignoreStrings bool) {
	f.g = g
	f.a = &arena{}
	f.now = queue{}
	f.deferred = queue{}
	f.scheduledNow = make(map[heap.ObjID]struct{})
	f.scheduledLate = make(map[heap.ObjID]struct{})
	f.visited = make(map[heap.ObjID]struct{})
	f.classes = make(map[heap.ObjID]*classRules)
	f.ignoreStrings = ignoreStrings
	f.stats = Stats{}
}

// release drops per-call state. The arena stays alive through the results.
func (f *Finder) release() {
	f.g = nil
	f.a = nil
	f.now = queue{}
	f.deferred = queue{}
	f.scheduledNow = nil
	f.scheduledLate = nil
	f.visited = nil
	f.classes = nil
}

func (f *Finder) pop() (idx int, fromDeferred, ok bool) {
	if idx, ok := f.now.pop(); ok {
		return idx, false, true
	}
	if idx, ok := f.deferred.pop(); ok {
		return idx, true, true
	}
	return 0, false, false
}

// =============================================================================
// Roots
// =============================================================================

func (f *Finder) seed() {
	for _, r := range f.g.Roots() {
		if !r.Kind.HoldsReference() {
			continue
		}
		var rule *exclusion.Rule
		if r.Kind == heap.RootJavaLocal {
			rule = f.threadRule(r)
			if rule.Strength() == exclusion.StrengthAlways {
				continue
			}
		}
		f.stats.Roots++
		f.enqueue(rule, noParent, r, nil)
	}
}

func (f *Finder) threadRule(r *heap.Root) *exclusion.Rule {
	thread := heap.OwningThread(f.g, r)
	if thread == nil {
		return nil
	}
	name, ok := heap.ThreadName(f.g, thread)
	if !ok {
		return nil
	}
	return f.rules.Thread(name)
}

func (f *Finder) expandRoot(idx int, r *heap.Root) {
	child := f.g.Instance(r.Referent)
	if r.Kind != heap.RootJavaLocal {
		f.enqueue(nil, idx, child, nil)
		return
	}

	// The thread replaces the root as holder of its locals.
	parent := idx
	if thread := heap.OwningThread(f.g, r); thread != nil {
		parent = f.a.add(node{inst: thread, parent: noParent})
	}
	f.enqueue(f.a.get(idx).exclusion, parent, child, &Reference{Kind: ThreadLocal, Name: ThreadLocalName})
}

// =============================================================================
// Expansion
// =============================================================================

func (f *Finder) expand(idx int) error {
	switch v := f.a.get(idx).inst.(type) {
	case *heap.Root:
		f.expandRoot(idx, v)
	case *heap.Class:
		f.expandClass(idx, v)
	case *heap.Object:
		return f.expandObject(idx, v)
	case *heap.Array:
		f.expandArray(idx, v)
	default:
		return errors.Internal("unexpected instance type %T", v)
	}
	return nil
}

func (f *Finder) expandClass(idx int, c *heap.Class) {
	for _, field := range c.Statics {
		if !field.IsObject() || field.Name == heap.StaticOverheadField {
			continue
		}
		rule := f.rules.StaticField(c.Name, field.Name)
		if rule.Strength() == exclusion.StrengthAlways {
			continue
		}
		f.enqueue(rule, idx, f.g.Instance(field.Ref), &Reference{Kind: StaticField, Name: field.Name})
	}
}

func (f *Finder) expandObject(idx int, o *heap.Object) error {
	rules, err := f.classRulesFor(heap.ClassOf(f.g, o))
	if err != nil {
		return err
	}
	if rules.class.Strength() == exclusion.StrengthAlways {
		return nil
	}
	for _, field := range o.Fields {
		if !field.IsObject() || field.Ref == heap.NullID {
			continue
		}
		rule := exclusion.Stronger(rules.class, rules.fields[field.Name])
		if rule.Strength() == exclusion.StrengthAlways {
			continue
		}
		f.enqueue(rule, idx, f.g.Instance(field.Ref), &Reference{Kind: InstanceField, Name: field.Name})
	}
	return nil
}

// classRulesFor accumulates the rules of c and its superclasses. The
// strongest class rule wins, the most derived one on ties. Field rules
// declared by a subclass shadow those of its superclasses.
func (f *Finder) classRulesFor(c *heap.Class) (*classRules, error) {
	if c == nil {
		return &classRules{}, nil
	}
	if cr, ok := f.classes[c.ID]; ok {
		return cr, nil
	}

	cr := &classRules{fields: make(map[string]*exclusion.Rule)}
	seen := make(map[heap.ObjID]struct{})
	for k := c; k != nil; k = heap.SuperOf(f.g, k) {
		if _, ok := seen[k.ID]; ok {
			return nil, errors.Internal("superclass chain of %s loops at %s", c.Name, k.Name)
		}
		seen[k.ID] = struct{}{}

		cr.class = exclusion.Stronger(cr.class, f.rules.Class(k.Name))
		for name, rule := range f.rules.InstanceFields(k.Name) {
			if _, ok := cr.fields[name]; !ok {
				cr.fields[name] = rule
			}
		}
	}
	f.classes[c.ID] = cr
	return cr, nil
}

func (f *Finder) expandArray(idx int, a *heap.Array) {
	if !a.Elem.IsObject() {
		return
	}
	for i, ref := range a.Refs {
		if ref == heap.NullID {
			continue
		}
		f.enqueue(nil, idx, f.g.Instance(ref), &Reference{Kind: ArrayEntry, Name: "[" + strconv.Itoa(i) + "]"})
	}
}

// enqueue schedules child unless it is skipped. Skip checks run in a fixed
// order: a child already scheduled on the visit-now queue is never
// scheduled again, while one only on the deferred queue can still be
// scheduled on the visit-now queue.
func (f *Finder) enqueue(rule *exclusion.Rule, parent int, child heap.Instance, ref *Reference) {
	if child == nil {
		return
	}
	if heap.IsPrimitiveOrWrapperArray(f.g, child) || heap.IsPrimitiveWrapper(f.g, child) {
		return
	}
	id := child.ObjectID()
	if _, ok := f.scheduledNow[id]; ok {
		return
	}
	visitNow := rule == nil
	if !visitNow {
		if _, ok := f.scheduledLate[id]; ok {
			return
		}
	}
	if f.ignoreStrings && heap.IsString(f.g, child) {
		return
	}
	if _, ok := f.visited[id]; ok {
		return
	}

	n := node{inst: child, parent: parent, exclusion: rule, excluded: rule != nil}
	if parent != noParent {
		n.excluded = n.excluded || f.a.get(parent).excluded
	}
	if ref != nil {
		n.ref, n.hasRef = *ref, true
	}
	idx := f.a.add(n)

	if visitNow {
		f.scheduledNow[id] = struct{}{}
		f.now.push(idx)
		f.stats.EnqueuedNow++
	} else {
		f.scheduledLate[id] = struct{}{}
		f.deferred.push(idx)
		f.stats.EnqueuedDeferred++
	}
}
