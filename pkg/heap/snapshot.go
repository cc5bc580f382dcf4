package heap

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Snapshot is an in-memory implementation of [Graph].
type Snapshot struct {
	mu        sync.RWMutex
	instances map[ObjID]Instance
	roots     []*Root
	strings   map[ObjID]string
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		instances: make(map[ObjID]Instance),
		strings:   make(map[ObjID]string),
	}
}

// Add inserts an instance. Roots are also appended to the root list, in
// insertion order.
func (s *Snapshot) Add(inst Instance) error {
	id := inst.ObjectID()
	if id == NullID {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateID, id)
	}
	s.instances[id] = inst
	if r, ok := inst.(*Root); ok {
		s.roots = append(s.roots, r)
	}
	return nil
}

// SetString records the decoded contents of a String instance.
func (s *Snapshot) SetString(id ObjID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[id] = value
}

// Roots returns the GC roots in insertion order.
func (s *Snapshot) Roots() []*Root {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

// Instance returns the instance with the given ID, or nil.
func (s *Snapshot) Instance(id ObjID) Instance {
	if id == NullID {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instances[id]
}

// StringValue returns the contents recorded with [Snapshot.SetString].
func (s *Snapshot) StringValue(id ObjID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[id]
	return v, ok
}

// NumInstances returns the number of instances, roots included.
func (s *Snapshot) NumInstances() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}

// IDs returns all instance IDs in ascending order.
func (s *Snapshot) IDs() []ObjID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ObjID, 0, len(s.instances))
	for id := range s.instances {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ForEach calls fn for every instance in ascending ID order.
// fn must not modify the snapshot.
func (s *Snapshot) ForEach(fn func(Instance)) {
	for _, id := range s.IDs() {
		fn(s.Instance(id))
	}
}

// InstancesOf returns the IDs of all objects and arrays whose runtime class
// is named className, in ascending order.
func (s *Snapshot) InstancesOf(className string) []ObjID {
	var ids []ObjID
	s.ForEach(func(inst Instance) {
		switch inst.(type) {
		case *Object, *Array:
			if c := ClassOf(s, inst); c != nil && c.Name == className {
				ids = append(ids, inst.ObjectID())
			}
		}
	})
	return ids
}

// Validate checks that every class, superclass, root referent and owning
// thread reference resolves to an instance of the expected kind. Field and
// array references are not checked; readers may drop unreachable data.
func (s *Snapshot) Validate() error {
	var errs []error
	dangling := func(id ObjID, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s (id %d)", ErrDanglingReference, fmt.Sprintf(format, args...), id))
	}

	s.ForEach(func(inst Instance) {
		switch v := inst.(type) {
		case *Object:
			if _, ok := s.Instance(v.Class).(*Class); !ok {
				dangling(v.Class, "class of object %d", v.ID)
			}
		case *Array:
			if v.Class != NullID {
				if _, ok := s.Instance(v.Class).(*Class); !ok {
					dangling(v.Class, "class of array %d", v.ID)
				}
			}
		case *Class:
			if v.Super != NullID {
				if _, ok := s.Instance(v.Super).(*Class); !ok {
					dangling(v.Super, "superclass of %s", v.Name)
				}
			}
		case *Root:
			if v.Referent != NullID && s.Instance(v.Referent) == nil {
				dangling(v.Referent, "referent of root %d", v.ID)
			}
			if v.Kind == RootJavaLocal && v.Thread != NullID && s.Instance(v.Thread) == nil {
				dangling(v.Thread, "thread of root %d", v.ID)
			}
		}
	})
	return errors.Join(errs...)
}

// Ensure Snapshot implements Graph.
var _ Graph = (*Snapshot)(nil)
