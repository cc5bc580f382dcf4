package pathfinder

import (
	"testing"

	"github.com/matzehuels/leakpath/pkg/heap"
)

// testHeap builds small snapshots. Instances are added bottom-up: anything
// referenced must be created first so its ID is known.
type testHeap struct {
	t    *testing.T
	s    *heap.Snapshot
	next heap.ObjID

	object, str, thread, integer heap.ObjID
}

func newTestHeap(t *testing.T) *testHeap {
	t.Helper()
	h := &testHeap{t: t, s: heap.NewSnapshot(), next: 1}
	h.object = h.class(heap.ClassObject, heap.NullID)
	h.str = h.class(heap.ClassString, h.object)
	h.thread = h.class(heap.ClassThread, h.object)
	h.integer = h.class("java.lang.Integer", h.object)
	return h
}

func (h *testHeap) add(inst heap.Instance) heap.ObjID {
	h.t.Helper()
	if err := h.s.Add(inst); err != nil {
		h.t.Fatalf("add %d: %v", inst.ObjectID(), err)
	}
	return inst.ObjectID()
}

func (h *testHeap) id() heap.ObjID {
	id := h.next
	h.next++
	return id
}

func (h *testHeap) class(name string, super heap.ObjID, statics ...heap.FieldValue) heap.ObjID {
	h.t.Helper()
	return h.add(&heap.Class{ID: h.id(), Name: name, Super: super, Statics: statics})
}

func (h *testHeap) obj(class heap.ObjID, fields ...heap.FieldValue) heap.ObjID {
	h.t.Helper()
	return h.add(&heap.Object{ID: h.id(), Class: class, Fields: fields})
}

func (h *testHeap) objArray(refs ...heap.ObjID) heap.ObjID {
	h.t.Helper()
	return h.add(&heap.Array{ID: h.id(), Elem: heap.TypeObject, Refs: refs})
}

func (h *testHeap) root(kind heap.RootKind, ref heap.ObjID) heap.ObjID {
	h.t.Helper()
	return h.add(&heap.Root{ID: h.id(), Kind: kind, Referent: ref})
}

// threadRoot adds a thread named name and a java-local root it owns.
func (h *testHeap) threadRoot(name string, ref heap.ObjID) (thread heap.ObjID) {
	h.t.Helper()
	nameID := h.obj(h.str)
	h.s.SetString(nameID, name)
	thread = h.obj(h.thread, field("name", nameID))
	h.add(&heap.Root{ID: h.id(), Kind: heap.RootJavaLocal, Referent: ref, Thread: thread})
	return thread
}

func field(name string, ref heap.ObjID) heap.FieldValue {
	return heap.FieldValue{Name: name, Type: heap.TypeObject, Ref: ref}
}

func intField(name string, v int64) heap.FieldValue {
	return heap.FieldValue{Name: name, Type: heap.TypeInt, Value: v}
}

// pathIDs returns the instance IDs along a result's path, top first.
func pathIDs(r *Result) []heap.ObjID {
	var ids []heap.ObjID
	for _, s := range r.Path() {
		ids = append(ids, s.Instance().ObjectID())
	}
	return ids
}
