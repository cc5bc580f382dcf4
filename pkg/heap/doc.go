// Package heap defines the read-only object model of a captured heap
// snapshot, as consumed by the path finder and the chain builder.
//
// # Instances
//
// Every node of the heap graph is an [Instance]. The set of instance kinds is
// closed; a type switch over an Instance only ever needs four cases:
//
//   - [*Root]: a GC root. It refers to exactly one other instance and carries
//     a [RootKind] describing why the runtime keeps it alive.
//   - [*Class]: a class object, holding the static fields of the class.
//   - [*Object]: an instance of a class, holding its instance fields.
//   - [*Array]: an array of object references or of primitive values.
//
// Instances are identified by [ObjID]. Two instances are the same instance
// exactly when their IDs are equal. [NullID] stands for a null reference.
//
// # Graphs
//
// [Graph] is the contract a snapshot reader must satisfy. [Snapshot] is the
// in-memory implementation used by the JSON reader in package heapio and by
// tests:
//
//	s := heap.NewSnapshot()
//	s.Add(&heap.Class{ID: 1, Name: "java.lang.Object"})
//	s.Add(&heap.Class{ID: 2, Name: "com.example.Cache", Super: 1})
//	s.Add(&heap.Object{ID: 10, Class: 2})
//	s.Add(&heap.Root{ID: 100, Kind: heap.RootStickyClass, Referent: 2})
//
// # Concurrency
//
// A Snapshot guards its maps with a read/write mutex, so any number of
// readers may query it concurrently once it has been populated. The path
// finder and the chain builder never mutate a graph.
package heap
