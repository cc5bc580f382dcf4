// Package pathfinder finds the shortest reference paths from GC roots to
// suspected leaking instances.
//
// # Search
//
// [Finder.FindShortestPaths] runs one breadth-first traversal from every GC
// root and records a path for each target the first time the traversal
// reaches it. Searching for many targets costs the same as searching for the
// farthest one: the frontier is shared and every instance is expanded at
// most once.
//
// The traversal uses two FIFO queues. Edges without an exclusion rule go to
// the visit-now queue; edges matching a conditional [exclusion.Rule] go to a
// deferred queue that is only drained once the visit-now queue is empty. A
// path that avoids known-benign holders is therefore always preferred over
// one through them, whatever their lengths. Edges matching an AlwaysExclude
// rule are never followed.
//
// # Edges
//
//   - GC roots point at their referent. Roots of java-local variables are
//     reported as held by their owning thread; thread name rules apply.
//   - Class objects point at the values of their object-typed static fields.
//   - Objects point at the values of their object-typed instance fields.
//     Class rules along the superclass chain apply to all fields.
//   - Object arrays point at their non-null elements.
//
// Primitive arrays, boxed primitives and (unless a target is a String)
// strings are never traversed.
//
// # Results
//
// Each [Result] exposes its path as [Step] values, from the root side to the
// target. Nodes live in an arena indexed by integers, owned by the results of
// a call, so results stay valid after the call returns and after later calls.
package pathfinder
