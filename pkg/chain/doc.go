// Package chain turns search results into reference chains a person can
// read.
//
// A [Chain] lists, from the GC root down to the leaking instance, every
// holder on the path together with the reference it uses to keep the next
// instance alive. Each [Element] also carries a dump of the holder's fields
// for diagnosis. The last element is the leaking instance itself and has no
// outgoing reference.
//
// Anonymous classes (Foo$1) are annotated with the interface they implement
// when an [InterfaceResolver] can find the class on the analyzer's own
// classpath. Resolution is best effort; failures only drop the annotation.
//
// [Chain.String] renders the classic leak trace format:
//
//	* GC ROOT static com.example.Bus.listener
//	* references com.example.Listener.activity , matching exclusion field com.example.Listener#activity
//	* leaks com.example.Activity instance
package chain
