package heap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidID is returned by [Snapshot.Add] for instances using [NullID].
	ErrInvalidID = errors.New("instance ID must not be zero")

	// ErrDuplicateID is returned by [Snapshot.Add] when an instance with the
	// same ID already exists.
	ErrDuplicateID = errors.New("duplicate instance ID")

	// ErrDanglingReference is returned by [Snapshot.Validate] when a class,
	// superclass, root referent or owning thread points at a missing instance.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrUnknownType is returned by [ParseType] for unknown type names.
	ErrUnknownType = errors.New("unknown type")

	// ErrUnknownRootKind is returned by [ParseRootKind] for unknown root kinds.
	ErrUnknownRootKind = errors.New("unknown root kind")
)

// Well-known class names the analysis relies on.
const (
	ClassObject = "java.lang.Object"
	ClassString = "java.lang.String"
	ClassThread = "java.lang.Thread"
)

var wrapperClasses = map[string]bool{
	"java.lang.Boolean":   true,
	"java.lang.Character": true,
	"java.lang.Float":     true,
	"java.lang.Double":    true,
	"java.lang.Byte":      true,
	"java.lang.Short":     true,
	"java.lang.Integer":   true,
	"java.lang.Long":      true,
}

// Graph is a read-only view over a heap snapshot.
type Graph interface {
	// Roots returns the GC roots in snapshot order.
	Roots() []*Root

	// Instance returns the instance with the given ID, or nil if the
	// snapshot has none (including for NullID).
	Instance(id ObjID) Instance

	// StringValue returns the decoded contents of a java.lang.String
	// instance, if the snapshot reader could decode them.
	StringValue(id ObjID) (string, bool)
}

// ClassOf returns the runtime class of an object or array, or nil.
func ClassOf(g Graph, inst Instance) *Class {
	var id ObjID
	switch v := inst.(type) {
	case *Object:
		id = v.Class
	case *Array:
		id = v.Class
	default:
		return nil
	}
	c, _ := g.Instance(id).(*Class)
	return c
}

// SuperOf returns the superclass of c, or nil at the top of the hierarchy.
func SuperOf(g Graph, c *Class) *Class {
	if c == nil || c.Super == NullID {
		return nil
	}
	s, _ := g.Instance(c.Super).(*Class)
	return s
}

// Extends reports whether c is the class named name or one of its subclasses.
func Extends(g Graph, c *Class, name string) bool {
	for ; c != nil; c = SuperOf(g, c) {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ClassName returns the class name describing inst: the name itself for
// class objects, the runtime class for objects and arrays.
func ClassName(g Graph, inst Instance) string {
	switch v := inst.(type) {
	case *Class:
		return v.Name
	case *Object:
		if c := ClassOf(g, v); c != nil {
			return c.Name
		}
		return "unknown"
	case *Array:
		if c := ClassOf(g, v); c != nil {
			return c.Name
		}
		if v.Elem.IsObject() {
			return ClassObject + "[]"
		}
		return v.Elem.String() + "[]"
	case *Root:
		return "GC root (" + v.Kind.String() + ")"
	}
	return "unknown"
}

// IsString reports whether inst is a java.lang.String instance.
func IsString(g Graph, inst Instance) bool {
	o, ok := inst.(*Object)
	if !ok {
		return false
	}
	c := ClassOf(g, o)
	return c != nil && c.Name == ClassString
}

// IsPrimitiveWrapper reports whether inst is a boxed primitive
// (java.lang.Integer, java.lang.Boolean, ...).
func IsPrimitiveWrapper(g Graph, inst Instance) bool {
	o, ok := inst.(*Object)
	if !ok {
		return false
	}
	c := ClassOf(g, o)
	return c != nil && wrapperClasses[c.Name]
}

// IsPrimitiveOrWrapperArray reports whether inst is a primitive array or an
// array of boxed primitives.
func IsPrimitiveOrWrapperArray(g Graph, inst Instance) bool {
	a, ok := inst.(*Array)
	if !ok {
		return false
	}
	if !a.Elem.IsObject() {
		return true
	}
	c := ClassOf(g, a)
	return c != nil && wrapperClasses[strings.TrimSuffix(c.Name, "[]")]
}

// OwningThread returns the thread instance holding a java-local root, or nil.
func OwningThread(g Graph, r *Root) Instance {
	if r.Kind != RootJavaLocal || r.Thread == NullID {
		return nil
	}
	return g.Instance(r.Thread)
}

// ThreadName returns the name of a java.lang.Thread instance. It reads the
// "name" field, which holds a String on current runtimes.
func ThreadName(g Graph, thread Instance) (string, bool) {
	o, ok := thread.(*Object)
	if !ok {
		return "", false
	}
	f, ok := o.Field("name")
	if !ok || !f.IsObject() || f.Ref == NullID {
		return "", false
	}
	return g.StringValue(f.Ref)
}

// Describe renders a reference the way field dumps show it:
// "null", or the class name followed by '@' and the instance ID.
func Describe(g Graph, id ObjID) string {
	if id == NullID {
		return "null"
	}
	inst := g.Instance(id)
	if inst == nil {
		return fmt.Sprintf("unknown@%d", id)
	}
	return fmt.Sprintf("%s@%d", ClassName(g, inst), id)
}

// FormatValue renders a field value for field dumps.
func FormatValue(g Graph, f FieldValue) string {
	if f.IsObject() {
		return Describe(g, f.Ref)
	}
	return fmt.Sprint(f.Value)
}
