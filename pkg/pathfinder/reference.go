package pathfinder

import "fmt"

// EdgeKind identifies how a holder references the next instance on a path.
type EdgeKind int

const (
	// StaticField is a static field of a class object.
	StaticField EdgeKind = iota
	// InstanceField is an instance field of an object.
	InstanceField
	// ArrayEntry is an element of an object array.
	ArrayEntry
	// ThreadLocal is a local variable on a thread's stack.
	ThreadLocal
)

var edgeKindNames = [...]string{
	StaticField:   "static field",
	InstanceField: "field",
	ArrayEntry:    "array entry",
	ThreadLocal:   "local",
}

func (k EdgeKind) String() string {
	if k >= 0 && int(k) < len(edgeKindNames) {
		return edgeKindNames[k]
	}
	return "unknown"
}

func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EdgeKind) UnmarshalText(text []byte) error {
	for i, name := range edgeKindNames {
		if name == string(text) {
			*k = EdgeKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown edge kind %q", text)
}

// ThreadLocalName labels edges from a thread to its local variables.
const ThreadLocalName = "<thread-local>"

// Reference is a labeled edge from a holder to the instance it keeps alive.
type Reference struct {
	Kind EdgeKind `json:"kind"`
	// Name is the field name, "[i]" for array entries, or ThreadLocalName.
	Name string `json:"name"`
}

func (r Reference) String() string {
	if r.Kind == StaticField {
		return "static " + r.Name
	}
	return r.Name
}
