package heap

import (
	"fmt"
	"strings"
)

// ObjID is a unique identifier for a heap instance.
type ObjID uint64

// NullID is the ID of the null reference. No instance may use it.
const NullID ObjID = 0

// Type is the declared type of a field or of array elements.
type Type int

const (
	TypeObject Type = iota
	TypeBoolean
	TypeChar
	TypeFloat
	TypeDouble
	TypeByte
	TypeShort
	TypeInt
	TypeLong
)

var typeNames = map[Type]string{
	TypeObject:  "object",
	TypeBoolean: "boolean",
	TypeChar:    "char",
	TypeFloat:   "float",
	TypeDouble:  "double",
	TypeByte:    "byte",
	TypeShort:   "short",
	TypeInt:     "int",
	TypeLong:    "long",
}

// String returns the Java name of the type ("object" for references).
func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// IsObject reports whether values of this type are references.
func (t Type) IsObject() bool { return t == TypeObject }

// ParseType converts a type name back into a Type. The empty string is
// treated as "object".
func ParseType(s string) (Type, error) {
	if s == "" {
		return TypeObject, nil
	}
	s = strings.ToLower(s)
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// StaticOverheadField is the synthetic static field some snapshot formats use
// to account for class metadata size. It never holds a real reference.
const StaticOverheadField = "$staticOverhead"

// FieldValue is one static or instance field of a heap instance.
type FieldValue struct {
	Name  string
	Type  Type
	Ref   ObjID // referenced instance when Type is TypeObject, NullID for null
	Value any   // primitive value for every other type
}

// IsObject reports whether the field holds a reference.
func (f FieldValue) IsObject() bool { return f.Type.IsObject() }

// RootKind tells why the runtime considers an instance a GC root.
type RootKind int

const (
	RootUnknown RootKind = iota
	RootJNIGlobal
	RootJNILocal
	RootJavaLocal
	RootNativeStack
	RootStickyClass
	RootThreadBlock
	RootMonitorUsed
	RootThreadObject
	RootInternedString
	RootFinalizing
	RootDebugger
	RootReferenceCleanup
	RootVMInternal
	RootJNIMonitor
	RootUnreachable
	RootInvalid
)

var rootKindNames = map[RootKind]string{
	RootUnknown:          "unknown",
	RootJNIGlobal:        "jni-global",
	RootJNILocal:         "jni-local",
	RootJavaLocal:        "java-local",
	RootNativeStack:      "native-stack",
	RootStickyClass:      "sticky-class",
	RootThreadBlock:      "thread-block",
	RootMonitorUsed:      "monitor-used",
	RootThreadObject:     "thread-object",
	RootInternedString:   "interned-string",
	RootFinalizing:       "finalizing",
	RootDebugger:         "debugger",
	RootReferenceCleanup: "reference-cleanup",
	RootVMInternal:       "vm-internal",
	RootJNIMonitor:       "jni-monitor",
	RootUnreachable:      "unreachable",
	RootInvalid:          "invalid",
}

// String returns the kebab-case name used in snapshot files.
func (k RootKind) String() string {
	if s, ok := rootKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("root(%d)", int(k))
}

// ParseRootKind converts a kebab-case name into a RootKind.
func ParseRootKind(s string) (RootKind, error) {
	for k, name := range rootKindNames {
		if name == s {
			return k, nil
		}
	}
	return RootUnknown, fmt.Errorf("%w: %q", ErrUnknownRootKind, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k RootKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *RootKind) UnmarshalText(text []byte) error {
	v, err := ParseRootKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// HoldsReference reports whether roots of this kind actually keep their
// referent alive. Unreachable, finalizing, interned-string, debugger, invalid
// and unknown roots are bookkeeping entries of the snapshot format and never
// explain why an instance is retained.
func (k RootKind) HoldsReference() bool {
	switch k {
	case RootUnknown, RootInvalid, RootUnreachable, RootFinalizing,
		RootInternedString, RootDebugger:
		return false
	}
	return true
}
