package chain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/leakpath/pkg/exclusion"
	"github.com/matzehuels/leakpath/pkg/heap"
	"github.com/matzehuels/leakpath/pkg/pathfinder"
)

// HolderKind classifies the holder of a reference.
type HolderKind int

const (
	HolderObject HolderKind = iota
	HolderClass
	HolderThread
	HolderArray
)

var holderKindNames = [...]string{
	HolderObject: "object",
	HolderClass:  "class",
	HolderThread: "thread",
	HolderArray:  "array",
}

func (k HolderKind) String() string {
	if k >= 0 && int(k) < len(holderKindNames) {
		return holderKindNames[k]
	}
	return "unknown"
}

func (k HolderKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *HolderKind) UnmarshalText(text []byte) error {
	for i, name := range holderKindNames {
		if name == string(text) {
			*k = HolderKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown holder kind %q", text)
}

// Reference is the edge from a holder to the next element of the chain.
type Reference struct {
	Kind pathfinder.EdgeKind `json:"kind"`
	Name string              `json:"name"`
	// Value describes the referenced instance, e.g. "com.example.Foo@42".
	Value string `json:"value"`
}

// Element is one holder on a chain.
type Element struct {
	Holder    HolderKind `json:"holder"`
	ClassName string     `json:"class"`
	ObjectID  heap.ObjID `json:"id"`

	// Reference is nil for the last element.
	Reference *Reference `json:"reference,omitempty"`
	// Exclusion is the rule matched by Reference, if any.
	Exclusion *exclusion.Rule `json:"exclusion,omitempty"`
	// Extra annotates threads and anonymous classes.
	Extra string `json:"extra,omitempty"`
	// Fields dumps the holder's fields as "name = value" lines.
	Fields []string `json:"fields,omitempty"`
}

// Chain is the reference chain from a GC root to a leaking instance.
type Chain struct {
	Target        heap.ObjID    `json:"target"`
	RootKind      heap.RootKind `json:"root_kind"`
	UsedExclusion bool          `json:"used_exclusion"`
	Elements      []Element     `json:"elements"`
}

// String renders the element as a leak trace line, without the bullet.
func (e Element) String() string {
	var sb strings.Builder
	if e.Reference != nil && e.Reference.Kind == pathfinder.StaticField {
		sb.WriteString("static ")
	}
	if e.Holder == HolderArray || e.Holder == HolderThread {
		sb.WriteString(e.Holder.String())
		sb.WriteByte(' ')
	}
	sb.WriteString(e.ClassName)
	switch {
	case e.Reference == nil:
		sb.WriteString(" instance")
	case e.Reference.Kind == pathfinder.ArrayEntry:
		sb.WriteString(e.Reference.Name)
	default:
		sb.WriteByte('.')
		sb.WriteString(e.Reference.Name)
	}
	if e.Extra != "" {
		sb.WriteByte(' ')
		sb.WriteString(e.Extra)
	}
	if e.Exclusion != nil {
		sb.WriteString(" , matching exclusion ")
		sb.WriteString(e.Exclusion.Matching)
	}
	return sb.String()
}

// String renders the chain as a leak trace, one element per line.
func (c *Chain) String() string {
	var sb strings.Builder
	last := len(c.Elements) - 1
	for i, e := range c.Elements {
		sb.WriteString("* ")
		switch i {
		case last:
			sb.WriteString("leaks ")
		case 0:
			sb.WriteString("GC ROOT ")
		default:
			sb.WriteString("references ")
		}
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Clone returns a deep copy of c. Exclusion rules are shared.
func (c *Chain) Clone() *Chain {
	if c == nil {
		return nil
	}
	out := *c
	out.Elements = make([]Element, len(c.Elements))
	for i, e := range c.Elements {
		if e.Reference != nil {
			ref := *e.Reference
			e.Reference = &ref
		}
		e.Fields = slices.Clone(e.Fields)
		out.Elements[i] = e
	}
	return &out
}

// Len returns the number of references on the chain.
func (c *Chain) Len() int {
	if len(c.Elements) == 0 {
		return 0
	}
	return len(c.Elements) - 1
}
