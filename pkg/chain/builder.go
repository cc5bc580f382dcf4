package chain

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/heap"
	"github.com/matzehuels/leakpath/pkg/pathfinder"
)

var anonymousClass = regexp.MustCompile(`^.+\$\d+$`)

// InterfaceResolver looks up the interfaces a class implements, using the
// class definitions available to the analyzer rather than the heap.
// Implementations must be safe for concurrent use.
type InterfaceResolver interface {
	Interfaces(className string) ([]string, error)
}

// Option configures a [Builder].
type Option func(*Builder)

// WithInterfaceResolver enables annotating anonymous classes with the
// interface they implement.
func WithInterfaceResolver(r InterfaceResolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithLogger sets the logger receiving lookup failures at debug level.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// Builder builds chains over one heap graph. It holds no mutable state and
// can be shared by goroutines.
type Builder struct {
	g        heap.Graph
	resolver InterfaceResolver
	logger   *log.Logger
}

// NewBuilder creates a Builder for results found in g.
func NewBuilder(g heap.Graph, opts ...Option) *Builder {
	b := &Builder{g: g}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build converts a search result into a chain ordered from the GC root to
// the target. Holders that are bare GC roots produce no element.
func (b *Builder) Build(r *pathfinder.Result) (*Chain, error) {
	head := r.Head().Instance()
	if _, ok := head.(*heap.Root); ok {
		return nil, errors.New(errors.ErrCodeInvalidTarget, "target %d is a GC root entry", r.Target)
	}

	target, err := b.element(head, nil)
	if err != nil {
		return nil, err
	}
	elems := []Element{target}

	err = r.Walk(func(s pathfinder.Step) error {
		parent, ok := s.Parent()
		if !ok {
			return nil
		}
		holder := parent.Instance()
		if _, ok := holder.(*heap.Root); ok {
			return nil
		}
		var ref *Reference
		if pr, ok := s.Reference(); ok {
			ref = &Reference{Kind: pr.Kind, Name: pr.Name, Value: heap.Describe(b.g, s.Instance().ObjectID())}
		}
		el, err := b.element(holder, ref)
		if err != nil {
			return err
		}
		el.Exclusion = s.Exclusion()
		elems = append(elems, el)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(elems)

	c := &Chain{
		Target:        r.Target,
		RootKind:      heap.RootJavaLocal,
		UsedExclusion: r.UsedExclusion,
		Elements:      elems,
	}
	if root, ok := r.Path()[0].Instance().(*heap.Root); ok {
		c.RootKind = root.Kind
	}
	return c, nil
}

func (b *Builder) element(holder heap.Instance, ref *Reference) (Element, error) {
	el := Element{
		ObjectID:  holder.ObjectID(),
		ClassName: heap.ClassName(b.g, holder),
		Reference: ref,
	}

	switch v := holder.(type) {
	case *heap.Class:
		el.Holder = HolderClass
		el.Fields = staticFields(b.g, v)
	case *heap.Array:
		el.Holder = HolderArray
		if v.Elem.IsObject() {
			for i, id := range v.Refs {
				el.Fields = append(el.Fields, fmt.Sprintf("[%d] = %s", i, heap.Describe(b.g, id)))
			}
		}
	case *heap.Object:
		b.classifyObject(&el, v)
		cls := heap.ClassOf(b.g, v)
		if cls != nil {
			el.Fields = staticFields(b.g, cls)
		}
		for _, f := range v.Fields {
			el.Fields = append(el.Fields, f.Name+" = "+heap.FormatValue(b.g, f))
		}
	default:
		return Element{}, errors.Internal("unexpected holder type %T", v)
	}
	return el, nil
}

func (b *Builder) classifyObject(el *Element, o *heap.Object) {
	el.Holder = HolderObject
	cls := heap.ClassOf(b.g, o)
	if cls == nil {
		return
	}

	if heap.Extends(b.g, cls, heap.ClassThread) {
		el.Holder = HolderThread
		if name, ok := heap.ThreadName(b.g, o); ok {
			el.Extra = "(named '" + name + "')"
		}
		return
	}

	if !anonymousClass.MatchString(cls.Name) {
		return
	}
	super := heap.SuperOf(b.g, cls)
	if super == nil {
		return
	}
	if super.Name != heap.ClassObject {
		el.Extra = "(anonymous subclass of " + super.Name + ")"
		return
	}
	if b.resolver == nil {
		return
	}
	ifaces, err := b.resolver.Interfaces(cls.Name)
	if err != nil {
		if b.logger != nil {
			b.logger.Debug("interface lookup failed", "class", cls.Name, "err", err)
		}
		return
	}
	if len(ifaces) > 0 {
		el.Extra = "(anonymous implementation of " + ifaces[0] + ")"
	} else {
		el.Extra = "(anonymous subclass of " + heap.ClassObject + ")"
	}
}

func staticFields(g heap.Graph, c *heap.Class) []string {
	var out []string
	for _, f := range c.Statics {
		if f.Name == heap.StaticOverheadField {
			continue
		}
		out = append(out, "static "+f.Name+" = "+heap.FormatValue(g, f))
	}
	return out
}
