package exclusion

import "maps"

// Option configures a rule added to a [Builder].
type Option func(*Rule)

// Always marks the rule as never traversable.
func Always() Option {
	return func(r *Rule) { r.AlwaysExclude = true }
}

// Reason records why the reference is considered benign.
func Reason(reason string) Option {
	return func(r *Rule) { r.Reason = reason }
}

// Builder collects rules into a [Ruleset]. Adding a rule for a key that
// already has one replaces it. A Builder is not safe for concurrent use.
type Builder struct {
	rs Ruleset
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{rs: Ruleset{
		staticFields: make(map[string]map[string]*Rule),
		fields:       make(map[string]map[string]*Rule),
		classes:      make(map[string]*Rule),
		threads:      make(map[string]*Rule),
	}}
}

// StaticField adds a rule for the static field className.fieldName.
func (b *Builder) StaticField(className, fieldName string, opts ...Option) *Builder {
	putField(b.rs.staticFields, className, fieldName, newRule("static field "+className+"#"+fieldName, opts))
	return b
}

// InstanceField adds a rule for the instance field fieldName declared by
// className.
func (b *Builder) InstanceField(className, fieldName string, opts ...Option) *Builder {
	putField(b.rs.fields, className, fieldName, newRule("field "+className+"#"+fieldName, opts))
	return b
}

// Class adds a rule for all instances of className.
func (b *Builder) Class(className string, opts ...Option) *Builder {
	b.rs.classes[className] = newRule("class "+className, opts)
	return b
}

// Thread adds a rule for the locals of threads named threadName.
func (b *Builder) Thread(threadName string, opts ...Option) *Builder {
	b.rs.threads[threadName] = newRule("any threads named "+threadName, opts)
	return b
}

// Merge adds every rule of other, replacing rules registered for the same
// keys.
func (b *Builder) Merge(other *Ruleset) *Builder {
	if other == nil {
		return b
	}
	for class, m := range other.staticFields {
		for field, r := range m {
			putField(b.rs.staticFields, class, field, r)
		}
	}
	for class, m := range other.fields {
		for field, r := range m {
			putField(b.rs.fields, class, field, r)
		}
	}
	maps.Copy(b.rs.classes, other.classes)
	maps.Copy(b.rs.threads, other.threads)
	return b
}

// Build returns the collected rules. The builder can keep being used; later
// additions do not affect rulesets already built.
func (b *Builder) Build() *Ruleset {
	rs := &Ruleset{
		staticFields: cloneNested(b.rs.staticFields),
		fields:       cloneNested(b.rs.fields),
		classes:      maps.Clone(b.rs.classes),
		threads:      maps.Clone(b.rs.threads),
	}
	return rs
}

func newRule(matching string, opts []Option) *Rule {
	r := &Rule{Matching: matching}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func putField(m map[string]map[string]*Rule, className, fieldName string, r *Rule) {
	fields, ok := m[className]
	if !ok {
		fields = make(map[string]*Rule)
		m[className] = fields
	}
	fields[fieldName] = r
}

func cloneNested(m map[string]map[string]*Rule) map[string]map[string]*Rule {
	out := make(map[string]map[string]*Rule, len(m))
	for k, v := range m {
		out[k] = maps.Clone(v)
	}
	return out
}
