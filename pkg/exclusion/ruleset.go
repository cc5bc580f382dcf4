package exclusion

import (
	"maps"
	"slices"
	"strings"
)

// Ruleset maps classes, fields and thread names to exclusion rules.
// All lookups are nil-safe: a nil *Ruleset has no rules.
type Ruleset struct {
	staticFields map[string]map[string]*Rule
	fields       map[string]map[string]*Rule
	classes      map[string]*Rule
	threads      map[string]*Rule
}

// StaticField returns the rule for a static field, or nil.
func (rs *Ruleset) StaticField(className, fieldName string) *Rule {
	if rs == nil {
		return nil
	}
	return rs.staticFields[className][fieldName]
}

// InstanceField returns the rule for an instance field declared by
// className, or nil. Rules are not inherited; callers walk the superclass
// chain themselves.
func (rs *Ruleset) InstanceField(className, fieldName string) *Rule {
	if rs == nil {
		return nil
	}
	return rs.fields[className][fieldName]
}

// InstanceFields returns a copy of the instance field rules registered for
// className, keyed by field name.
func (rs *Ruleset) InstanceFields(className string) map[string]*Rule {
	if rs == nil {
		return nil
	}
	return maps.Clone(rs.fields[className])
}

// Class returns the rule for every instance of className, or nil.
func (rs *Ruleset) Class(className string) *Rule {
	if rs == nil {
		return nil
	}
	return rs.classes[className]
}

// Thread returns the rule for locals of threads named threadName, or nil.
func (rs *Ruleset) Thread(threadName string) *Rule {
	if rs == nil {
		return nil
	}
	return rs.threads[threadName]
}

// Len returns the total number of rules.
func (rs *Ruleset) Len() int {
	if rs == nil {
		return 0
	}
	n := len(rs.classes) + len(rs.threads)
	for _, m := range rs.staticFields {
		n += len(m)
	}
	for _, m := range rs.fields {
		n += len(m)
	}
	return n
}

// String lists the rules one per line, sorted by what they match.
func (rs *Ruleset) String() string {
	if rs == nil {
		return ""
	}
	var lines []string
	add := func(r *Rule) {
		line := r.Matching
		if r.AlwaysExclude {
			line += " (always)"
		}
		if r.Reason != "" {
			line += ": " + r.Reason
		}
		lines = append(lines, line)
	}
	for _, m := range rs.staticFields {
		for _, r := range m {
			add(r)
		}
	}
	for _, m := range rs.fields {
		for _, r := range m {
			add(r)
		}
	}
	for _, r := range rs.classes {
		add(r)
	}
	for _, r := range rs.threads {
		add(r)
	}
	slices.Sort(lines)
	return strings.Join(lines, "\n")
}
