package exclusion

// Strength orders exclusion rules from weakest to strongest.
type Strength int

const (
	// StrengthNone means the edge is followed unconditionally.
	StrengthNone Strength = iota
	// StrengthConditional means the edge is followed only when no
	// exclusion-free path exists.
	StrengthConditional
	// StrengthAlways means the edge is never followed.
	StrengthAlways
)

func (s Strength) String() string {
	switch s {
	case StrengthNone:
		return "none"
	case StrengthConditional:
		return "conditional"
	case StrengthAlways:
		return "always"
	}
	return "unknown"
}

// Rule is an exclusion attached to a field, class or thread name.
type Rule struct {
	AlwaysExclude bool   `json:"always,omitempty"`
	Reason        string `json:"reason,omitempty"`

	// Matching describes what the rule was registered for, such as
	// "field com.example.Foo#bar". It is filled in by the [Builder].
	Matching string `json:"matching"`
}

// Strength returns the strength of r. A nil rule has strength [StrengthNone].
func (r *Rule) Strength() Strength {
	switch {
	case r == nil:
		return StrengthNone
	case r.AlwaysExclude:
		return StrengthAlways
	default:
		return StrengthConditional
	}
}

// Stronger returns whichever of a and b is stronger. On a tie it returns a,
// so callers accumulating along a chain keep the first rule they saw.
func Stronger(a, b *Rule) *Rule {
	if b.Strength() > a.Strength() {
		return b
	}
	return a
}
