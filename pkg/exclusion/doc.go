// Package exclusion describes references known to be benign leak holders.
//
// A [Rule] attached to a static field, an instance field, a class or a
// thread name tells the path finder how to treat edges through it:
//
//   - AlwaysExclude rules are never traversed.
//   - Conditional rules are traversed only once no exclusion-free path
//     remains to any pending target.
//
// The ordering StrengthNone < StrengthConditional < StrengthAlways is
// modeled by [Strength], and [Stronger] merges two rules along it. A
// [Ruleset] is built once with a [Builder] (or loaded from TOML with [Load])
// and is read-only afterwards, so it can be shared between goroutines.
//
// Rule files use one table array per rule kind:
//
//	[[instance_field]]
//	class = "android.view.inputmethod.InputMethodManager"
//	field = "mServedView"
//	reason = "IMM keeps the last focused view"
//
//	[[class]]
//	name = "java.lang.ref.WeakReference"
//	always = true
//
//	[[thread]]
//	name = "main"
package exclusion
