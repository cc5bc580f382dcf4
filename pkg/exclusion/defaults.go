package exclusion

// Defaults returns the built-in rules for runtime classes and threads that
// hold references without causing leaks.
func Defaults() *Ruleset {
	return DefaultBuilder().Build()
}

// DefaultBuilder returns a builder preloaded with the built-in rules, ready
// for user rules to be merged on top.
func DefaultBuilder() *Builder {
	const (
		weak      = "weak references are cleared by the GC"
		finalizer = "the finalizer queue only holds objects the GC already found unreachable"
	)
	return NewBuilder().
		Class("java.lang.ref.WeakReference", Always(), Reason(weak)).
		Class("java.lang.ref.SoftReference", Always(), Reason("soft references are cleared before an OutOfMemoryError")).
		Class("java.lang.ref.PhantomReference", Always(), Reason("phantom references never expose their referent")).
		Class("java.lang.ref.Finalizer", Always(), Reason(finalizer)).
		Class("java.lang.ref.FinalizerReference", Always(), Reason(finalizer)).
		InstanceField("sun.misc.Cleaner", "prev", Always(), Reason("cleaner list links")).
		InstanceField("sun.misc.Cleaner", "next", Always(), Reason("cleaner list links")).
		Thread("FinalizerWatchdogDaemon", Always(), Reason("the watchdog holds the object being finalized")).
		Thread("main", Reason("main thread locals are usually short lived"))
}
