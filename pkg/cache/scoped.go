package cache

// ScopedKeyer prefixes the keys of another Keyer. Shared backends such as
// Redis use it to keep leakpath entries apart from other data:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "leakpath:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer means
// [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// Prefix returns the prefix added to every key.
func (k *ScopedKeyer) Prefix() string {
	return k.prefix
}

// ReportKey generates a prefixed report key.
func (k *ScopedKeyer) ReportKey(snapshotHash string, opts ReportKeyOpts) string {
	return k.prefix + k.inner.ReportKey(snapshotHash, opts)
}
