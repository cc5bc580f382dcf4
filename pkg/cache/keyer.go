package cache

import "slices"

// ReportKeyOpts are the analysis options that change a report.
type ReportKeyOpts struct {
	Targets    []uint64 `json:"targets,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	RulesHash  string   `json:"rules_hash"`
	Classpath  []string `json:"classpath,omitempty"`
	FieldDumps bool     `json:"field_dumps"`
}

// Keyer generates cache keys.
type Keyer interface {
	// ReportKey returns the key of the report for a snapshot (by content
	// hash) analyzed with opts.
	ReportKey(snapshotHash string, opts ReportKeyOpts) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ReportKey returns "report:<hash>". Target and class order does not
// matter.
func (DefaultKeyer) ReportKey(snapshotHash string, opts ReportKeyOpts) string {
	opts.Targets = slices.Sorted(slices.Values(opts.Targets))
	opts.Classes = slices.Sorted(slices.Values(opts.Classes))
	return hashKey("report", snapshotHash, opts)
}

var _ Keyer = DefaultKeyer{}
