package analysis

import (
	"runtime"
	"slices"

	"github.com/matzehuels/leakpath/pkg/errors"
)

// =============================================================================
// Options - Analysis Configuration
// =============================================================================

// Options configures one analysis.
type Options struct {
	// SnapshotPath is the JSON heap snapshot to analyze.
	SnapshotPath string `json:"snapshot"`

	// Targets are explicit instance IDs to explain.
	Targets []uint64 `json:"targets,omitempty"`
	// Classes selects every instance of the named classes as a target.
	Classes []string `json:"classes,omitempty"`

	// ExclusionsFile is a TOML rule file applied on top of the defaults.
	ExclusionsFile string `json:"exclusions_file,omitempty"`
	// NoDefaults disables the built-in exclusions.
	NoDefaults bool `json:"no_defaults,omitempty"`

	// Classpath lists class directories and jars used to name the
	// interfaces of anonymous classes.
	Classpath []string `json:"classpath,omitempty"`

	// FieldDumps keeps the field values of every holder in the report.
	FieldDumps bool `json:"field_dumps,omitempty"`

	// Refresh skips the cache lookup. The fresh report is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// Workers bounds chain building concurrency. Zero uses GOMAXPROCS.
	Workers int `json:"-"`
}

// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if o.SnapshotPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "snapshot path is required")
	}
	if len(o.Targets) == 0 && len(o.Classes) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one target ID or class is required")
	}
	for _, id := range o.Targets {
		if id == 0 {
			return errors.New(errors.ErrCodeInvalidTarget, "target ID must not be zero")
		}
	}
	for _, c := range o.Classes {
		if err := errors.ValidateClassName(c); err != nil {
			return err
		}
	}
	if o.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workers must not be negative")
	}
	if o.Workers == 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	o.Targets = slices.Compact(slices.Sorted(slices.Values(o.Targets)))
	o.Classes = slices.Compact(slices.Sorted(slices.Values(o.Classes)))
	return nil
}
