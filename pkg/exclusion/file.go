package exclusion

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/leakpath/pkg/errors"
)

// File is the TOML representation of a ruleset.
type File struct {
	StaticFields   []FieldEntry `toml:"static_field,omitempty"`
	InstanceFields []FieldEntry `toml:"instance_field,omitempty"`
	Classes        []NameEntry  `toml:"class,omitempty"`
	Threads        []NameEntry  `toml:"thread,omitempty"`
}

// FieldEntry is a static or instance field rule.
type FieldEntry struct {
	Class  string `toml:"class"`
	Field  string `toml:"field"`
	Reason string `toml:"reason,omitempty"`
	Always bool   `toml:"always,omitempty"`
}

// NameEntry is a class or thread rule.
type NameEntry struct {
	Name   string `toml:"name"`
	Reason string `toml:"reason,omitempty"`
	Always bool   `toml:"always,omitempty"`
}

// Load parses a TOML rule file. Unknown keys and invalid class, field or
// thread names are reported as [errors.ErrCodeInvalidExclusions] errors.
func Load(r io.Reader) (*Ruleset, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidExclusions, err, "parse exclusions")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidExclusions, "unknown keys: %s", strings.Join(keys, ", "))
	}

	b := NewBuilder()
	if err := b.AddFile(&f); err != nil {
		return nil, err
	}
	return b.Build(), nil
}

// LoadFile reads a TOML rule file from disk.
func LoadFile(path string) (*Ruleset, error) {
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "exclusions file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	return Load(fh)
}

// AddFile validates the entries of f and adds them to the builder. Nothing
// is added if an entry is invalid.
func (b *Builder) AddFile(f *File) error {
	for i, e := range f.StaticFields {
		if err := validateField(e); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExclusions, err, "static_field %d", i)
		}
	}
	for i, e := range f.InstanceFields {
		if err := validateField(e); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExclusions, err, "instance_field %d", i)
		}
	}
	for i, e := range f.Classes {
		if err := errors.ValidateClassName(e.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExclusions, err, "class %d", i)
		}
	}
	for i, e := range f.Threads {
		if err := errors.ValidateThreadName(e.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidExclusions, err, "thread %d", i)
		}
	}

	for _, e := range f.StaticFields {
		b.StaticField(e.Class, e.Field, entryOptions(e.Reason, e.Always)...)
	}
	for _, e := range f.InstanceFields {
		b.InstanceField(e.Class, e.Field, entryOptions(e.Reason, e.Always)...)
	}
	for _, e := range f.Classes {
		b.Class(e.Name, entryOptions(e.Reason, e.Always)...)
	}
	for _, e := range f.Threads {
		b.Thread(e.Name, entryOptions(e.Reason, e.Always)...)
	}
	return nil
}

// File converts the ruleset back to its TOML representation, sorted by
// class, field and name.
func (rs *Ruleset) File() *File {
	f := &File{}
	if rs == nil {
		return f
	}
	f.StaticFields = fieldEntries(rs.staticFields)
	f.InstanceFields = fieldEntries(rs.fields)
	f.Classes = nameEntries(rs.classes)
	f.Threads = nameEntries(rs.threads)
	return f
}

// WriteTOML encodes the ruleset as a rule file readable by [Load].
func (rs *Ruleset) WriteTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(rs.File()); err != nil {
		return fmt.Errorf("encode exclusions: %w", err)
	}
	return nil
}

func validateField(e FieldEntry) error {
	if err := errors.ValidateClassName(e.Class); err != nil {
		return err
	}
	return errors.ValidateFieldName(e.Field)
}

func entryOptions(reason string, always bool) []Option {
	var opts []Option
	if reason != "" {
		opts = append(opts, Reason(reason))
	}
	if always {
		opts = append(opts, Always())
	}
	return opts
}

func fieldEntries(m map[string]map[string]*Rule) []FieldEntry {
	var out []FieldEntry
	for class, fields := range m {
		for field, r := range fields {
			out = append(out, FieldEntry{Class: class, Field: field, Reason: r.Reason, Always: r.AlwaysExclude})
		}
	}
	slices.SortFunc(out, func(a, b FieldEntry) int {
		return cmp.Or(cmp.Compare(a.Class, b.Class), cmp.Compare(a.Field, b.Field))
	})
	return out
}

func nameEntries(m map[string]*Rule) []NameEntry {
	var out []NameEntry
	for name, r := range m {
		out = append(out, NameEntry{Name: name, Reason: r.Reason, Always: r.AlwaysExclude})
	}
	slices.SortFunc(out, func(a, b NameEntry) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
