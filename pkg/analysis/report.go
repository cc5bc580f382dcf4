package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/matzehuels/leakpath/pkg/chain"
	"github.com/matzehuels/leakpath/pkg/heap"
)

// Report is the outcome of one analysis.
type Report struct {
	ID           string    `json:"id"`
	Snapshot     string    `json:"snapshot"`
	SnapshotHash string    `json:"snapshot_hash"`
	CreatedAt    time.Time `json:"created_at"`
	Rules        int       `json:"rules"`
	Leaks        []Leak    `json:"leaks"`
	Stats        Stats     `json:"stats"`

	// Cached is set when the report came from the cache.
	Cached bool `json:"-"`
}

// clone returns a copy of r that shares no leak or chain storage with it.
func (r *Report) clone() *Report {
	out := *r
	out.Leaks = slices.Clone(r.Leaks)
	for i := range out.Leaks {
		out.Leaks[i].Chain = out.Leaks[i].Chain.Clone()
	}
	return &out
}

// Leak is the result for one target. Chain is nil when no GC root reaches
// the target.
type Leak struct {
	Target    heap.ObjID   `json:"target"`
	ClassName string       `json:"class"`
	Chain     *chain.Chain `json:"chain,omitempty"`
}

// Found reports whether a path to a GC root was found.
func (l Leak) Found() bool { return l.Chain != nil }

// Stats contains analysis counters and timings.
type Stats struct {
	Instances int `json:"instances"`
	Targets   int `json:"targets"`
	Found     int `json:"found"`
	Excluded  int `json:"excluded"` // found only through excluded references

	Roots      int `json:"roots"`
	Visited    int `json:"visited"`
	Duplicates int `json:"duplicates"`

	LoadTime   time.Duration `json:"load_ns"`
	SearchTime time.Duration `json:"search_ns"`
	ChainTime  time.Duration `json:"chain_ns"`
}

// Found returns the leaks that have a chain.
func (r *Report) Found() []Leak {
	var out []Leak
	for _, l := range r.Leaks {
		if l.Found() {
			out = append(out, l)
		}
	}
	return out
}

// MarshalReport encodes a report for caching.
func MarshalReport(r *Report) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReport decodes a report produced by [MarshalReport] or
// [WriteJSON].
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes the report as leak traces, one block per target.
func WriteText(w io.Writer, r *Report) error {
	for i, l := range r.Leaks {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := writeLeak(w, l); err != nil {
			return err
		}
	}
	return nil
}

func writeLeak(w io.Writer, l Leak) error {
	if !l.Found() {
		_, err := fmt.Fprintf(w, "%s@%d: no path to a GC root\n", l.ClassName, l.Target)
		return err
	}
	qualifier := ""
	if l.Chain.UsedExclusion {
		qualifier = ", through excluded references"
	}
	_, err := fmt.Fprintf(w, "%s@%d: held by %s root, %d references%s\n%s",
		l.ClassName, l.Target, l.Chain.RootKind, l.Chain.Len(), qualifier, l.Chain)
	return err
}

func sortedIDs(ids []heap.ObjID) []heap.ObjID {
	return slices.Sorted(slices.Values(ids))
}
