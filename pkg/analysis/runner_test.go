package analysis

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/leakpath/pkg/cache"
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/heap"
	"github.com/matzehuels/leakpath/pkg/heap/heapio"
	"github.com/matzehuels/leakpath/pkg/observability"
)

// writeSnapshot writes a snapshot where the App class statically holds a
// listener that references activity 20. Activity 21 is only held through a
// weak reference and activity 22 is a local of the main thread.
func writeSnapshot(t *testing.T) string {
	t.Helper()
	s := heap.NewSnapshot()
	add := func(inst heap.Instance) {
		if err := s.Add(inst); err != nil {
			t.Fatal(err)
		}
	}
	ref := func(name string, id heap.ObjID) heap.FieldValue {
		return heap.FieldValue{Name: name, Type: heap.TypeObject, Ref: id}
	}

	add(&heap.Class{ID: 1, Name: heap.ClassObject})
	add(&heap.Class{ID: 2, Name: "com.example.App", Super: 1, Statics: []heap.FieldValue{
		ref("listener", 10),
		ref("weak", 30),
		{Name: "launches", Type: heap.TypeInt, Value: int64(3)},
	}})
	add(&heap.Class{ID: 3, Name: "com.example.Listener", Super: 1})
	add(&heap.Class{ID: 4, Name: "com.example.Activity", Super: 1})
	add(&heap.Class{ID: 5, Name: "java.lang.ref.Reference", Super: 1})
	add(&heap.Class{ID: 6, Name: "java.lang.ref.WeakReference", Super: 5})
	add(&heap.Class{ID: 7, Name: heap.ClassThread, Super: 1})
	add(&heap.Class{ID: 8, Name: heap.ClassString, Super: 1})
	add(&heap.Object{ID: 10, Class: 3, Fields: []heap.FieldValue{ref("activity", 20)}})
	add(&heap.Object{ID: 20, Class: 4})
	add(&heap.Object{ID: 21, Class: 4})
	add(&heap.Object{ID: 22, Class: 4})
	add(&heap.Object{ID: 30, Class: 6, Fields: []heap.FieldValue{ref("referent", 21)}})
	add(&heap.Object{ID: 40, Class: 7, Fields: []heap.FieldValue{ref("name", 41)}})
	add(&heap.Object{ID: 41, Class: 8})
	s.SetString(41, "main")
	add(&heap.Root{ID: 100, Kind: heap.RootStickyClass, Referent: 2})
	add(&heap.Root{ID: 101, Kind: heap.RootJavaLocal, Referent: 22, Thread: 40})

	path := filepath.Join(t.TempDir(), "heap.json")
	if err := heapio.ExportJSON(s, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{Level: log.ErrorLevel})
}

func TestExecute(t *testing.T) {
	path := writeSnapshot(t)
	r := NewRunner(nil, nil, quietLogger())

	report, err := r.Execute(context.Background(), Options{
		SnapshotPath: path,
		Classes:      []string{"com.example.Activity"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if report.ID == "" {
		t.Error("report has no ID")
	}
	if report.Stats.Targets != 3 || report.Stats.Found != 2 || report.Stats.Excluded != 1 {
		t.Errorf("stats = %+v, want 3 targets, 2 found, 1 excluded", report.Stats)
	}
	if len(report.Leaks) != 3 {
		t.Fatalf("got %d leaks, want 3", len(report.Leaks))
	}

	clean := report.Leaks[0]
	if clean.Target != 20 || !clean.Found() {
		t.Fatalf("leaks[0] = %+v, want found target 20", clean)
	}
	if clean.Chain.UsedExclusion {
		t.Error("target 20 should be reached without exclusions")
	}
	if clean.Chain.RootKind != heap.RootStickyClass {
		t.Errorf("root kind = %v, want sticky-class", clean.Chain.RootKind)
	}
	if clean.Chain.Len() != 2 {
		t.Errorf("chain length = %d, want 2", clean.Chain.Len())
	}
	for _, el := range clean.Chain.Elements {
		if el.Fields != nil {
			t.Errorf("field dumps kept without FieldDumps: %v", el.Fields)
		}
	}

	if report.Leaks[1].Target != 21 || report.Leaks[1].Found() {
		t.Errorf("leaks[1] = %+v, want target 21 unreachable past the weak reference", report.Leaks[1])
	}
	local := report.Leaks[2]
	if local.Target != 22 || !local.Found() || !local.Chain.UsedExclusion {
		t.Fatalf("leaks[2] = %+v, want target 22 through the main thread exclusion", local)
	}
	if local.Chain.RootKind != heap.RootJavaLocal {
		t.Errorf("root kind = %v, want java-local", local.Chain.RootKind)
	}

	var text bytes.Buffer
	if err := WriteText(&text, report); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"com.example.Activity@20: held by sticky-class root, 2 references\n",
		"* GC ROOT static com.example.App.listener\n",
		"com.example.Activity@21: no path to a GC root\n",
		"held by java-local root, 1 references, through excluded references\n",
	} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text report missing %q:\n%s", want, text.String())
		}
	}
}

func TestExecuteFieldDumps(t *testing.T) {
	report, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), Options{
		SnapshotPath: writeSnapshot(t),
		Targets:      []uint64{20},
		FieldDumps:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	root := report.Leaks[0].Chain.Elements[0]
	want := "static launches = 3"
	found := false
	for _, f := range root.Fields {
		if f == want {
			found = true
		}
	}
	if !found {
		t.Errorf("fields = %v, want %q", root.Fields, want)
	}
}

func TestExecuteNoDefaults(t *testing.T) {
	report, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), Options{
		SnapshotPath: writeSnapshot(t),
		Targets:      []uint64{21, 22},
		NoDefaults:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if report.Rules != 0 {
		t.Errorf("rules = %d, want 0", report.Rules)
	}
	for _, l := range report.Leaks {
		if !l.Found() || l.Chain.UsedExclusion {
			t.Errorf("without defaults target %d should have a clean path: %+v", l.Target, l)
		}
	}
}

func TestExecuteExclusionsFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.toml")
	content := `
[[static_field]]
class = "com.example.App"
field = "listener"
reason = "listener is unregistered on destroy"
`
	if err := os.WriteFile(rules, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := NewRunner(nil, nil, quietLogger()).Execute(context.Background(), Options{
		SnapshotPath:   writeSnapshot(t),
		Targets:        []uint64{20},
		ExclusionsFile: rules,
	})
	if err != nil {
		t.Fatal(err)
	}
	c := report.Leaks[0].Chain
	if c == nil || !c.UsedExclusion {
		t.Fatalf("chain = %+v, want a path through the excluded static", c)
	}
	if ex := c.Elements[0].Exclusion; ex == nil || ex.Reason != "listener is unregistered on destroy" {
		t.Errorf("root exclusion = %+v", ex)
	}
}

func TestExecuteErrors(t *testing.T) {
	path := writeSnapshot(t)
	missing := filepath.Join(t.TempDir(), "missing.json")
	garbage := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(garbage, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no snapshot", Options{Targets: []uint64{20}}, errors.ErrCodeInvalidInput},
		{"no targets", Options{SnapshotPath: path}, errors.ErrCodeInvalidInput},
		{"zero target", Options{SnapshotPath: path, Targets: []uint64{0}}, errors.ErrCodeInvalidTarget},
		{"bad class name", Options{SnapshotPath: path, Classes: []string{"not a class"}}, errors.ErrCodeInvalidInput},
		{"missing snapshot", Options{SnapshotPath: missing, Targets: []uint64{20}}, errors.ErrCodeFileNotFound},
		{"corrupt snapshot", Options{SnapshotPath: garbage, Targets: []uint64{20}}, errors.ErrCodeInvalidSnapshot},
		{"unknown target", Options{SnapshotPath: path, Targets: []uint64{999}}, errors.ErrCodeTargetNotFound},
		{"class target", Options{SnapshotPath: path, Targets: []uint64{2}}, errors.ErrCodeInvalidTarget},
		{"root target", Options{SnapshotPath: path, Targets: []uint64{100}}, errors.ErrCodeInvalidTarget},
		{"class without instances", Options{SnapshotPath: path, Classes: []string{"com.example.Nothing"}}, errors.ErrCodeTargetNotFound},
		{"missing rules", Options{SnapshotPath: path, Targets: []uint64{20}, ExclusionsFile: missing}, errors.ErrCodeFileNotFound},
		{"missing classpath", Options{SnapshotPath: path, Targets: []uint64{20}, Classpath: []string{missing}}, errors.ErrCodeInvalidConfig},
	}

	r := NewRunner(nil, nil, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestExecuteCache(t *testing.T) {
	observability.Reset()
	prom := observability.NewPrometheus()
	observability.SetCacheHooks(prom)
	defer observability.Reset()

	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	opts := Options{SnapshotPath: writeSnapshot(t), Targets: []uint64{20, 21}}
	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Error("first run should not be cached")
	}

	// Target order must not change the key.
	opts.Targets = []uint64{21, 20}
	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.ID != first.ID {
		t.Errorf("second run: cached=%v id=%s, want cached report %s", second.Cached, second.ID, first.ID)
	}
	if second.Leaks[0].Chain.String() != first.Leaks[0].Chain.String() {
		t.Errorf("cached chain differs:\n%s\nvs\n%s", second.Leaks[0].Chain, first.Leaks[0].Chain)
	}

	opts.Refresh = true
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached || third.ID == first.ID {
		t.Error("refresh should produce a new report")
	}

	metrics := filepath.Join(t.TempDir(), "m.prom")
	if err := prom.WriteTextfile(metrics); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(metrics)
	if !strings.Contains(string(data), `leakpath_cache_operations_total{key_type="report",op="hit"} 1`) {
		t.Errorf("metrics missing cache hit:\n%s", data)
	}
}

// gatedCache blocks the first lookup until released and counts lookups.
type gatedCache struct {
	*cache.NullCache
	entered chan struct{}
	release chan struct{}
	gets    atomic.Int32
}

func (c *gatedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.gets.Add(1) == 1 {
		close(c.entered)
		<-c.release
	}
	return nil, false, nil
}

func TestExecuteSharesConcurrentRuns(t *testing.T) {
	gc := &gatedCache{NullCache: cache.NewNullCache(), entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRunner(gc, nil, quietLogger())
	opts := Options{SnapshotPath: writeSnapshot(t), Targets: []uint64{20}}

	const callers = 4
	reports := make([]*Report, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = r.Execute(context.Background(), opts)
		}()
	}

	<-gc.entered
	time.Sleep(100 * time.Millisecond)
	close(gc.release)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if reports[i].ID != reports[0].ID {
			t.Errorf("caller %d got report %s, want shared %s", i, reports[i].ID, reports[0].ID)
		}
		if i > 0 && reports[i] == reports[0] {
			t.Errorf("caller %d shares the report pointer", i)
		}
	}

	// Editing one caller's report leaves the others intact.
	first := reports[0].Leaks[0].Chain
	first.Elements[0].ClassName = "edited"
	reports[0].Leaks[0].ClassName = "edited"
	for i := 1; i < callers; i++ {
		leak := reports[i].Leaks[0]
		if leak.ClassName == "edited" {
			t.Errorf("caller %d sees another caller's leak edit", i)
		}
		if leak.Chain == first || leak.Chain.Elements[0].ClassName == "edited" {
			t.Errorf("caller %d shares chain storage", i)
		}
	}
	if n := gc.gets.Load(); n != 1 {
		t.Errorf("cache consulted %d times, want 1", n)
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(nil, nil, quietLogger()).Execute(ctx, Options{
		SnapshotPath: writeSnapshot(t),
		Targets:      []uint64{20},
	})
	// The search may finish before the cancellation is observed; either
	// outcome is valid, but an error must be the context's.
	if err != nil && err != context.Canceled && !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	// A graph whose Roots call blocks until the test ends stands in for a
	// search that outlives the deadline.
	g := &blockingGraph{release: make(chan struct{})}
	defer close(g.release)

	_, _, err := search(ctx, g, nil, []heap.ObjID{1})
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("err = %v, want timeout", err)
	}
}

type blockingGraph struct {
	release chan struct{}
}

func (g *blockingGraph) Roots() []*heap.Root {
	<-g.release
	return nil
}

func (g *blockingGraph) Instance(id heap.ObjID) heap.Instance {
	if id == 1 {
		return &heap.Object{ID: 1}
	}
	return nil
}

func (g *blockingGraph) StringValue(heap.ObjID) (string, bool) { return "", false }
