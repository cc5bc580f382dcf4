package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/leakpath/pkg/analysis"
	"github.com/matzehuels/leakpath/pkg/errors"
	"github.com/matzehuels/leakpath/pkg/heap"
	"github.com/matzehuels/leakpath/pkg/heap/heapio"
)

// writeSnapshot writes a snapshot in which com.example.App statically holds
// a listener referencing activity 20. Activity 21 is garbage.
func writeSnapshot(t *testing.T) string {
	t.Helper()
	s := heap.NewSnapshot()
	for _, inst := range []heap.Instance{
		&heap.Class{ID: 1, Name: heap.ClassObject},
		&heap.Class{ID: 2, Name: "com.example.App", Super: 1, Statics: []heap.FieldValue{
			{Name: "listener", Type: heap.TypeObject, Ref: 10},
		}},
		&heap.Class{ID: 3, Name: "com.example.Listener", Super: 1},
		&heap.Class{ID: 4, Name: "com.example.Activity", Super: 1},
		&heap.Object{ID: 10, Class: 3, Fields: []heap.FieldValue{
			{Name: "activity", Type: heap.TypeObject, Ref: 20},
			{Name: "count", Type: heap.TypeInt, Value: int64(2)},
		}},
		&heap.Object{ID: 20, Class: 4},
		&heap.Object{ID: 21, Class: 4},
		&heap.Root{ID: 100, Kind: heap.RootStickyClass, Referent: 2},
	} {
		if err := s.Add(inst); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "heap.json")
	if err := heapio.ExportJSON(s, path); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI runs the root command with args against an empty config directory
// and returns its output and the status lines.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(envConfig, "")
	t.Setenv(envRedisAddr, "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, status bytes.Buffer
	old := statusOut
	statusOut = &status
	t.Cleanup(func() { statusOut = old })

	c := New(io.Discard, LogDebug)
	c.SetOutput(&out)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), status.String(), err
}

func TestAnalyzeText(t *testing.T) {
	snapshot := writeSnapshot(t)

	out, status, err := runCLI(t, "analyze", snapshot, "-c", "com.example.Activity", "--no-cache")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	for _, want := range []string{
		"com.example.Activity@20: held by sticky-class root, 2 references\n",
		"* GC ROOT static com.example.App.listener\n",
		"* references com.example.Listener.activity\n",
		"* leaks com.example.Activity instance\n",
		"com.example.Activity@21: no path to a GC root\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(status, "1 of 2 target(s) retained") {
		t.Errorf("status = %q, want retained summary", status)
	}
}

func TestAnalyzeDetailed(t *testing.T) {
	snapshot := writeSnapshot(t)

	out, _, err := runCLI(t, "analyze", snapshot, "-t", "0x14", "--detailed", "--no-cache")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Fields along the chain of com.example.Activity@20:") {
		t.Errorf("output missing field dump header:\n%s", out)
	}
	if !strings.Contains(out, "count = 2") {
		t.Errorf("output missing listener field:\n%s", out)
	}
}

func TestAnalyzeFormats(t *testing.T) {
	snapshot := writeSnapshot(t)

	t.Run("json", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", snapshot, "-t", "20", "-f", "json", "--no-cache")
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		r, err := analysis.UnmarshalReport([]byte(out))
		if err != nil {
			t.Fatalf("UnmarshalReport: %v", err)
		}
		if len(r.Leaks) != 1 || !r.Leaks[0].Found() || r.Leaks[0].Chain.Len() != 2 {
			t.Errorf("leaks = %+v", r.Leaks)
		}
	})

	t.Run("dot", func(t *testing.T) {
		out, _, err := runCLI(t, "analyze", snapshot, "-t", "20", "-f", "dot", "--no-cache")
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if !strings.HasPrefix(out, "digraph") || !strings.Contains(out, `"obj:20"`) {
			t.Errorf("unexpected DOT output:\n%s", out)
		}
	})

	t.Run("files", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "leaks")
		out, status, err := runCLI(t, "analyze", snapshot, "-t", "20", "-f", "text,json", "-o", base, "--no-cache")
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		if out != "" {
			t.Errorf("stdout = %q, want nothing when writing files", out)
		}
		for _, ext := range []string{".text", ".json"} {
			if _, err := os.Stat(base + ext); err != nil {
				t.Errorf("missing %s: %v", base+ext, err)
			}
			if !strings.Contains(status, base+ext) {
				t.Errorf("status does not list %s:\n%s", base+ext, status)
			}
		}
	})
}

func TestAnalyzeErrors(t *testing.T) {
	snapshot := writeSnapshot(t)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"no targets", []string{"analyze", snapshot}, errors.ErrCodeInvalidInput},
		{"bad id", []string{"analyze", snapshot, "-t", "abc"}, errors.ErrCodeInvalidTarget},
		{"bad format", []string{"analyze", snapshot, "-t", "20", "-f", "pdf"}, errors.ErrCodeInvalidFormat},
		{"missing snapshot", []string{"analyze", filepath.Join(t.TempDir(), "nope.json"), "-t", "20"}, errors.ErrCodeFileNotFound},
		{"unknown target", []string{"analyze", snapshot, "-t", "999"}, errors.ErrCodeTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, append(tt.args, "--no-cache")...)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestAnalyzeMetricsFile(t *testing.T) {
	snapshot := writeSnapshot(t)
	metrics := filepath.Join(t.TempDir(), "leakpath.prom")

	if _, _, err := runCLI(t, "analyze", snapshot, "-t", "20", "--no-cache", "--metrics-file", metrics); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(data), `leakpath_targets_total{result="found"} 1`) {
		t.Errorf("metrics missing found target:\n%s", data)
	}
}

func TestCacheCommands(t *testing.T) {
	snapshot := writeSnapshot(t)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	want := filepath.Join(os.Getenv("XDG_CACHE_HOME"), appName)

	out, _, err := runCLI(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if strings.TrimSpace(out) != want {
		t.Errorf("cache path = %q, want %q", out, want)
	}

	if _, _, err := runCLI(t, "analyze", snapshot, "-t", "20"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	_, status, err := runCLI(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(status, "Cleared 1 cached reports") {
		t.Errorf("status = %q, want one cleared report", status)
	}
}

func TestExclusionsCommand(t *testing.T) {
	out, _, err := runCLI(t, "exclusions")
	if err != nil {
		t.Fatalf("exclusions: %v", err)
	}
	for _, want := range []string{"[[class]]", `name = "java.lang.ref.WeakReference"`, "[[thread]]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out, _, err = runCLI(t, "exclusions", "--no-defaults")
	if err != nil {
		t.Fatalf("exclusions --no-defaults: %v", err)
	}
	if strings.Contains(out, "WeakReference") {
		t.Errorf("--no-defaults still prints built-in rules:\n%s", out)
	}
}

func TestExclusionsCheck(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(good, []byte("[[static_field]]\nclass = \"com.example.App\"\nfield = \"listener\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("[[static_field]]\nklass = \"com.example.App\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, status, err := runCLI(t, "exclusions", "check", good)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(status, "1 rule(s)") {
		t.Errorf("status = %q, want one rule", status)
	}

	if _, _, err := runCLI(t, "exclusions", "check", bad); !errors.Is(err, errors.ErrCodeInvalidExclusions) {
		t.Errorf("check bad file error = %v, want %s", err, errors.ErrCodeInvalidExclusions)
	}
}

func TestConfigFlag(t *testing.T) {
	path := writeConfig(t, "[cache]\nbackend = \"none\"\n")

	out, _, err := runCLI(t, "--config", path, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if out != "" {
		t.Errorf("cache path with caching disabled printed %q", out)
	}

	bad := writeConfig(t, "[cache]\nbackend = \"tape\"\n")
	if _, _, err := runCLI(t, "--config", bad, "cache", "path"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("bad config error = %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
}
