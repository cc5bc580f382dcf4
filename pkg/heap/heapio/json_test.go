package heapio

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/leakpath/pkg/heap"
)

const sampleJSON = `{
  "classes": [
    {"id": 1, "name": "java.lang.Object"},
    {"id": 2, "name": "java.lang.String", "super": 1},
    {"id": 3, "name": "java.lang.Thread", "super": 1},
    {"id": 4, "name": "com.example.Cache", "super": 1,
     "statics": [{"name": "INSTANCE", "ref": 10}, {"name": "hits", "type": "int", "value": 7}]}
  ],
  "objects": [
    {"id": 10, "class": 4, "fields": [{"name": "size", "type": "int", "value": 3}, {"name": "entries", "ref": 20}]},
    {"id": 11, "class": 2, "string": "main"},
    {"id": 12, "class": 3, "fields": [{"name": "name", "ref": 11}]}
  ],
  "arrays": [
    {"id": 20, "elem": "object", "refs": [10, 0]},
    {"id": 21, "elem": "byte", "length": 64}
  ],
  "roots": [
    {"kind": "sticky-class", "ref": 4},
    {"kind": "java-local", "ref": 10, "thread": 12},
    {"id": 500, "kind": "jni-global", "ref": 20}
  ]
}`

func TestReadJSON(t *testing.T) {
	s, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if got := s.NumInstances(); got != 12 {
		t.Errorf("NumInstances = %d, want 12", got)
	}

	obj, ok := s.Instance(10).(*heap.Object)
	if !ok {
		t.Fatalf("instance 10 = %T, want *heap.Object", s.Instance(10))
	}
	size, _ := obj.Field("size")
	if size.Type != heap.TypeInt || size.Value != int64(3) {
		t.Errorf("size = %+v, want int 3", size)
	}
	entries, _ := obj.Field("entries")
	if !entries.IsObject() || entries.Ref != 20 {
		t.Errorf("entries = %+v, want ref 20", entries)
	}

	arr, ok := s.Instance(21).(*heap.Array)
	if !ok || arr.Elem != heap.TypeByte || arr.Len() != 64 {
		t.Errorf("instance 21 = %+v, want byte[64]", s.Instance(21))
	}

	if v, ok := s.StringValue(11); !ok || v != "main" {
		t.Errorf("StringValue(11) = %q, %v", v, ok)
	}

	roots := s.Roots()
	if len(roots) != 3 {
		t.Fatalf("got %d roots, want 3", len(roots))
	}
	// Missing IDs are assigned above the largest ID in the file.
	if roots[0].ID != 501 || roots[1].ID != 502 || roots[2].ID != 500 {
		t.Errorf("root IDs = %d, %d, %d; want 501, 502, 500", roots[0].ID, roots[1].ID, roots[2].ID)
	}
	if roots[1].Kind != heap.RootJavaLocal || roots[1].Thread != 12 {
		t.Errorf("roots[1] = %+v", roots[1])
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"malformed", `{"classes": [`, nil},
		{"zero id", `{"classes": [{"id": 0, "name": "A"}]}`, heap.ErrInvalidID},
		{"duplicate id", `{"classes": [{"id": 1, "name": "A"}], "objects": [{"id": 1, "class": 1}]}`, heap.ErrDuplicateID},
		{"unknown type", `{"classes": [{"id": 1, "name": "A", "statics": [{"name": "x", "type": "quad"}]}]}`, heap.ErrUnknownType},
		{"unknown elem", `{"arrays": [{"id": 1, "elem": "quad"}]}`, heap.ErrUnknownType},
		{"unknown root kind", `{"classes": [{"id": 1, "name": "A"}], "roots": [{"kind": "bogus", "ref": 1}]}`, heap.ErrUnknownRootKind},
		{"dangling class", `{"objects": [{"id": 5, "class": 9}]}`, heap.ErrDanglingReference},
		{"fractional long", `{"classes": [{"id": 1, "name": "A", "statics": [{"name": "x", "type": "long", "value": 1.5}]}]}`, nil},
		{"dangling root", `{"classes": [{"id": 1, "name": "A"}], "roots": [{"kind": "jni-global", "ref": 42}]}`, heap.ErrDanglingReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	orig, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(orig, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON(round trip): %v", err)
	}

	if got.NumInstances() != orig.NumInstances() {
		t.Errorf("NumInstances = %d, want %d", got.NumInstances(), orig.NumInstances())
	}
	for i, r := range got.Roots() {
		want := orig.Roots()[i]
		if *r != *want {
			t.Errorf("root %d = %+v, want %+v", i, r, want)
		}
	}
	if v, ok := got.StringValue(11); !ok || v != "main" {
		t.Errorf("StringValue(11) = %q, %v", v, ok)
	}
	c := got.Instance(4).(*heap.Class)
	if hits, _ := c.Static("hits"); hits.Value != int64(7) {
		t.Errorf("hits = %v, want 7", hits.Value)
	}
}

func TestPrimitiveValuesKeepPrecision(t *testing.T) {
	s := heap.NewSnapshot()
	if err := s.Add(&heap.Class{ID: 1, Name: "com.example.Clock", Statics: []heap.FieldValue{
		{Name: "epochNanos", Type: heap.TypeLong, Value: int64(9007199254740993)},
		{Name: "min", Type: heap.TypeLong, Value: int64(-9223372036854775808)},
		{Name: "ratio", Type: heap.TypeDouble, Value: 0.25},
		{Name: "enabled", Type: heap.TypeBoolean, Value: true},
	}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(s, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	c := got.Instance(1).(*heap.Class)
	tests := []struct {
		field string
		want  any
	}{
		{"epochNanos", int64(9007199254740993)},
		{"min", int64(-9223372036854775808)},
		{"ratio", 0.25},
		{"enabled", true},
	}
	for _, tt := range tests {
		f, ok := c.Static(tt.field)
		if !ok {
			t.Errorf("static %s missing", tt.field)
			continue
		}
		if f.Value != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.field, f.Value, tt.want)
		}
	}
}

func TestImportExportJSON(t *testing.T) {
	orig, err := ReadJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	path := filepath.Join(t.TempDir(), "heap.json")
	if err := ExportJSON(orig, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	got, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if got.NumInstances() != orig.NumInstances() {
		t.Errorf("NumInstances = %d, want %d", got.NumInstances(), orig.NumInstances())
	}

	if _, err := ImportJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
