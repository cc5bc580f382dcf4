package heapio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/leakpath/pkg/heap"
)

type snapshotFile struct {
	Classes []classJSON  `json:"classes"`
	Objects []objectJSON `json:"objects"`
	Arrays  []arrayJSON  `json:"arrays,omitempty"`
	Roots   []rootJSON   `json:"roots"`
}

type fieldJSON struct {
	Name  string     `json:"name"`
	Type  string     `json:"type,omitempty"`
	Ref   heap.ObjID `json:"ref,omitempty"`
	Value any        `json:"value,omitempty"`
}

type classJSON struct {
	ID      heap.ObjID  `json:"id"`
	Name    string      `json:"name"`
	Super   heap.ObjID  `json:"super,omitempty"`
	Statics []fieldJSON `json:"statics,omitempty"`
}

type objectJSON struct {
	ID     heap.ObjID  `json:"id"`
	Class  heap.ObjID  `json:"class"`
	Fields []fieldJSON `json:"fields,omitempty"`
	String *string     `json:"string,omitempty"`
}

type arrayJSON struct {
	ID     heap.ObjID   `json:"id"`
	Class  heap.ObjID   `json:"class,omitempty"`
	Elem   string       `json:"elem,omitempty"`
	Refs   []heap.ObjID `json:"refs,omitempty"`
	Length int          `json:"length,omitempty"`
}

type rootJSON struct {
	ID     heap.ObjID `json:"id,omitempty"`
	Kind   string     `json:"kind"`
	Ref    heap.ObjID `json:"ref"`
	Thread heap.ObjID `json:"thread,omitempty"`
}

// ReadJSON decodes a JSON snapshot from r.
//
// ReadJSON returns an error if the JSON is malformed, an ID is zero or used
// twice, a type or root kind is unknown, or a class/superclass/root reference
// does not resolve (see [heap.Snapshot.Validate]). ReadJSON does not close r.
func ReadJSON(r io.Reader) (*heap.Snapshot, error) {
	var data snapshotFile
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	s := heap.NewSnapshot()
	for _, c := range data.Classes {
		statics, err := decodeFields(c.Statics)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", c.ID, err)
		}
		if err := s.Add(&heap.Class{ID: c.ID, Name: c.Name, Super: c.Super, Statics: statics}); err != nil {
			return nil, fmt.Errorf("class %d: %w", c.ID, err)
		}
	}
	for _, o := range data.Objects {
		fields, err := decodeFields(o.Fields)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", o.ID, err)
		}
		if err := s.Add(&heap.Object{ID: o.ID, Class: o.Class, Fields: fields}); err != nil {
			return nil, fmt.Errorf("object %d: %w", o.ID, err)
		}
		if o.String != nil {
			s.SetString(o.ID, *o.String)
		}
	}
	for _, a := range data.Arrays {
		elem, err := heap.ParseType(a.Elem)
		if err != nil {
			return nil, fmt.Errorf("array %d: %w", a.ID, err)
		}
		arr := &heap.Array{ID: a.ID, Class: a.Class, Elem: elem}
		if elem.IsObject() {
			arr.Refs = a.Refs
		} else {
			arr.Length = a.Length
		}
		if err := s.Add(arr); err != nil {
			return nil, fmt.Errorf("array %d: %w", a.ID, err)
		}
	}

	next := maxID(data) + 1
	for i, rt := range data.Roots {
		kind, err := heap.ParseRootKind(rt.Kind)
		if err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
		id := rt.ID
		if id == heap.NullID {
			id = next
			next++
		}
		if err := s.Add(&heap.Root{ID: id, Kind: kind, Referent: rt.Ref, Thread: rt.Thread}); err != nil {
			return nil, fmt.Errorf("root %d: %w", i, err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ImportJSON reads a JSON snapshot file at path.
func ImportJSON(path string) (*heap.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// WriteJSON encodes a snapshot as JSON. The output can be re-read with
// [ReadJSON]; roots keep their IDs.
func WriteJSON(s *heap.Snapshot, w io.Writer) error {
	out := snapshotFile{
		Classes: []classJSON{},
		Objects: []objectJSON{},
		Roots:   []rootJSON{},
	}

	s.ForEach(func(inst heap.Instance) {
		switch v := inst.(type) {
		case *heap.Class:
			out.Classes = append(out.Classes, classJSON{ID: v.ID, Name: v.Name, Super: v.Super, Statics: encodeFields(v.Statics)})
		case *heap.Object:
			o := objectJSON{ID: v.ID, Class: v.Class, Fields: encodeFields(v.Fields)}
			if str, ok := s.StringValue(v.ID); ok {
				o.String = &str
			}
			out.Objects = append(out.Objects, o)
		case *heap.Array:
			out.Arrays = append(out.Arrays, arrayJSON{ID: v.ID, Class: v.Class, Elem: v.Elem.String(), Refs: v.Refs, Length: v.Length})
		}
	})
	for _, r := range s.Roots() {
		out.Roots = append(out.Roots, rootJSON{ID: r.ID, Kind: r.Kind.String(), Ref: r.Referent, Thread: r.Thread})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a snapshot to a JSON file at path.
func ExportJSON(s *heap.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(s, f)
}

func decodeFields(in []fieldJSON) ([]heap.FieldValue, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]heap.FieldValue, len(in))
	for i, f := range in {
		typ, err := heap.ParseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fv := heap.FieldValue{Name: f.Name, Type: typ}
		if typ.IsObject() {
			fv.Ref = f.Ref
		} else {
			v, err := primitive(typ, f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fv.Value = v
		}
		out[i] = fv
	}
	return out, nil
}

func encodeFields(in []heap.FieldValue) []fieldJSON {
	if len(in) == 0 {
		return nil
	}
	out := make([]fieldJSON, len(in))
	for i, f := range in {
		fj := fieldJSON{Name: f.Name}
		if f.IsObject() {
			fj.Ref = f.Ref
		} else {
			fj.Type = f.Type.String()
			fj.Value = f.Value
		}
		out[i] = fj
	}
	return out
}

// primitive narrows a decoded JSON value to the Go type matching t.
// Numbers arrive as json.Number so that longs keep all 64 bits.
func primitive(t heap.Type, v any) (any, error) {
	n, isNum := v.(json.Number)
	switch t {
	case heap.TypeByte, heap.TypeShort, heap.TypeInt, heap.TypeLong:
		if isNum {
			i, err := strconv.ParseInt(n.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s value %s: %w", t, n, err)
			}
			return i, nil
		}
	case heap.TypeFloat, heap.TypeDouble:
		if isNum {
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("%s value %s: %w", t, n, err)
			}
			return f, nil
		}
	case heap.TypeChar:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if isNum {
			c, err := strconv.ParseInt(n.String(), 10, 32)
			if err != nil {
				return nil, fmt.Errorf("char value %s: %w", n, err)
			}
			return string(rune(c)), nil
		}
	}
	return v, nil
}

func maxID(data snapshotFile) heap.ObjID {
	var m heap.ObjID
	bump := func(id heap.ObjID) {
		if id > m {
			m = id
		}
	}
	for _, c := range data.Classes {
		bump(c.ID)
	}
	for _, o := range data.Objects {
		bump(o.ID)
	}
	for _, a := range data.Arrays {
		bump(a.ID)
	}
	for _, r := range data.Roots {
		bump(r.ID)
	}
	return m
}
