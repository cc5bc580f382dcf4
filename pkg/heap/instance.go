package heap

// Instance is a node of the heap graph. The implementations are exactly
// [*Root], [*Class], [*Object] and [*Array]; the unexported marker method
// keeps other packages from adding kinds.
type Instance interface {
	ObjectID() ObjID
	instance()
}

// Root is a GC root entry referring to one instance.
type Root struct {
	ID       ObjID
	Kind     RootKind
	Referent ObjID // instance kept alive by this root
	Thread   ObjID // owning thread instance for RootJavaLocal roots
}

// Class is a class object. Its static fields are the edges of the class.
type Class struct {
	ID      ObjID
	Name    string
	Super   ObjID // NullID for java.lang.Object and for interfaces
	Statics []FieldValue
}

// Object is an instance of a class. Fields holds the values of every
// instance field declared by the class and its superclasses.
type Object struct {
	ID     ObjID
	Class  ObjID
	Fields []FieldValue
}

// Array is an object or primitive array. Refs holds the elements of object
// arrays; primitive arrays only record their Length.
type Array struct {
	ID     ObjID
	Class  ObjID // optional array class, NullID when unknown
	Elem   Type
	Refs   []ObjID
	Length int
}

func (r *Root) ObjectID() ObjID   { return r.ID }
func (c *Class) ObjectID() ObjID  { return c.ID }
func (o *Object) ObjectID() ObjID { return o.ID }
func (a *Array) ObjectID() ObjID  { return a.ID }

func (*Root) instance()   {}
func (*Class) instance()  {}
func (*Object) instance() {}
func (*Array) instance()  {}

// Len returns the number of elements of the array.
func (a *Array) Len() int {
	if a.Elem.IsObject() {
		return len(a.Refs)
	}
	return a.Length
}

// Field returns the first field with the given name.
func (o *Object) Field(name string) (FieldValue, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldValue{}, false
}

// Static returns the static field with the given name.
func (c *Class) Static(name string) (FieldValue, bool) {
	for _, f := range c.Statics {
		if f.Name == name {
			return f, true
		}
	}
	return FieldValue{}, false
}
