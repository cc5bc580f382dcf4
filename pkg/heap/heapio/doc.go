// Package heapio reads and writes heap snapshots in a JSON interchange
// format.
//
// The format is produced by converter tools that sit between a runtime's
// native dump format and leakpath. It lists classes, objects, arrays and GC
// roots:
//
//	{
//	  "classes": [
//	    {"id": 1, "name": "java.lang.Object"},
//	    {"id": 2, "name": "com.example.Cache", "super": 1,
//	     "statics": [{"name": "INSTANCE", "ref": 10}]}
//	  ],
//	  "objects": [
//	    {"id": 10, "class": 2, "fields": [{"name": "size", "type": "int", "value": 3}]},
//	    {"id": 11, "class": 3, "string": "main"}
//	  ],
//	  "arrays": [
//	    {"id": 20, "elem": "object", "refs": [10, 0]},
//	    {"id": 21, "elem": "byte", "length": 64}
//	  ],
//	  "roots": [
//	    {"kind": "sticky-class", "ref": 2},
//	    {"kind": "java-local", "ref": 10, "thread": 12}
//	  ]
//	}
//
// Field and element types default to "object"; a reference of 0 is null.
// Roots without an "id" receive IDs above the largest ID in the file.
// The "string" key carries decoded java.lang.String contents, used to report
// thread names.
package heapio
