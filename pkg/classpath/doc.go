// Package classpath reads class headers from directories and jar archives.
//
// It answers the one question leak traces need from compiled classes: which
// interfaces an anonymous class implements. Heap snapshots do not record
// interfaces, so they are looked up in the .class files of the analyzed
// application. A [Classpath] implements [chain.InterfaceResolver].
//
// Only the class header is decoded: the constant pool, the access flags,
// this/super class and the interface table. Fields, methods and attributes
// are never read.
package classpath
