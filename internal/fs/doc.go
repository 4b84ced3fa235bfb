// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [FileSystem]: the operations the index engine, the replace journal and
//     the directory export sink perform on disk
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: wraps another FileSystem and injects errors per file name
//
// Production code uses fs.Default. Tests inject a FaultyFS to simulate a
// failing disk, for example an unwritable export target:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("doc-2", fs.Fault{FailOnOpen: true})
//
// Operations take no context.Context: local file operations are not
// interruptible at the syscall level.
package fs
