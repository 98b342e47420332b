// Package mmap maps files read-only into memory so datasets can be loaded
// without copying them through kernel buffers.
//
//	f, err := mmap.Open("points.bin")
//	if err != nil { ... }
//	defer f.Close()
//
//	data := f.Bytes()
//
// Unix platforms use mmap(2) and madvise(2). Windows uses MapViewOfFile and
// ignores access hints.
package mmap
