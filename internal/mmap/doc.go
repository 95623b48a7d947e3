// Package mmap provides anonymous memory mappings for off-heap chunk storage.
//
// # Off-Heap Chunks
//
// Chunks backed by anonymous mappings live outside the Go heap: the garbage
// collector never scans them, and Close returns them to the operating system
// immediately rather than waiting for a collection cycle. This suits arenas
// holding large volumes of short-lived bytes.
//
// # Platform Support
//
// Anonymous mappings are available on unix-like platforms. On other platforms
// MapAnon returns ErrUnsupported and callers fall back to heap-backed chunks.
//
// # Access Advice
//
// Advise forwards access-pattern hints to the kernel (madvise). Hints are
// advisory; failures for unaligned regions are ignored.
package mmap
