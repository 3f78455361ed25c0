// Command mtrace-preload builds the interposition shared object: a
// -buildmode=c-shared library that exports the libc allocation/mapping
// entry points the tracer cares about, each one delegating to a
// *mtrace.Tracer after calling through to the real glibc implementation
// resolved via dlsym(RTLD_NEXT, ...), grounded on libmtrace.c.
//
// Build with:
//
//	go build -buildmode=c-shared -o mtrace-preload.so ./cmd/mtrace-preload
//
// and run a target program with LD_PRELOAD=./mtrace-preload.so set.
package main

import "C"

// main is required by the toolchain for a c-shared build but is never
// executed: the shared object is loaded by the dynamic linker into a host
// process, which never calls into this package's main.
func main() {}
