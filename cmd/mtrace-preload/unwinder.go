package main

import "github.com/sergey-senozhatsky/libmtrace"

// newNativeUnwinder returns the Unwinder this shim wires into the tracer.
// It is always the cgo/libunwind backend: this package only exists on
// linux and is always built with cgo enabled (required for -buildmode=c-shared
// in the first place), so mtrace.NewLibunwindUnwinder is always available.
func newNativeUnwinder() mtrace.Unwinder {
	return mtrace.NewLibunwindUnwinder()
}
