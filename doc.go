// Package mtrace implements the in-process half of a native memory-tracing
// interposition library: reentrancy gating, signal suspension, the
// executable-range cache, the lazily populated symbol table, the unwinder
// driver, and the filter/policy engine that decides which intercepted calls
// are worth a backtrace.
//
// The package itself never intercepts anything — it has no dependency on
// libc symbol names or calling conventions. The actual interposition shims
// live in cmd/mtrace-preload, a small cgo adapter built with
// -buildmode=c-shared, which resolves the real libc entry points with
// dlsym and delegates everything else to a *Tracer from this package.
package mtrace
