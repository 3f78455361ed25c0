package mtrace

// signalGuard suspends and restores asynchronous signal delivery around a
// sensitive region — everything from the start of an event frame through
// its commit — so that a signal handler cannot reenter the tracer mid
// write. Two implementations exist, selected at build time: the real one,
// under build tag mtrace_atomic_backtrace, and a no-op default. Both
// expose the same call sites, grounded on the HAVE_ATOMIC_BACKTRACE #ifdef
// in libmtrace.c.
//
// Block returns an opaque token capturing whatever state Restore needs to
// undo it; the token is caller-owned (typically stashed on an EventFrame)
// rather than kept inside the guard itself, since a single guard instance
// is shared by every OS thread in the process.
type signalGuard interface {
	Block() any
	Restore(token any)
}
