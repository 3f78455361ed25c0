package mtrace

import (
	"sync"

	"golang.org/x/sys/unix"
)

// outputBufferSize mirrors the original's per-thread 2*DEFAULT_PAGE_SIZE
// output buffer.
const outputBufferSize = 2 * 4096

// threadState bundles every piece of state the original implementation
// keeps in scattered __thread globals: the reentrancy depth counter, the
// unwinder's own recursion guard, and the thread's output buffer. Go has no
// native thread-local storage, so every OS thread that calls into the
// tracer gets exactly one threadState, looked up once by gettid and
// thereafter mutated without any additional locking by its owning thread.
type threadState struct {
	depth           int32
	unwindRecursion bool
	tid             int
	buf             []byte
}

// threadRegistry maps OS thread ids to their threadState. Lookups for a
// thread that has already been seen are lock-free load-hit.
type threadRegistry struct {
	threads sync.Map // int -> *threadState
}

func (r *threadRegistry) get() *threadState {
	tid := unix.Gettid()
	if v, ok := r.threads.Load(tid); ok {
		return v.(*threadState)
	}
	st := &threadState{tid: tid, buf: make([]byte, 0, outputBufferSize)}
	actual, _ := r.threads.LoadOrStore(tid, st)
	return actual.(*threadState)
}

// gate implements the reentrancy gate: the first call on a given thread is
// "outermost" and gets observed; any call nested inside it (because the
// tracer's own machinery allocates memory) is suppressed.
type gate struct {
	registry threadRegistry
}

// enter increments the calling thread's depth counter and reports whether
// this call was already nested inside another one (suppressed == true) at
// the moment of entry, before the increment.
func (g *gate) enter() (st *threadState, suppressed bool) {
	st = g.registry.get()
	suppressed = st.depth > 0
	st.depth++
	return st, suppressed
}

// leave decrements the calling thread's depth counter. Must be called
// exactly once for every enter, even when enter reported suppressed.
func (g *gate) leave(st *threadState) {
	st.depth--
}

// isOutermost reports whether st currently represents the single
// outermost, top-level call on its thread.
func (st *threadState) isOutermost() bool {
	return st.depth == 1
}
