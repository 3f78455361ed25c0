package mtrace

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// Tracer is the process-wide interposition engine: one instance is created
// per traced process and shared by every interposition shim. It owns every
// other component (arena, gate, caches, policy, driver, signal guard) and
// drives the per-event lifecycle described by BeginEvent/EventFrame.Finish.
type Tracer struct {
	once  sync.Once
	ready atomic.Bool

	// mu is the process-wide tracer mutex. It is only held across an
	// entire event in ModeGrowth, serializing reads of
	// /proc/self/statm's RSS field, grounded on lock_tracer/unlock_tracer.
	mu sync.Mutex

	arena  *arena
	gate   *gate
	sink   *Sink
	ranges *RangeCache
	symbol *SymbolTable
	driver   *Driver
	policy   *Policy
	signal   signalGuard
	recorder *Recorder

	opts     Options
	progName string
	pid      int
}

// New constructs a Tracer. Call BindUnwinder once EnsureInit has resolved
// Options before the first event, passing NewLibunwindUnwinder() in the
// interposition shim layer or NewRuntimeUnwinder() in tests.
func New(progName string) *Tracer {
	return &Tracer{
		arena:    &arena{},
		gate:     &gate{},
		ranges:   NewRangeCache(),
		symbol:   NewSymbolTable(),
		signal:   newSignalGuard(),
		progName: progName,
		pid:      os.Getpid(),
	}
}

// Arena exposes the early-init bump allocator for the shim layer to fall
// back to before EnsureInit has completed.
func (t *Tracer) Arena() *arena { return t.arena }

// EarlyAlloc serves size bytes, aligned to alignment (0 meaning the
// arena's own minimum alignment), out of the early-init arena. Exported so
// the interposition shim layer, which lives outside this package, can
// serve allocations made before EnsureInit has resolved the real
// allocator entry points.
func (t *Tracer) EarlyAlloc(size, alignment uintptr) []byte {
	return t.arena.alloc(size, alignment)
}

// Ready reports whether initialization has completed. Shims consult this
// before deciding whether to serve an allocation from the real allocator
// (ready) or the early-init arena (not ready).
func (t *Tracer) Ready() bool { return t.ready.Load() }

// EnsureInit runs the initialization orchestrator exactly once. It blocks
// signals and enters the reentrancy gate around the whole sequence,
// grounded on __init/__init_mtrace: if EnsureInit itself is invoked
// reentrantly (because, say, resolving a real_* symbol via dlsym
// allocates), the nested call observes suppression and returns
// immediately, leaving the outer call to finish the job.
func (t *Tracer) EnsureInit(getenv GetenvFunc) {
	if t.ready.Load() {
		return
	}
	token := t.signal.Block()
	defer t.signal.Restore(token)

	st, suppressed := t.gate.enter()
	defer t.gate.leave(st)
	if suppressed {
		return
	}

	t.once.Do(func() {
		t.init(getenv)
	})
}

func (t *Tracer) init(getenv GetenvFunc) {
	t.opts = ParseEnv(getenv)
	t.policy = NewPolicy(t.opts)

	if t.opts.LogDir != "" {
		sink, err := NewFileSink(t.opts.LogDir, t.progName, t.pid)
		if err != nil {
			log.Printf("mtrace: %s, falling back to stderr", err)
			t.sink = NewStderrSink()
		} else {
			t.sink = sink
		}
	} else {
		t.sink = NewStderrSink()
	}

	t.ready.Store(true)
}

// BindUnwinder finishes wiring the Driver once an Unwinder implementation
// has been chosen; kept separate from New so that tests can construct a
// Tracer and swap unwinders before the first event.
func (t *Tracer) BindUnwinder(unwinder Unwinder) {
	t.driver = NewDriver(unwinder, t.ranges, t.symbol, t.opts.BacktraceDepth, t.opts.HumanReadable)
}

// pageSize caches unix.Getpagesize's result; it never changes at runtime.
var pageSize = uint64(unix.Getpagesize())

// PageSize exposes pageSize to the interposition shim layer, which needs it
// to preserve valloc's page-alignment guarantee for allocations served out
// of the early-init arena, grounded on __init_alloc(__size, page_size) in
// the original's valloc override.
func PageSize() uintptr { return uintptr(pageSize) }

// PhysPageSize is the physical page size pvalloc rounds up to and aligns
// to, grounded on __init_alloc(__size, phys_page_size) in the original's
// pvalloc override. On every platform this package targets, the physical
// page size and the logical one reported by getpagesize(2) are the same
// value, so this is not tracked separately from pageSize.
func PhysPageSize() uintptr { return uintptr(pageSize) }

// SuppressReentrancy enters the reentrancy gate for the calling thread,
// runs fn with any nested interposed call on this thread suppressed, then
// leaves the gate. Grounded on the dlclose override's
// TRACING_DISABLE()/TRACING_ENABLE() bracket around its
// unwind_flush_cache/maps_cache_deferred_flush calls: those calls must not
// themselves be observed as traced events, nor trigger a nested allocation
// event if they happen to allocate.
func (t *Tracer) SuppressReentrancy(fn func()) {
	st, _ := t.gate.enter()
	defer t.gate.leave(st)
	fn()
}

// EventFrame tracks the lifecycle of a single intercepted call, from
// BeginEvent through Finish, grounded on event_start_frame/
// is_event_top_frame/event_end_frame in libmtrace.c.
type EventFrame struct {
	tracer       *Tracer
	state        *threadState
	outermost    bool
	growthLocked bool
	signalToken  any
}

// BeginEvent enters the reentrancy gate for kind and, if this call is the
// outermost one on its thread, blocks signals, optionally takes the
// process-wide tracer mutex (growth mode only), and writes the pid/
// timestamp header tokens into the thread's output buffer.
func (t *Tracer) BeginEvent(kind EventKind) *EventFrame {
	st, suppressed := t.gate.enter()
	ef := &EventFrame{tracer: t, state: st}
	if suppressed {
		return ef
	}
	ef.outermost = true
	ef.signalToken = t.signal.Block()

	if t.opts.Mode == ModeGrowth {
		t.mu.Lock()
		ef.growthLocked = true
	}

	st.pidTag(st.tid)
	st.timestampTag(time.Now())
	return ef
}

// Outermost reports whether this frame is the single observed call, as
// opposed to one suppressed by reentrancy.
func (ef *EventFrame) Outermost() bool { return ef.outermost }

// WriteCall appends the call-opening text ("name(args)") to the event
// record. A no-op when the frame is suppressed.
func (ef *EventFrame) WriteCall(format string, args ...any) {
	if !ef.outermost {
		return
	}
	ef.state.appendf(format, args...)
}

// ForcePageFault zeroes b byte by byte when the tracer is running in
// growth mode, matching forced_pgfault in libmtrace.c: growth mode cares
// about RSS, and RSS only reflects pages that have actually faulted in, so
// a freshly mmap'd or malloc'd region is touched immediately rather than
// left untouched (and therefore invisible to /proc/self/statm) until the
// traced program gets around to using it.
func (ef *EventFrame) ForcePageFault(b []byte) {
	if ef.tracer.opts.Mode != ModeGrowth || b == nil {
		return
	}
	zeroForcePageFault(b)
}

// Finish appends the return-value text, asks the policy engine whether the
// event is worth a backtrace, optionally walks the stack, commits the
// thread's buffer, and leaves the reentrancy gate. It is always safe to
// call, even on a suppressed frame: in that case it only decrements the
// gate.
func (ef *EventFrame) Finish(c class, size uint64, retval string) {
	if !ef.outermost {
		ef.tracer.gate.leave(ef.state)
		return
	}

	ef.state.appendf("=%s\n", retval)

	trace, growth := ef.tracer.policy.Decide(c, size)
	if growth != nil {
		ef.state.appendf("[m:%d-%d]\n", growth.before*pageSize, growth.after*pageSize)
	}

	if ef.growthLocked {
		ef.tracer.mu.Unlock()
	}

	if trace && ef.tracer.driver != nil {
		var frames []Frame
		ef.tracer.driver.Walk(ef.state, func(row symbolRow) {
			if row.name == unresolvedSymbolName {
				return
			}
			if ef.tracer.opts.HumanReadable {
				return
			}
			ef.state.appendf("[f:%d][%x-%x][%s]\n", row.seq, row.start, row.end, row.name)
		}, func(f Frame) {
			if ef.tracer.opts.HumanReadable {
				ef.state.appendf("# [<0x%x>] %s+0x%x\n", f.IP, f.Symbol.name, f.IP-f.Symbol.start)
			} else {
				ef.state.appendf("#%x#%d#%x\n", f.IP, f.Symbol.seq, f.IP-f.Symbol.start)
			}
			if ef.tracer.recorder != nil {
				frames = append(frames, f)
			}
		})
		if ef.tracer.recorder != nil {
			ef.tracer.recorder.Record(frames, int64(size))
		}
	}

	ef.state.commit(ef.tracer.sink)
	ef.tracer.signal.Restore(ef.signalToken)
	ef.tracer.gate.leave(ef.state)
}

// FlushCaches marks the executable-range cache stale and asks the
// unwinder to drop any cached state, grounded on the dlclose override's
// call to maps_cache_deferred_flush + unwind_flush_cache.
func (t *Tracer) FlushCaches() {
	if t.driver != nil {
		t.driver.FlushCache()
		return
	}
	t.ranges.MarkStale()
}

// Tag formats the event-name token for kind according to the resolved
// HumanReadable option.
func (t *Tracer) Tag(kind EventKind) string {
	return kind.Tag(t.opts.HumanReadable)
}

// Errorf is the fatal-condition helper the interposition shims use for
// conditions the original treats with abort(): a mapping/locking call or a
// dlclose reaching the shim before initialization has completed. Go has
// no direct analogue of abort() that a host process embedding this shared
// library would expect, so this logs and exits the process outright rather
// than panicking across the cgo boundary the shim layer sits on.
func Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "mtrace: FATAL: "+format+"\n", args...)
	os.Exit(1)
}
