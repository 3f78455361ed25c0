package mtrace

// Unwinder captures the current call stack and resolves the symbol
// covering a given program counter. It is the Go-level analogue of the
// UNW_LOCAL_ONLY subset of libunwind that unwind_trace.c drives.
type Unwinder interface {
	// Capture returns up to len(pcs) program counters for the calling
	// thread's stack into pcs, starting skip frames in, and returns the
	// number filled.
	Capture(pcs []uintptr, skip int) int
	// Name resolves the function covering pc. ok is false when the
	// frame could not be attributed to any known symbol.
	Name(pc uintptr) (name string, start, end uint64, ok bool)
	// FlushCache discards any internal caches the backend keeps across
	// calls, analogous to unw_flush_cache. Called after a shared object
	// is unloaded.
	FlushCache()
}

// skipFrames mirrors unwind_trace.c's skip_frames: the first two frames of
// any captured stack are always inside the tracer's own call/unwind glue.
const skipFrames = 2

// Driver walks a stack using an Unwinder, consulting and filling the
// RangeCache and SymbolTable along the way, grounded on unwind_trace.c's
// unwind_trace().
type Driver struct {
	unwinder Unwinder
	ranges   *RangeCache
	symbols  *SymbolTable
	depth    int
	human    bool
}

// NewDriver builds a Driver. depth is the maximum number of frames to
// follow, mirroring UNWIND_DEPTH (default 32, overridable via
// unwind_set_depth in the original). depth == 0 is a legal value meaning
// "disable backtraces" (MTRACE_BACKTRACE_DEPTH=0 or a negative value
// clamped to 0 by ParseEnv) and results in Walk emitting no frames; only a
// negative depth reaching this constructor directly (bypassing ParseEnv,
// e.g. from a test) is clamped up to 0.
func NewDriver(unwinder Unwinder, ranges *RangeCache, symbols *SymbolTable, depth int, human bool) *Driver {
	if depth < 0 {
		depth = 0
	}
	return &Driver{unwinder: unwinder, ranges: ranges, symbols: symbols, depth: depth, human: human}
}

// Frame is one emitted backtrace line.
type Frame struct {
	IP     uint64
	Symbol symbolRow
}

// Walk captures the calling thread's stack and invokes emit for each frame
// that passes the executable-range check, stopping early when: the
// recursion guard trips (emits no frames and no message, and returns
// immediately), an IP falls outside every known executable range,
// a frame's symbol is unresolved (emitted, then the walk stops), or depth
// frames have been emitted.
func (d *Driver) Walk(st *threadState, emitSymbolDef func(row symbolRow), emit func(f Frame)) {
	if st.unwindRecursion {
		return
	}
	st.unwindRecursion = true
	defer func() { st.unwindRecursion = false }()

	pcs := make([]uintptr, skipFrames+d.depth)
	n := d.unwinder.Capture(pcs, 0)

	emitted := 0
	for i := 0; i < n && emitted < d.depth; i++ {
		if i < skipFrames {
			continue
		}
		ip := uint64(pcs[i])
		if !d.ranges.Lookup(ip) {
			break
		}

		row, ok := d.symbols.Lookup(ip)
		if !ok {
			name, start, end, found := d.unwinder.Name(pcs[i])
			if found {
				row = d.symbols.Insert(start, end, name, func(r symbolRow) {
					if emitSymbolDef != nil {
						emitSymbolDef(r)
					}
				})
			} else {
				row = d.symbols.Insert(ip, ip, unresolvedSymbolName, nil)
			}
		}

		emit(Frame{IP: ip, Symbol: row})
		emitted++
		if row.name == unresolvedSymbolName {
			break
		}
	}
}

// FlushCache forwards to the underlying Unwinder and marks the range cache
// stale, grounded on the dlclose path calling both
// maps_cache_deferred_flush and unwind_flush_cache.
func (d *Driver) FlushCache() {
	d.unwinder.FlushCache()
	d.ranges.MarkStale()
}
