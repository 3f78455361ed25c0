package mtrace

// EventKind identifies one of the intercepted entry points. The zero value
// is EventMalloc.
type EventKind int

const (
	EventMalloc EventKind = iota
	EventCalloc
	EventRealloc
	EventFree
	EventCfree
	EventMemalign
	EventPosixMemalign
	EventAlignedAlloc
	EventValloc
	EventPvalloc
	EventMemmove
	EventMemset
	EventMmap
	EventMunmap
	EventMmap2
	EventMlock
	EventMunlock
	EventMlockall
	EventMunlockall
	eventMax
)

// class is the size-classification bucket used by the policy engine,
// grounded on the original implementation's alloc_stats enum.
type class int

const (
	classMallocLike class = iota
	classMmapLike
	classRelease
	classLock
	classAuxiliary
)

type eventInfo struct {
	compactTag string
	humanName  string
	class      class
}

var eventTable = [eventMax]eventInfo{
	EventMalloc:        {"MA$", "malloc", classMallocLike},
	EventCalloc:        {"CA$", "calloc", classMallocLike},
	EventRealloc:       {"RE$", "realloc", classMallocLike},
	EventFree:          {"FR$", "free", classRelease},
	EventCfree:         {"CF$", "cfree", classRelease},
	EventMemalign:      {"ME$", "memalign", classMallocLike},
	EventPosixMemalign: {"PO$", "posix_memalign", classMallocLike},
	EventAlignedAlloc:  {"AL$", "aligned_alloc", classMallocLike},
	EventValloc:        {"VA$", "valloc", classMallocLike},
	EventPvalloc:       {"PV$", "pvalloc", classMallocLike},
	EventMemmove:       {"MM!", "memmove", classAuxiliary},
	EventMemset:        {"MS!", "memset", classMallocLike},
	EventMmap:          {"MM&", "mmap", classMmapLike},
	EventMunmap:        {"MU&", "munmap", classRelease},
	EventMmap2:         {"MM2&", "mmap2", classMmapLike},
	EventMlock:         {"ML#", "mlock", classLock},
	EventMunlock:       {"MU#", "munlock", classLock},
	EventMlockall:      {"MLA#", "mlockall", classLock},
	EventMunlockall:    {"MUA#", "munlockall", classLock},
}

// Tag returns the wire-format name for the event: the compact tag normally,
// the human-readable name when human is true.
func (e EventKind) Tag(human bool) string {
	if e < 0 || e >= eventMax {
		return "ERROR"
	}
	if human {
		return eventTable[e].humanName
	}
	return eventTable[e].compactTag
}

// Class reports the size-classification bucket used by the policy engine
// for this event kind.
func (e EventKind) Class() class {
	if e < 0 || e >= eventMax {
		return classAuxiliary
	}
	return eventTable[e].class
}
