package mtrace

import "sync"

// growthSample carries the before/after RSS values (in pages) produced by
// a growth-mode decision, so the caller can format the "[m:before-after]"
// annotation.
type growthSample struct {
	before, after uint64
}

// Policy implements the filter/policy engine: given an event's size class
// and size, it decides whether the event is worth a backtrace. Grounded on
// can_backtrace in libmtrace.c.
//
// Unlike the original, which only serializes opts.stats updates under the
// tracer mutex in growth mode (every other mode mutates opts.stats[type]
// without any lock at all, tolerated in C as a benign race on a word-sized
// integer), this Go port always guards its stats maps with their own
// mutex. Go's map implementation does not tolerate concurrent unsynchronized
// writes the way C tolerates a torn integer read — it can corrupt the map
// and crash the process — so leaving alloc-top's high-water stats unguarded
// would be an outright safety bug here, not just a cosmetic race. This is a
// deliberate deviation, recorded in DESIGN.md.
type Policy struct {
	mu sync.Mutex

	mode  Mode
	min   uint64
	max   uint64
	human bool

	highWater map[class]uint64
	lastRSS   map[class]uint64
}

// NewPolicy builds a Policy from resolved Options.
func NewPolicy(opts Options) *Policy {
	return &Policy{
		mode:      opts.Mode,
		min:       opts.MinWatermark,
		max:       opts.MaxWatermark,
		human:     opts.HumanReadable,
		highWater: make(map[class]uint64),
		lastRSS:   make(map[class]uint64),
	}
}

// watermarkEligible reports whether c is one of the two classes the
// original's watermark/growth/alloc-top modes operate over (the original's
// "type > MAX_STATS" check, where MAX_STATS only covers STATS_MALLOC_SZ
// and STATS_MMAP_SZ).
func watermarkEligible(c class) bool {
	return c == classMallocLike || c == classMmapLike
}

// Decide applies the active reporting mode to one event and reports
// whether it should be backtraced. growth is non-nil only in ModeGrowth,
// and only when trace is true, carrying the before/after RSS sample to
// format into the output record.
func (p *Policy) Decide(c class, size uint64) (trace bool, growth *growthSample) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.mode {
	case ModeWatermark:
		if !watermarkEligible(c) {
			return false, nil
		}
		return p.min <= size && size <= p.max, nil

	case ModeGrowth:
		rss, ok := readRSS()
		if !ok {
			return false, nil
		}
		before := p.lastRSS[c]
		p.lastRSS[c] = rss
		if !watermarkEligible(c) {
			return false, nil
		}
		if c == classMmapLike || rss > before {
			return true, &growthSample{before: before, after: rss}
		}
		return false, nil

	case ModeFull:
		return true, nil

	case ModeAllocOnly:
		return watermarkEligible(c), nil

	case ModeAllocTop:
		if !watermarkEligible(c) {
			return false, nil
		}
		if size > p.highWater[c] {
			p.highWater[c] = size
			return true, nil
		}
		return false, nil

	default:
		return false, nil
	}
}

// HumanReadable reports whether the policy was configured for
// human-readable output.
func (p *Policy) HumanReadable() bool {
	return p.human
}
