package mtrace

import (
	"math"
	"strconv"
)

// Mode is the reporting mode that drives the filter/policy engine. The
// zero value is ModeGrowth, the original's default.
type Mode int

const (
	ModeGrowth Mode = iota
	ModeAllocTop
	ModeAllocOnly
	ModeFull
	ModeWatermark
)

// Options holds everything the initialization orchestrator resolves from
// the environment, grounded on __init_mtrace in libmtrace.c.
type Options struct {
	BacktraceDepth int
	LogDir         string
	Mode           Mode
	MinWatermark   uint64
	MaxWatermark   uint64
	HumanReadable  bool
}

// DefaultOptions returns the orchestrator's defaults before any
// environment variable is consulted.
func DefaultOptions() Options {
	return Options{
		BacktraceDepth: 32,
		Mode:           ModeGrowth,
		MaxWatermark:   math.MaxUint64,
	}
}

// GetenvFunc mirrors the signature of getenv as seen by the orchestrator:
// the cgo shim layer is expected to thread its own (possibly
// interposed-on-itself) getenv through this, rather than calling os.Getenv
// directly, so that tests can supply a fake environment.
type GetenvFunc func(key string) (value string, ok bool)

// ParseEnv resolves Options from the environment in the exact order the
// original orchestrator does. The order matters: MTRACE_REPORTING_MODE,
// MTRACE_ALLOC_MINWMARK and MTRACE_ALLOC_MAXWMARK each assign Mode outright
// (not OR it in), so whichever of them is consulted last wins when more
// than one is set — MTRACE_ALLOC_MINWMARK/MAXWMARK always clobber a mode
// set by MTRACE_REPORTING_MODE, since they are parsed afterward. Only
// MTRACE_HUMAN_READABLE is additive. This is a deliberate preservation of
// the original's precedence quirk, not a bug to be fixed (see DESIGN.md).
func ParseEnv(getenv GetenvFunc) Options {
	opts := DefaultOptions()

	if v, ok := getenv("MTRACE_BACKTRACE_DEPTH"); ok {
		if d, err := strconv.Atoi(v); err == nil {
			if d < 0 {
				d = 0
			}
			opts.BacktraceDepth = d
		}
	}

	if v, ok := getenv("MTRACE_LOG_DIR"); ok {
		opts.LogDir = v
	}

	if v, ok := getenv("MTRACE_REPORTING_MODE"); ok {
		switch v {
		case "atop":
			opts.Mode = ModeAllocTop
		case "full":
			opts.Mode = ModeFull
		case "alloc":
			opts.Mode = ModeAllocOnly
		}
	}

	if v, ok := getenv("MTRACE_ALLOC_MINWMARK"); ok {
		opts.MinWatermark = ParseMemSize(v)
		opts.Mode = ModeWatermark
	}

	if v, ok := getenv("MTRACE_ALLOC_MAXWMARK"); ok {
		opts.MaxWatermark = ParseMemSize(v)
		opts.Mode = ModeWatermark
	}

	if _, ok := getenv("MTRACE_HUMAN_READABLE"); ok {
		opts.HumanReadable = true
	}

	return opts
}

// ParseMemSize parses a decimal integer optionally followed by a k/m/g
// suffix (base 1024, case-insensitive), grounded on memparse in
// libmtrace.c. The suffix cases intentionally fall through from g to m to
// k — "1g" shifts by 10 three times, "1m" twice, "1k" once — reproducing
// the original's switch-fallthrough exactly rather than writing it as three
// independent multiplications, since that fallthrough is the whole reason
// "1g" and "1024m" parse to the same value.
func ParseMemSize(s string) uint64 {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, _ := strconv.ParseUint(s[:i], 10, 64)
	if i >= len(s) {
		return n
	}
	switch s[i] {
	case 'G', 'g':
		n <<= 10
		fallthrough
	case 'M', 'm':
		n <<= 10
		fallthrough
	case 'K', 'k':
		n <<= 10
	}
	return n
}
