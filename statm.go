package mtrace

import (
	"os"
	"strconv"
	"strings"
)

// readRSS reads the resident set size, in pages, from /proc/self/statm's
// second field, grounded on get_memsize in libmtrace.c. ok is false when
// the file could not be read or parsed, mirroring the original's "return 0
// means give up on this sample" behavior.
func readRSS() (rss uint64, ok bool) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, false
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
