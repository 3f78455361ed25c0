package mtrace

import (
	"reflect"
	"testing"
)

func addrOf(fn any) uint64 {
	return uint64(reflect.ValueOf(fn).Pointer())
}

func TestRangeCacheLookupAfterMarkStale(t *testing.T) {
	c := NewRangeCache()

	// The first lookup rebuilds from the real /proc/self/maps; the
	// process's own text segment must be executable, so looking up the
	// address of a function in this very binary must hit.
	ip := addrOf(TestRangeCacheLookupAfterMarkStale)
	if !c.Lookup(ip) {
		t.Fatal("expected the running binary's own code address to be in an executable range")
	}

	c.MarkStale()
	if !c.Lookup(ip) {
		t.Fatal("expected lookup to still succeed after a forced rebuild")
	}
}

func TestRangeCacheOutOfBoundsMisses(t *testing.T) {
	c := NewRangeCache()
	c.Lookup(addrOf(TestRangeCacheOutOfBoundsMisses)) // force a rebuild
	if c.Lookup(0) {
		t.Fatal("address 0 should never be executable")
	}
}
