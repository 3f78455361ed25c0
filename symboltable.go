package mtrace

import (
	"sort"
	"strings"
	"sync"
)

// unresolvedSymbolName is the sentinel name used for a frame whose symbol
// could not be resolved. It is never cloned: every symbolRow that failed
// resolution shares this exact string, matching UNRESOLVED_SYM_NAME in the
// original symbol_lookup.c.
const unresolvedSymbolName = "?"

// symbolRow is one resolved (or sentinel unresolved) symbol, covering the
// inclusive range [Start, End].
type symbolRow struct {
	start, end uint64
	seq        uint64
	name       string
}

// SymbolTable is a lazily populated, sorted collection of resolved symbols,
// grounded on symbol_lookup.c. Unlike the original, which re-sorts the
// entire array with qsort after every insert, this implementation inserts
// at the correct sorted position directly: identical lookup semantics,
// asymptotically better insert behavior, exactly the alternative the
// original author's own comments in symbol_lookup.c invite.
type SymbolTable struct {
	mu      sync.RWMutex
	rows    []symbolRow
	nextSeq uint64
}

// NewSymbolTable returns an empty table with the original's starting
// capacity of 400 rows.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{rows: make([]symbolRow, 0, 400)}
}

// Lookup performs a binary search over the table for ip, returning the
// matching row and true on a hit.
func (t *SymbolTable) Lookup(ip uint64) (symbolRow, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lookupLocked(ip)
}

func (t *SymbolTable) lookupLocked(ip uint64) (symbolRow, bool) {
	lo, hi := 0, len(t.rows)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		r := t.rows[mid]
		switch {
		case r.start <= ip && ip <= r.end:
			return r, true
		case r.start > ip:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}
	return symbolRow{}, false
}

// Insert records a newly resolved symbol (or the unresolved sentinel, when
// name == unresolvedSymbolName) and returns the row as stored, with its
// assigned sequence number. onEmit, if non-nil, is invoked with the final
// row while still holding the write lock, so that an emitted symbol
// definition line and the row that refers to it never observe a
// conflicting concurrent insert for the same name.
func (t *SymbolTable) Insert(start, end uint64, name string, onEmit func(row symbolRow)) symbolRow {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := symbolRow{start: start, end: end, seq: t.nextSeq, name: name}
	if name != unresolvedSymbolName {
		row.name = strings.Clone(name)
	}
	t.nextSeq++

	idx := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].start >= start })
	t.rows = append(t.rows, symbolRow{})
	copy(t.rows[idx+1:], t.rows[idx:])
	t.rows[idx] = row

	if onEmit != nil {
		onEmit(row)
	}
	return row
}
