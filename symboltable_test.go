package mtrace

import "testing"

func TestSymbolTableInsertSortedAndLookup(t *testing.T) {
	st := NewSymbolTable()

	st.Insert(100, 199, "b", nil)
	st.Insert(0, 99, "a", nil)
	st.Insert(200, 299, "c", nil)

	for i := 1; i < len(st.rows); i++ {
		if st.rows[i-1].start > st.rows[i].start {
			t.Fatalf("rows not sorted by start: %+v", st.rows)
		}
	}

	row, ok := st.Lookup(150)
	if !ok || row.name != "b" {
		t.Fatalf("Lookup(150) = %+v, %v, want name=b", row, ok)
	}

	if _, ok := st.Lookup(1000); ok {
		t.Fatal("Lookup(1000) unexpectedly hit")
	}
}

func TestSymbolTableSeqMonotonic(t *testing.T) {
	st := NewSymbolTable()
	r1 := st.Insert(0, 10, "a", nil)
	r2 := st.Insert(20, 30, "b", nil)
	if r2.seq <= r1.seq {
		t.Fatalf("sequence numbers not monotonic: %d, %d", r1.seq, r2.seq)
	}
}

func TestSymbolTableUnresolvedSentinelNotCloned(t *testing.T) {
	st := NewSymbolTable()
	row := st.Insert(5, 5, unresolvedSymbolName, nil)
	if row.name != unresolvedSymbolName {
		t.Fatalf("name = %q, want sentinel", row.name)
	}
}

func TestSymbolTableOnEmitCalledUnderLock(t *testing.T) {
	st := NewSymbolTable()
	var emitted symbolRow
	locked := false
	st.Insert(1, 2, "f", func(row symbolRow) {
		emitted = row
		if st.mu.TryRLock() {
			st.mu.RUnlock()
		} else {
			locked = true
		}
	})
	if emitted.name != "f" {
		t.Fatalf("onEmit row = %+v, want name=f", emitted)
	}
	if !locked {
		t.Fatal("onEmit ran without the table's write lock held")
	}
}
