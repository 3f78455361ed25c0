package mtrace

import "testing"

func TestDriverWalkEmitsFramesAndSymbolDefs(t *testing.T) {
	driver := NewDriver(NewRuntimeUnwinder(), NewRangeCache(), NewSymbolTable(), 16, false)

	st := &threadState{}
	var frames []Frame
	var defs []symbolRow
	driver.Walk(st, func(row symbolRow) {
		defs = append(defs, row)
	}, func(f Frame) {
		frames = append(frames, f)
	})

	if len(frames) == 0 {
		t.Fatal("expected at least one frame from the calling goroutine's stack")
	}
	if len(defs) == 0 {
		t.Fatal("expected at least one symbol definition to be emitted")
	}
	for _, f := range frames {
		if f.Symbol.name == "" {
			t.Errorf("frame at 0x%x has an empty symbol name", f.IP)
		}
	}
}

func TestDriverWalkRespectsRecursionGuard(t *testing.T) {
	driver := NewDriver(NewRuntimeUnwinder(), NewRangeCache(), NewSymbolTable(), 16, false)
	st := &threadState{unwindRecursion: true}

	called := false
	driver.Walk(st, nil, func(f Frame) { called = true })
	if called {
		t.Fatal("Walk should not emit any frame when unwindRecursion is already set")
	}
}

func TestDriverWalkRespectsDepth(t *testing.T) {
	driver := NewDriver(NewRuntimeUnwinder(), NewRangeCache(), NewSymbolTable(), 2, false)
	st := &threadState{}

	n := 0
	driver.Walk(st, nil, func(f Frame) { n++ })
	if n > 2 {
		t.Fatalf("emitted %d frames, want at most 2", n)
	}
}
