package mtrace

import "testing"

func TestPolicyWatermarkModeRange(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeWatermark, MinWatermark: 100, MaxWatermark: 200})

	if trace, growth := p.Decide(classMallocLike, 50); trace || growth != nil {
		t.Errorf("below range: trace=%v growth=%v, want false/nil", trace, growth)
	}
	if trace, _ := p.Decide(classMallocLike, 150); !trace {
		t.Error("in range: want trace=true")
	}
	if trace, _ := p.Decide(classMallocLike, 250); trace {
		t.Error("above range: want trace=false")
	}
	if trace, _ := p.Decide(classLock, 150); trace {
		t.Error("ineligible class: want trace=false regardless of size")
	}
}

func TestPolicyFullModeTracesEverything(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeFull})
	for _, c := range []class{classMallocLike, classMmapLike, classRelease, classLock, classAuxiliary} {
		if trace, _ := p.Decide(c, 1); !trace {
			t.Errorf("ModeFull: class %v not traced", c)
		}
	}
}

func TestPolicyAllocOnlyModeRestrictsToAllocClasses(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeAllocOnly})
	if trace, _ := p.Decide(classMallocLike, 1); !trace {
		t.Error("classMallocLike should be traced in ModeAllocOnly")
	}
	if trace, _ := p.Decide(classMmapLike, 1); !trace {
		t.Error("classMmapLike should be traced in ModeAllocOnly")
	}
	if trace, _ := p.Decide(classRelease, 1); trace {
		t.Error("classRelease should not be traced in ModeAllocOnly")
	}
}

func TestPolicyAllocTopModeOnlyTracesNewHighWater(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeAllocTop})

	if trace, _ := p.Decide(classMallocLike, 100); !trace {
		t.Error("first observation should set the high water mark")
	}
	if trace, _ := p.Decide(classMallocLike, 50); trace {
		t.Error("smaller size should not trace")
	}
	if trace, _ := p.Decide(classMallocLike, 150); !trace {
		t.Error("new high water mark should trace")
	}
}

func TestPolicyGrowthModeMmapAlwaysTracesWhenEligible(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeGrowth})
	trace, growth := p.Decide(classMmapLike, 4096)
	if !trace {
		t.Skip("readRSS unavailable in this environment")
	}
	if growth == nil {
		t.Error("ModeGrowth trace=true should carry a growth sample")
	}
}

func TestPolicyGrowthModeIneligibleClassNeverTraces(t *testing.T) {
	p := NewPolicy(Options{Mode: ModeGrowth})
	if trace, growth := p.Decide(classLock, 4096); trace || growth != nil {
		t.Errorf("classLock: trace=%v growth=%v, want false/nil", trace, growth)
	}
}
