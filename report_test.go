package mtrace

import "testing"

func TestRecorderRecordAggregatesIdenticalStacks(t *testing.T) {
	r := NewRecorder()
	frames := []Frame{
		{IP: 0x1000, Symbol: symbolRow{start: 0x1000, end: 0x1010, name: "a"}},
		{IP: 0x2000, Symbol: symbolRow{start: 0x2000, end: 0x2010, name: "b"}},
	}

	r.Record(frames, 16)
	r.Record(frames, 32)

	if len(r.counters) != 1 {
		t.Fatalf("len(counters) = %d, want 1 for two identical stacks", len(r.counters))
	}
	for _, s := range r.counters {
		if s.count != 2 {
			t.Errorf("count = %d, want 2", s.count)
		}
		if s.total != 48 {
			t.Errorf("total = %d, want 48", s.total)
		}
	}
}

func TestRecorderRecordDistinguishesDifferentStacks(t *testing.T) {
	r := NewRecorder()
	a := []Frame{{IP: 0x1000, Symbol: symbolRow{name: "a"}}}
	b := []Frame{{IP: 0x2000, Symbol: symbolRow{name: "b"}}}

	r.Record(a, 8)
	r.Record(b, 8)

	if len(r.counters) != 2 {
		t.Fatalf("len(counters) = %d, want 2 for distinct stacks", len(r.counters))
	}
}

func TestRecorderRecordIgnoresEmptyStack(t *testing.T) {
	r := NewRecorder()
	r.Record(nil, 8)
	if len(r.counters) != 0 {
		t.Fatalf("len(counters) = %d, want 0 for an empty stack", len(r.counters))
	}
}

func TestRecorderBuildProfileSampleTypes(t *testing.T) {
	r := NewRecorder()
	r.Record([]Frame{{IP: 0x1000, Symbol: symbolRow{name: "f"}}}, 64)

	prof := r.BuildProfile()
	if len(prof.SampleType) != 2 {
		t.Fatalf("len(SampleType) = %d, want 2", len(prof.SampleType))
	}
	if prof.SampleType[0].Type != "alloc_objects" || prof.SampleType[1].Type != "alloc_space" {
		t.Errorf("unexpected sample types: %+v", prof.SampleType)
	}
	if len(prof.Sample) != 1 || len(prof.Function) != 1 || len(prof.Location) != 1 {
		t.Errorf("prof = %+v, want exactly one sample/function/location", prof)
	}
	if prof.Sample[0].Value[0] != 1 || prof.Sample[0].Value[1] != 64 {
		t.Errorf("sample values = %v, want [1 64]", prof.Sample[0].Value)
	}
}
