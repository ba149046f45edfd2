package transfer

import "testing"

func TestClampMaxActive(t *testing.T) {
	cases := map[int]int{-1: 1, 0: 1, 1: 1, 3: 3, 5: 5, 6: 5, 100: 5}
	for in, want := range cases {
		if got := ClampMaxActive(in); got != want {
			t.Errorf("ClampMaxActive(%d) = %d, want %d", in, got, want)
		}
	}
}

func newSuspendedRecord(i int) *Record {
	r := NewDownloadRecord(i, DownloadDescriptor{SourceURL: "http://x/y"}, 1)
	r.Status = StatusSuspended
	return r
}

func TestGateFIFONoPreferred(t *testing.T) {
	g := NewGate(2)
	records := []*Record{newSuspendedRecord(0), newSuspendedRecord(1), newSuspendedRecord(2)}

	var started []int
	g.TryStartNext(records, nil, func(r *Record) {
		r.Status = StatusRunning
		started = append(started, r.Index)
	})

	if len(started) != 2 {
		t.Fatalf("started %v, want 2 records", started)
	}
	if started[0] != 0 || started[1] != 1 {
		t.Fatalf("started %v, want FIFO order [0 1]", started)
	}
	if records[2].Status != StatusSuspended {
		t.Fatal("third record should remain suspended: maxActive=2 reached")
	}
}

func TestGateRespectsActiveCeiling(t *testing.T) {
	g := NewGate(1)
	records := []*Record{newSuspendedRecord(0), newSuspendedRecord(1)}
	records[0].Status = StatusRunning // already active

	var started []int
	g.TryStartNext(records, nil, func(r *Record) {
		r.Status = StatusRunning
		started = append(started, r.Index)
	})

	if len(started) != 0 {
		t.Fatalf("started %v, want none: active already at maxActive", started)
	}
}

func TestGatePreferredRecordStartsFirst(t *testing.T) {
	g := NewGate(2)
	records := []*Record{newSuspendedRecord(0), newSuspendedRecord(1), newSuspendedRecord(2)}

	var started []int
	g.TryStartNext(records, records[2], func(r *Record) {
		r.Status = StatusRunning
		started = append(started, r.Index)
	})

	if len(started) != 2 || started[0] != 2 {
		t.Fatalf("started %v, want preferred record 2 first", started)
	}
}

func TestGatePreferredIgnoredWhenNotEligible(t *testing.T) {
	g := NewGate(1)
	records := []*Record{newSuspendedRecord(0)}
	records[0].Status = StatusCompleted

	var started []int
	g.TryStartNext(records, records[0], func(r *Record) { started = append(started, r.Index) })

	if len(started) != 0 {
		t.Fatalf("started %v, want none: preferred record is terminal", started)
	}
}
