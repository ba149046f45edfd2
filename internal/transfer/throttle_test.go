package transfer

import "testing"

func TestThrottleFirstUpdateUsesZeroBefore(t *testing.T) {
	th := NewThrottle(10)
	if !th.ShouldEmit(15, 100) {
		t.Fatal("first update at 15% with a 10% interval should emit immediately")
	}
}

func TestThrottleSkipsSmallDeltas(t *testing.T) {
	th := NewThrottle(10)
	th.ShouldEmit(5, 100) // before=0, now=5 -> under the interval, no emit; baseline stays 0
	if th.ShouldEmit(9, 100) {
		t.Fatal("a 9-point move from the 0 baseline under a 10-point interval must not emit")
	}
	if !th.ShouldEmit(16, 100) {
		t.Fatal("a 16-point move from the 0 baseline over a 10-point interval must emit")
	}
}

func TestThrottleZeroIntervalEmitsOnAnyChange(t *testing.T) {
	th := NewThrottle(0)
	if !th.ShouldEmit(1, 100) {
		t.Fatal("first call must emit")
	}
	if th.ShouldEmit(1, 100) {
		t.Fatal("unchanged current must not emit")
	}
	if !th.ShouldEmit(2, 100) {
		t.Fatal("any change must emit when interval is 0")
	}
}

func TestThrottleZeroTotalNeverEmits(t *testing.T) {
	th := NewThrottle(1)
	if th.ShouldEmit(0, 0) {
		t.Fatal("total=0 must never emit")
	}
	if th.ShouldEmit(50, 0) {
		t.Fatal("total=0 must never emit, regardless of current")
	}
}

func TestThrottleNegativeIntervalDefaults(t *testing.T) {
	th := NewThrottle(-5)
	if th.intervalPct != DefaultProgressInterval {
		t.Fatalf("intervalPct = %v, want default %v", th.intervalPct, DefaultProgressInterval)
	}
}
