package transfer

// MinMaxActive and MaxMaxActive bound the clamp spec.md §4.3 requires.
const (
	MinMaxActive = 1
	MaxMaxActive = 5
)

// ClampMaxActive enforces spec.md §4.3's construction-time clamp.
func ClampMaxActive(n int) int {
	if n < MinMaxActive {
		return MinMaxActive
	}
	if n > MaxMaxActive {
		return MaxMaxActive
	}
	return n
}

// Gate maintains the invariant "active transfers <= maxActive" (spec.md I1)
// and decides which suspended record resumes next. It holds no reference to
// the record slice itself (the coordinator passes it in on every call), so
// the gate stays a pure policy object with no shared mutable state of its
// own, safe to use from the coordinator's single-writer context only.
type Gate struct {
	maxActive int
}

// NewGate builds a Gate, clamping maxActive to [1,5].
func NewGate(maxActive int) *Gate {
	return &Gate{maxActive: ClampMaxActive(maxActive)}
}

// MaxActive returns the clamped concurrency ceiling.
func (g *Gate) MaxActive() int { return g.maxActive }

// ActiveCount counts records currently Running.
func ActiveCount(records []*Record) int {
	n := 0
	for _, r := range records {
		if r.IsDownloading() {
			n++
		}
	}
	return n
}

// StartFunc is invoked by TryStartNext for every record the gate decides to
// start. It is the coordinator's hook for emitting the Start unit event (if
// not yet emitted) and calling Resume() on the record's task handle, per
// spec.md §4.3 step 3.
type StartFunc func(r *Record)

// TryStartNext implements spec.md §4.3:
//  1. If preferred is non-nil, active < maxActive, and preferred is
//     Suspended or pre-start (StatusNew), start it.
//  2. Otherwise scan records in submission order and start the first
//     Suspended or pre-start (StatusNew) ones found until active reaches
//     maxActive.
//
// Policy is FIFO by submission order; there is no priority and no
// preemption.
func (g *Gate) TryStartNext(records []*Record, preferred *Record, start StartFunc) {
	active := ActiveCount(records)
	if active >= g.maxActive {
		return
	}

	if preferred != nil && (preferred.Status == StatusSuspended || preferred.Status == StatusNew) {
		start(preferred)
		active++
	}

	for _, r := range records {
		if active >= g.maxActive {
			return
		}
		if r == preferred {
			continue
		}
		if r.Status == StatusSuspended || r.Status == StatusNew {
			start(r)
			active++
		}
	}
}
