package transfer

// RecordSet is the ordered sequence of records owned by a coordinator for
// the lifetime of one batch (spec.md §3, "Transfer set"). Order is
// submission order and defines the unit index reported to observers.
//
// A plain slice plus lookup helpers, no locking, because spec.md §5
// requires the records array to be touched only from the coordinator's
// single-writer context.
type RecordSet struct {
	records []*Record
}

// NewRecordSet builds an empty set.
func NewRecordSet() *RecordSet {
	return &RecordSet{}
}

// Add appends r, preserving submission order.
func (s *RecordSet) Add(r *Record) {
	s.records = append(s.records, r)
}

// All returns the live slice of records in submission order. Callers on
// the coordinator's own goroutine may read or mutate elements; callers off
// that goroutine must not.
func (s *RecordSet) All() []*Record { return s.records }

// Len is the batch size.
func (s *RecordSet) Len() int { return len(s.records) }

// ByIndex looks up a record by its submission-order index.
func (s *RecordSet) ByIndex(i int) (*Record, bool) {
	if i < 0 || i >= len(s.records) {
		return nil, false
	}
	return s.records[i], true
}

// BySourceURL looks up the first record whose SourceURL matches url.
func (s *RecordSet) BySourceURL(url string) (*Record, bool) {
	for _, r := range s.records {
		if r.SourceURL() == url {
			return r, true
		}
	}
	return nil, false
}

// ByID looks up a record by its identity (download fingerprint or upload
// UUID).
func (s *RecordSet) ByID(id string) (*Record, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// ByTaskID looks up the record currently owning the given underlying task
// identifier. This is how a C6 callback, which only carries a task id, is
// resolved back to a record (spec.md §9, "Cyclic references").
func (s *RecordSet) ByTaskID(taskID string) (*Record, bool) {
	if taskID == "" {
		return nil, false
	}
	for _, r := range s.records {
		if r.TaskID() == taskID {
			return r, true
		}
	}
	return nil, false
}

// CompletedCount counts records in the terminal StatusCompleted state.
func (s *RecordSet) CompletedCount() int {
	n := 0
	for _, r := range s.records {
		if r.IsCompleted() {
			n++
		}
	}
	return n
}

// AllTerminal reports whether every record has reached a terminal state
// (Completed, Failed, or Canceled).
func (s *RecordSet) AllTerminal() bool {
	for _, r := range s.records {
		if !r.IsTerminal() {
			return false
		}
	}
	return true
}

// Snapshots returns a Snapshot per record, in submission order.
func (s *RecordSet) Snapshots() []*Snapshot {
	out := make([]*Snapshot, len(s.records))
	for i, r := range s.records {
		out[i] = r.Snapshot()
	}
	return out
}
