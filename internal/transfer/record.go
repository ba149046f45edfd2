package transfer

import "time"

// TaskState is the state an underlying HTTP task adapter reports for a
// running transfer, per spec.md §4.4.
type TaskState int

const (
	TaskNew TaskState = iota
	TaskRunning
	TaskSuspended
	TaskCompleted
	TaskCanceling
)

// TaskHandle is the contract a record's coordinator holds against C6, the
// HTTP task adapter. It is declared here rather than in internal/httptask so
// that this package, the shared core C1-C5 depend on, never needs to
// import the adapter package.
type TaskHandle interface {
	ID() string
	Resume()
	Suspend()
	Cancel()
	CancelProducingResumeToken() ([]byte, bool)
	State() TaskState
}

// Kind distinguishes a download record from an upload record.
type Kind int

const (
	KindDownload Kind = iota
	KindUpload
)

// String returns the metric-label spelling of a Kind.
func (k Kind) String() string {
	if k == KindUpload {
		return "upload"
	}
	return "download"
}

// Status is the per-record state machine spec.md §4.5 defines. It is a
// superset of the three predicates spec.md §3 derives purely from a task
// handle's reported state (Running/Suspended/Completed): Starting, Failed
// and Canceled have no single TaskState equivalent, so the coordinator
// tracks Status explicitly and keeps it in lockstep with task transitions.
type Status int

const (
	StatusNew Status = iota
	StatusStarting
	StatusRunning
	StatusSuspended
	StatusCompleted
	StatusFailed
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusStarting:
		return "Starting"
	case StatusRunning:
		return "Running"
	case StatusSuspended:
		return "Suspended"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCanceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// Snapshot is an immutable, externally-safe view of a Record at a point in
// time. It is what UnitEvent/AggregateEvent payloads carry, never the live
// Record itself, since the record is exclusively owned by the coordinator's
// single-writer context (spec.md §5).
type Snapshot struct {
	ID           string
	Index        int
	Kind         Kind
	SourceURL    string
	CurrentBytes float64
	TotalBytes   float64
	Status       Status
	Err          error
}

// IsCompleted reports whether the snapshot represents a successfully
// finished transfer.
func (s Snapshot) IsCompleted() bool { return s.Status == StatusCompleted }

// Record is the mutable per-transfer state spec.md §3 (C2) describes. Every
// field is touched only from the owning coordinator's single-writer
// context; there is deliberately no mutex here, matching spec.md §5's
// "no lock on the records array" rule.
type Record struct {
	ID    string
	Index int
	Kind  Kind

	Download DownloadDescriptor // valid iff Kind == KindDownload
	Upload   UploadDescriptor   // valid iff Kind == KindUpload

	CurrentBytes float64
	TotalBytes   float64
	Err          error
	Task         TaskHandle
	ResumeToken  []byte
	ResponseBuf  []byte

	Status       Status
	StartEmitted bool
	StartedAt    time.Time

	Sink *UnitEventStream

	throttle Throttle
}

// NewDownloadRecord builds a fresh, pre-start record for a download batch.
// index is the record's submission-order position.
func NewDownloadRecord(index int, d DownloadDescriptor, progressInterval float64) *Record {
	return &Record{
		ID:       downloadFingerprint(d),
		Index:    index,
		Kind:     KindDownload,
		Download: d,
		Status:   StatusNew,
		Sink:     newUnitEventStream(),
		throttle: NewThrottle(progressInterval),
	}
}

// NewUploadRecord builds a fresh, pre-start record for an upload batch. id
// is a freshly generated opaque identifier (spec.md §3: "for uploads,
// identity is a freshly generated opaque id").
func NewUploadRecord(index int, id string, u UploadDescriptor, progressInterval float64) *Record {
	return &Record{
		ID:       id,
		Index:    index,
		Kind:     KindUpload,
		Upload:   u,
		Status:   StatusNew,
		Sink:     newUnitEventStream(),
		throttle: NewThrottle(progressInterval),
	}
}

// SourceURL returns the download's source or the upload's destination,
// whichever this record represents.
func (r *Record) SourceURL() string {
	if r.Kind == KindDownload {
		return r.Download.SourceURL
	}
	return r.Upload.DestinationURL
}

// TaskID returns the underlying adapter task identifier, or "" if the
// record has no task yet.
func (r *Record) TaskID() string {
	if r.Task == nil {
		return ""
	}
	return r.Task.ID()
}

// IsDownloading mirrors spec.md §3's derived predicate: true iff the
// record's Status is StatusRunning (the coordinator keeps Status in step
// with the task handle; the handle itself is not queried).
func (r *Record) IsDownloading() bool { return r.Status == StatusRunning }

// IsSuspended mirrors spec.md §3's derived predicate.
func (r *Record) IsSuspended() bool { return r.Status == StatusSuspended }

// IsCompleted mirrors spec.md §3's derived predicate.
func (r *Record) IsCompleted() bool { return r.Status == StatusCompleted }

// IsTerminal reports whether the record has reached one of the three
// absorbing states and will never transition again.
func (r *Record) IsTerminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// ShouldEmitProgress reports whether a didWrite update with the given
// current/total byte counts clears this record's progress-throttle
// interval (spec.md §4.2). It also advances the throttle's internal
// "previous current" bookkeeping, so it must be called at most once per
// didWrite callback.
func (r *Record) ShouldEmitProgress(current, total float64) bool {
	return r.throttle.ShouldEmit(current, total)
}

// Snapshot copies the record's externally-relevant fields. Called only from
// the coordinator's single-writer context.
func (r *Record) Snapshot() *Snapshot {
	return &Snapshot{
		ID:           r.ID,
		Index:        r.Index,
		Kind:         r.Kind,
		SourceURL:    r.SourceURL(),
		CurrentBytes: r.CurrentBytes,
		TotalBytes:   r.TotalBytes,
		Status:       r.Status,
		Err:          r.Err,
	}
}
