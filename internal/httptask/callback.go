package httptask

import "net/http"

// EventType enumerates the four callbacks spec.md §4.4 requires the HTTP
// task adapter to deliver to a coordinator.
type EventType string

const (
	EventDidWrite               EventType = "DidWrite"
	EventDidFinishDownloadingTo EventType = "DidFinishDownloadingTo"
	EventDidReceive              EventType = "DidReceive"
	EventDidCompleteWithError    EventType = "DidCompleteWithError"
)

// Callback is one delivery from an adapter task to its coordinator. Fields
// are populated according to Type; the rest are left at their zero value.
//
// A flat tagged struct handed to a Reporter, rather than a channel of
// typed variants, because the adapter's own goroutines (one per in-flight
// task) need a single cheap
// value type to hand off without per-event-kind channels.
type Callback struct {
	TaskID string
	Type   EventType

	// EventDidWrite
	Written       int64
	TotalWritten  int64
	TotalExpected int64

	// EventDidFinishDownloadingTo: Body already holds the fully-read temp
	// file contents, per spec.md §4.5's temp-file rule. The adapter never
	// hands the coordinator a file path it might race a cleanup against.
	Body []byte

	// EventDidReceive: an upload response chunk.
	Chunk []byte

	Status int
	Header http.Header

	// EventDidCompleteWithError
	Err         error
	ResumeToken []byte
}

// Reporter publishes adapter callbacks to a coordinator.
type Reporter interface {
	Report(Callback)
}

// ChanReporter writes callbacks to a channel, which is how the adapter
// marshals callbacks, delivered on arbitrary task goroutines, onto the
// coordinator's single-writer context (spec.md §5, "Delegate-callback to
// actor hop").
type ChanReporter struct {
	ch chan<- Callback
}

// NewChanReporter wraps ch.
func NewChanReporter(ch chan<- Callback) *ChanReporter { return &ChanReporter{ch: ch} }

// Report implements Reporter. A nil receiver is a safe no-op so tasks built
// without a reporter (e.g. in unit tests) don't need to special-case it.
func (r *ChanReporter) Report(c Callback) {
	if r == nil {
		return
	}
	r.ch <- c
}
