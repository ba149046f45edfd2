package downloadengine

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tinoosan/xfer/internal/httptask"
	"github.com/tinoosan/xfer/internal/metrics"
	"github.com/tinoosan/xfer/internal/transfer"
)

// Coordinator is C7, the downloader coordinator: a single-writer actor
// (spec.md §5) that owns a set of download records, drives their state
// machine, and emits the two-level event stream. Every mutation to its
// records happens on the goroutine started by New; public methods enqueue
// work onto it and block for the result, a single-writer actor generalized
// from a fixed event-consumer loop into one that also accepts commands.
type Coordinator struct {
	adapter          *httptask.Adapter
	gate             *transfer.Gate
	progressInterval float64
	log              *slog.Logger

	records *transfer.RecordSet
	agg     *transfer.AggregateEventStream

	callbacks chan httptask.Callback
	actions   chan func()
}

// New builds a Coordinator. client is the *http.Client the HTTP task
// adapter issues requests through (nil selects http.DefaultClient);
// maxActive is clamped to [1,5] per spec.md §4.3.
func New(client *http.Client, maxActive int, progressInterval float64, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		gate:             transfer.NewGate(maxActive),
		progressInterval: progressInterval,
		log:              log,
		records:          transfer.NewRecordSet(),
		callbacks:        make(chan httptask.Callback, 64),
		actions:          make(chan func(), 8),
	}
	c.adapter = httptask.NewAdapter(client, httptask.NewChanReporter(c.callbacks))
	go c.loop()
	return c
}

func (c *Coordinator) loop() {
	for {
		select {
		case cb := <-c.callbacks:
			c.handleCallback(cb)
		case fn := <-c.actions:
			fn()
		}
	}
}

// do runs fn on the coordinator's single-writer goroutine and blocks until
// it finishes.
func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	c.actions <- func() { fn(); close(done) }
	<-done
}

// Events is the single-transfer form (spec.md §4.5): it builds a
// one-record batch and returns that record's unit stream.
func (c *Coordinator) Events(d transfer.DownloadDescriptor) *transfer.UnitEventStream {
	var stream *transfer.UnitEventStream
	c.do(func() {
		c.startBatch([]transfer.DownloadDescriptor{d})
		r, _ := c.records.ByIndex(0)
		stream = r.Sink
	})
	return stream
}

// EventsMany is the multi-transfer form: it returns the aggregate stream
// for the whole batch.
func (c *Coordinator) EventsMany(ds []transfer.DownloadDescriptor) *transfer.AggregateEventStream {
	var agg *transfer.AggregateEventStream
	c.do(func() { agg = c.startBatch(ds) })
	return agg
}

// startBatch implements the shared body of both public forms: emit
// start{records} synchronously, build a task per record, yield a
// unit{stream} event per record, then kick the gate. Runs on the
// coordinator's own goroutine.
func (c *Coordinator) startBatch(ds []transfer.DownloadDescriptor) *transfer.AggregateEventStream {
	c.agg = transfer.NewAggregateEventStream(len(ds))
	c.records = transfer.NewRecordSet()

	for i, d := range ds {
		c.records.Add(transfer.NewDownloadRecord(i, d, c.progressInterval))
	}
	c.agg.Emit(transfer.AggregateStart{Records: c.records.Snapshots()})

	if c.records.Len() == 0 {
		c.agg.Emit(transfer.AggregateAllCompleted{Records: nil})
		c.agg.Finish(nil)
		return c.agg
	}

	for _, r := range c.records.All() {
		c.buildTask(r)
		c.agg.Emit(transfer.AggregateUnit{Index: r.Index, Stream: r.Sink})
	}

	c.gate.TryStartNext(c.records.All(), nil, c.startRecord)
	c.syncGateOccupancy()
	return c.agg
}

// buildTask resolves a record's descriptor into an adapter task, or fails
// the record immediately if the source URL is unusable.
func (c *Coordinator) buildTask(r *transfer.Record) {
	u, err := url.Parse(r.Download.SourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		c.failRecord(r, transfer.ErrInvalidURL)
		return
	}
	r.Task = c.adapter.NewDownload(httptask.DownloadRequest{
		URL:         r.Download.SourceURL,
		Header:      http.Header(r.Download.Headers),
		CachePolicy: r.Download.CachePolicy,
		Timeout:     r.Download.Timeout(),
	})
}

// startRecord is the transfer.StartFunc the gate calls for every record it
// decides to run.
func (c *Coordinator) startRecord(r *transfer.Record) {
	if r.Task == nil {
		// buildTask already failed the record; nothing to start.
		return
	}
	if !r.StartEmitted {
		r.StartEmitted = true
		r.StartedAt = time.Now()
		r.Status = transfer.StatusStarting
		r.Sink.Emit(transfer.UnitStart{Index: r.Index, Info: r.Snapshot()})
	}
	r.Task.Resume()
	r.Status = transfer.StatusRunning
}

// syncGateOccupancy recomputes the concurrency gauge from the current
// batch's actual running count. Called after anything that can change
// which records are Running.
func (c *Coordinator) syncGateOccupancy() {
	metrics.GateOccupancy.WithLabelValues(transfer.KindDownload.String()).Set(float64(transfer.ActiveCount(c.records.All())))
}

// observeTaskLatency records one record's resume-to-terminal span, if it
// ever started.
func (c *Coordinator) observeTaskLatency(r *transfer.Record) {
	if r.StartedAt.IsZero() {
		return
	}
	metrics.AdapterTaskLatency.WithLabelValues(transfer.KindDownload.String()).Observe(time.Since(r.StartedAt).Seconds())
}

// Snapshots returns a point-in-time view of every record in the current
// batch, safe to call from any goroutine.
func (c *Coordinator) Snapshots() []*transfer.Snapshot {
	var out []*transfer.Snapshot
	c.do(func() { out = c.records.Snapshots() })
	return out
}

// Pause requests suspension of every Running record (spec.md §4.5): prefer
// a resume token over a bare suspend when the origin proved it supports
// byte ranges.
func (c *Coordinator) Pause() {
	c.do(func() {
		for _, r := range c.records.All() {
			if r.Status != transfer.StatusRunning {
				continue
			}
			if token, ok := r.Task.CancelProducingResumeToken(); ok {
				r.ResumeToken = token
				if nt, ok := c.adapter.NewDownloadFromResume(token); ok {
					r.Task = nt
				}
			} else {
				r.Task.Suspend()
			}
			r.Status = transfer.StatusSuspended
		}
		c.syncGateOccupancy()
	})
}

// Resume invokes the gate over every non-completed record, starting as
// many Suspended records as the concurrency ceiling allows.
func (c *Coordinator) Resume() {
	c.do(func() {
		c.gate.TryStartNext(c.records.All(), nil, c.startRecord)
		c.syncGateOccupancy()
	})
}

// Stop is terminal cleanup (spec.md §4.5): cancel every task, finish every
// still-open stream, finish the aggregate stream, and clear the batch. Two
// sequential calls observe the same effect as one (P7).
func (c *Coordinator) Stop(err error) {
	c.do(func() { c.stopLocked(err) })
}

func (c *Coordinator) stopLocked(err error) {
	if c.agg == nil || c.agg.IsFinished() {
		return
	}
	for _, r := range c.records.All() {
		if r.Task != nil {
			r.Task.Cancel()
		}
		if !r.Sink.IsFinished() {
			r.Status = transfer.StatusCanceled
			r.Sink.Finish(err)
			c.observeTaskLatency(r)
		}
	}
	c.syncGateOccupancy()
	c.agg.Finish(err)
	c.records = transfer.NewRecordSet()
}

// handleCallback dispatches one adapter callback onto its record. Runs on
// the coordinator's own goroutine.
func (c *Coordinator) handleCallback(cb httptask.Callback) {
	r, ok := c.records.ByTaskID(cb.TaskID)
	if !ok {
		return // stale callback from a superseded or stopped batch
	}
	if r.IsTerminal() {
		return
	}

	switch cb.Type {
	case httptask.EventDidWrite:
		current := float64(cb.TotalWritten)
		total := float64(cb.TotalExpected)
		if total > 0 {
			r.TotalBytes = total
		}
		emit := r.ShouldEmitProgress(current, r.TotalBytes)
		r.CurrentBytes = current
		if emit {
			r.Sink.Emit(transfer.UnitUpdate{Current: current, Total: r.TotalBytes})
		} else {
			metrics.ProgressUpdatesThrottled.WithLabelValues(transfer.KindDownload.String()).Inc()
		}

	case httptask.EventDidFinishDownloadingTo:
		c.finishDownload(r, cb)

	case httptask.EventDidCompleteWithError:
		if r.Status == transfer.StatusSuspended {
			return // pause already tore this task down deliberately
		}
		if cb.Err == nil {
			return
		}
		if len(cb.ResumeToken) > 0 {
			r.ResumeToken = cb.ResumeToken
			if nt, ok := c.adapter.NewDownloadFromResume(cb.ResumeToken); ok {
				r.Task = nt
			}
		}
		c.failRecord(r, cb.Err)
	}
}

func (c *Coordinator) finishDownload(r *transfer.Record, cb httptask.Callback) {
	if cb.Status < 200 || cb.Status >= 300 {
		c.failRecord(r, transfer.ClassifyServerError(cb.Status, cb.Body))
		return
	}

	if dest := r.Download.DestinationPath(); dest != "" {
		if err := savePolicy(dest, cb.Body, r.Download.Collision); err != nil {
			c.failRecord(r, err)
			return
		}
	}

	r.Status = transfer.StatusCompleted
	r.CurrentBytes = r.TotalBytes
	r.Sink.Emit(transfer.UnitCompleted{Body: cb.Body, Info: r.Snapshot()})
	r.Sink.Finish(nil)
	c.observeTaskLatency(r)
	c.afterTerminal()
}

func (c *Coordinator) failRecord(r *transfer.Record, err error) {
	r.Err = err
	r.Status = transfer.StatusFailed
	if !r.Sink.IsFinished() {
		r.Sink.Finish(err)
	}
	c.observeTaskLatency(r)
	c.afterTerminal()
}

// afterTerminal implements spec.md §4.5's completion bookkeeping literally:
// allCompleted only fires once every record in the batch reached
// StatusCompleted (P4 requires a completed terminal on every unit stream,
// not merely a terminal one). Otherwise it gives the gate a chance to
// start the next suspended record.
func (c *Coordinator) afterTerminal() {
	total := c.records.Len()
	if total > 0 && c.records.CompletedCount() == total {
		c.agg.Emit(transfer.AggregateAllCompleted{Records: c.records.Snapshots()})
		c.agg.Finish(nil)
		c.syncGateOccupancy()
		return
	}
	c.gate.TryStartNext(c.records.All(), nil, c.startRecord)
	c.syncGateOccupancy()
}
