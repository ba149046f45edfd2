package uploadengine

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/xfer/internal/httptask"
	"github.com/tinoosan/xfer/internal/metrics"
	"github.com/tinoosan/xfer/internal/transfer"
)

// Coordinator is C8, the uploader coordinator. It mirrors downloadengine's
// single-writer actor shape; the differences from C7 are the multipart
// spool-file build step, size enforcement before starting, response-buffer
// accumulation, and a pause that only ever suspends (spec.md §4.6: there
// is no upload resume-token equivalent in this design).
type Coordinator struct {
	adapter          *httptask.Adapter
	gate             *transfer.Gate
	spool            *Spool
	progressInterval float64
	log              *slog.Logger

	records *transfer.RecordSet
	agg     *transfer.AggregateEventStream

	callbacks chan httptask.Callback
	actions   chan func()
}

// New builds a Coordinator. The session-config fields spec.md §4.6 names
// for a platform URLSession (isDiscretionary, networkServiceType=
// background, waitsForConnectivity, httpShouldUsePipelining=false) have no
// net/http equivalent; the closest a plain *http.Client gets is capping
// MaxConnsPerHost at maxActive and disabling pipelining's lone knob
// (nothing to disable, since net/http never pipelines), so a caller wanting
// that behavior should build client's Transport with MaxConnsPerHost set
// to maxActive before calling New. client may be nil to use
// http.DefaultClient.
func New(client *http.Client, spool *Spool, maxActive int, progressInterval float64, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		gate:             transfer.NewGate(maxActive),
		spool:            spool,
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

func (c *Coordinator) do(fn func()) {
	done := make(chan struct{})
	c.actions <- func() { fn(); close(done) }
	<-done
}

// Events is the single-transfer form.
func (c *Coordinator) Events(d transfer.UploadDescriptor) *transfer.UnitEventStream {
	var stream *transfer.UnitEventStream
	c.do(func() {
		c.startBatch([]transfer.UploadDescriptor{d})
		r, _ := c.records.ByIndex(0)
		stream = r.Sink
	})
	return stream
}

// EventsMany is the multi-transfer form.
func (c *Coordinator) EventsMany(ds []transfer.UploadDescriptor) *transfer.AggregateEventStream {
	var agg *transfer.AggregateEventStream
	c.do(func() { agg = c.startBatch(ds) })
	return agg
}

func (c *Coordinator) startBatch(ds []transfer.UploadDescriptor) *transfer.AggregateEventStream {
	c.agg = transfer.NewAggregateEventStream(len(ds))
	c.records = transfer.NewRecordSet()

	for i, d := range ds {
		c.records.Add(transfer.NewUploadRecord(i, uuid.NewString(), d, c.progressInterval))
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

// buildTask composes the multipart spool file, enforces the descriptor's
// size ceiling, and builds the adapter task. A record that fails either
// step is transitioned to Failed and never started.
func (c *Coordinator) buildTask(r *transfer.Record) {
	path, contentType, err := BuildSpoolFile(c.spool, r.ID, r.Upload)
	if err != nil {
		c.failRecord(r, err)
		return
	}

	if r.Upload.MaxBytes > 0 {
		info, statErr := os.Stat(path)
		if statErr != nil {
			c.failRecord(r, statErr)
			return
		}
		if info.Size() > r.Upload.MaxBytes {
			c.failRecord(r, transfer.ErrOverLimitedSize)
			return
		}
	}

	r.Task = c.adapter.NewUpload(httptask.UploadRequest{
		URL:         r.Upload.DestinationURL,
		Header:      mergeHeaders(contentType, r.Upload.Headers),
		SpoolPath:   path,
		CachePolicy: r.Upload.CachePolicy,
		Timeout:     r.Upload.Timeout(),
	})
}

func mergeHeaders(contentType string, app transfer.Headers) http.Header {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	for k, vs := range app {
		h[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	return h
}

func (c *Coordinator) startRecord(r *transfer.Record) {
	if r.Task == nil {
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
	metrics.GateOccupancy.WithLabelValues(transfer.KindUpload.String()).Set(float64(transfer.ActiveCount(c.records.All())))
}

// observeTaskLatency records one record's resume-to-terminal span, if it
// ever started.
func (c *Coordinator) observeTaskLatency(r *transfer.Record) {
	if r.StartedAt.IsZero() {
		return
	}
	metrics.AdapterTaskLatency.WithLabelValues(transfer.KindUpload.String()).Observe(time.Since(r.StartedAt).Seconds())
}

// Snapshots returns a point-in-time view of every record in the current
// batch, safe to call from any goroutine.
func (c *Coordinator) Snapshots() []*transfer.Snapshot {
	var out []*transfer.Snapshot
	c.do(func() { out = c.records.Snapshots() })
	return out
}

// Pause only ever suspends the task: spec.md §4.6 has no upload
// resume-token equivalent.
func (c *Coordinator) Pause() {
	c.do(func() {
		for _, r := range c.records.All() {
			if r.Status != transfer.StatusRunning {
				continue
			}
			r.Task.Suspend()
			r.Status = transfer.StatusSuspended
		}
		c.syncGateOccupancy()
	})
}

func (c *Coordinator) Resume() {
	c.do(func() {
		c.gate.TryStartNext(c.records.All(), nil, c.startRecord)
		c.syncGateOccupancy()
	})
}

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
}

func (c *Coordinator) handleCallback(cb httptask.Callback) {
	r, ok := c.records.ByTaskID(cb.TaskID)
	if !ok {
		return
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
			metrics.ProgressUpdatesThrottled.WithLabelValues(transfer.KindUpload.String()).Inc()
		}

	case httptask.EventDidReceive:
		if r.ResponseBuf == nil {
			r.ResponseBuf = make([]byte, 0, len(cb.Chunk))
		}
		r.ResponseBuf = append(r.ResponseBuf, cb.Chunk...)

	case httptask.EventDidCompleteWithError:
		if r.Status == transfer.StatusSuspended {
			return
		}
		if cb.Err != nil {
			c.failRecord(r, cb.Err)
			return
		}
		if cb.Status < 200 || cb.Status >= 300 {
			c.failRecord(r, transfer.ClassifyServerError(cb.Status, r.ResponseBuf))
			return
		}
		r.Status = transfer.StatusCompleted
		r.CurrentBytes = r.TotalBytes
		r.Sink.Emit(transfer.UnitCompleted{Body: r.ResponseBuf, Info: r.Snapshot()})
		r.Sink.Finish(nil)
		c.observeTaskLatency(r)
		c.afterTerminal()
	}
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
