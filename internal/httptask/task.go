package httptask

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tinoosan/xfer/internal/transfer"
)

type kind int

const (
	kindDownload kind = iota
	kindUpload
)

// Task is one in-flight (or not-yet-started) HTTP transfer. It implements
// transfer.TaskHandle so a coordinator can drive it without knowing it's
// backed by net/http rather than a platform download/upload session.
type Task struct {
	id      string
	kind    kind
	method  string
	url     string
	header  http.Header
	timeout time.Duration

	// download resume bookkeeping
	resumeSupported bool
	offsetWritten   int64
	etag            string
	lastModified    string

	// upload spool source
	spoolPath string

	client *http.Client
	rep    Reporter

	mu      sync.Mutex
	state   transfer.TaskState
	pauseCh chan struct{}
	cancel  context.CancelFunc
}

var _ transfer.TaskHandle = (*Task)(nil)

func (t *Task) ID() string { return t.id }

func (t *Task) State() transfer.TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Resume starts the task (its first Resume) or releases a pause gate set
// by Suspend. It is a no-op on a completed or canceling task.
func (t *Task) Resume() {
	t.mu.Lock()
	switch t.state {
	case transfer.TaskNew:
		t.state = transfer.TaskRunning
		t.mu.Unlock()
		go t.run()
		return
	case transfer.TaskSuspended:
		ch := t.pauseCh
		t.pauseCh = nil
		t.state = transfer.TaskRunning
		t.mu.Unlock()
		if ch != nil {
			close(ch)
		}
		return
	}
	t.mu.Unlock()
}

// Suspend blocks the task's copy loop before its next write, without
// tearing down the underlying connection. This is the fallback pause path
// spec.md §4.5 describes for when a resume token can't be obtained, and the
// only pause path uploads have (spec.md §4.6).
func (t *Task) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != transfer.TaskRunning {
		return
	}
	t.pauseCh = make(chan struct{})
	t.state = transfer.TaskSuspended
}

// Cancel tears down the task's connection without preserving position.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.state = transfer.TaskCanceling
	cancel := t.cancel
	pauseCh := t.pauseCh
	t.pauseCh = nil
	t.mu.Unlock()
	if pauseCh != nil {
		close(pauseCh) // wake a blocked copy loop so it observes ctx.Done
	}
	if cancel != nil {
		cancel()
	}
}

// CancelProducingResumeToken cancels the task and, for downloads whose
// origin proved it supports byte ranges, returns a token that
// NewDownloadFromResume can use to pick the transfer back up. Uploads and
// downloads against a non-range-capable origin return (nil, false) and are
// left running, so the caller can Suspend them instead.
func (t *Task) CancelProducingResumeToken() ([]byte, bool) {
	t.mu.Lock()
	if t.kind != kindDownload || !t.resumeSupported {
		t.mu.Unlock()
		return nil, false
	}
	token := encodeResumeToken(resumeToken{
		URL:            t.url,
		Header:         map[string][]string(t.header),
		OffsetWritten:  t.offsetWritten,
		ETag:           t.etag,
		LastModified:   t.lastModified,
		TimeoutSeconds: t.timeout.Seconds(),
	})
	t.mu.Unlock()
	t.Cancel()
	if token == nil {
		return nil, false
	}
	return token, true
}

// pauseGate blocks until Suspend's gate is released, or ctx is done.
// Called from the copy loop before each write.
func (t *Task) pauseGate(ctx context.Context) {
	t.mu.Lock()
	ch := t.pauseCh
	t.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case <-ch:
	case <-ctx.Done():
	}
}

// countingWriter wraps an io.Writer, tracking bytes written and calling
// onWrite after each chunk lands, subject to the task's pause gate.
type countingWriter struct {
	ctx     context.Context
	task    *Task
	w       io.Writer
	written int64
	onWrite func(delta, total int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.task.pauseGate(c.ctx)
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
	}
	n, err := c.w.Write(p)
	c.written += int64(n)
	c.task.mu.Lock()
	c.task.offsetWritten = c.written
	c.task.mu.Unlock()
	if c.onWrite != nil {
		c.onWrite(int64(n), c.written)
	}
	return n, err
}
