package httptask

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tinoosan/xfer/internal/transfer"
)

// Adapter is C6, the HTTP task adapter: it wraps a plain *http.Client and
// exposes the start/suspend/cancel/cancel-with-resume contract spec.md
// §4.4 requires over it.
type Adapter struct {
	client *http.Client
	rep    Reporter

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewAdapter builds an Adapter. rep receives every callback from every task
// the adapter creates; a coordinator typically wraps a channel in a
// ChanReporter and reads it on its own single-writer loop.
func NewAdapter(client *http.Client, rep Reporter) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{client: client, rep: rep, tasks: make(map[string]*Task)}
}

func (a *Adapter) track(t *Task) {
	a.mu.Lock()
	a.tasks[t.id] = t
	a.mu.Unlock()
}

// Lookup resolves an underlying task identifier back to a Task, mirroring
// the aria2 adapter's gidToID map.
func (a *Adapter) Lookup(taskID string) (*Task, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tasks[taskID]
	return t, ok
}

// DownloadRequest is everything NewDownload needs to build a suspended
// download task.
type DownloadRequest struct {
	URL         string
	Header      http.Header
	CachePolicy transfer.CachePolicy
	Timeout     time.Duration
}

// NewDownload creates a suspended download task (spec.md §4.4). The task
// does not touch the network until Resume is called.
func (a *Adapter) NewDownload(req DownloadRequest) *Task {
	t := &Task{
		id:      uuid.NewString(),
		kind:    kindDownload,
		method:  http.MethodGet,
		url:     req.URL,
		header:  withCacheControl(req.Header.Clone(), req.CachePolicy),
		timeout: req.Timeout,
		client:  a.client,
		rep:     a.rep,
		state:   transfer.TaskNew,
	}
	a.track(t)
	return t
}

// NewDownloadFromResume creates a suspended download task primed with an
// opaque resume token previously returned by CancelProducingResumeToken.
func (a *Adapter) NewDownloadFromResume(token []byte) (*Task, bool) {
	rt, ok := decodeResumeToken(token)
	if !ok {
		return nil, false
	}
	t := &Task{
		id:              uuid.NewString(),
		kind:            kindDownload,
		method:          http.MethodGet,
		url:             rt.URL,
		header:          http.Header(rt.Header).Clone(),
		offsetWritten:   rt.OffsetWritten,
		etag:            rt.ETag,
		lastModified:    rt.LastModified,
		resumeSupported: true,
		timeout:         time.Duration(rt.TimeoutSeconds * float64(time.Second)),
		client:          a.client,
		rep:             a.rep,
		state:           transfer.TaskNew,
	}
	a.track(t)
	return t, true
}

// UploadRequest is everything NewUpload needs. SpoolPath is the local file
// holding the already-composed multipart body.
type UploadRequest struct {
	URL         string
	Header      http.Header
	SpoolPath   string
	CachePolicy transfer.CachePolicy
	Timeout     time.Duration
}

// NewUpload creates a suspended upload task whose body is the bytes of
// SpoolPath.
func (a *Adapter) NewUpload(req UploadRequest) *Task {
	t := &Task{
		id:        uuid.NewString(),
		kind:      kindUpload,
		method:    http.MethodPost,
		url:       req.URL,
		header:    withCacheControl(req.Header.Clone(), req.CachePolicy),
		spoolPath: req.SpoolPath,
		timeout:   req.Timeout,
		client:    a.client,
		rep:       a.rep,
		state:     transfer.TaskNew,
	}
	a.track(t)
	return t
}

// withCacheControl maps spec.md §6's cache-policy enum onto the
// Cache-Control request header a plain net/http transport actually
// understands. CacheUseProtocolPolicy leaves the header untouched, since
// that is net/http's own default behavior.
func withCacheControl(h http.Header, policy transfer.CachePolicy) http.Header {
	if h == nil {
		h = http.Header{}
	}
	switch policy {
	case transfer.CacheReloadIgnoring:
		h.Set("Cache-Control", "no-cache")
	case transfer.CacheReturnCacheOnly:
		h.Set("Cache-Control", "only-if-cached")
	}
	return h
}
