package httptask

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/tinoosan/xfer/internal/transfer"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func (t *Task) run() {
	var ctx context.Context
	var cancel context.CancelFunc
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), t.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	switch t.kind {
	case kindDownload:
		t.runDownload(ctx)
	case kindUpload:
		t.runUpload(ctx)
	}

	t.mu.Lock()
	if t.state != transfer.TaskCanceling {
		t.state = transfer.TaskCompleted
	}
	t.mu.Unlock()
}

func (t *Task) runDownload(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, t.method, t.url, nil)
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if t.offsetWritten > 0 {
		req.Header.Set("Range", "bytes="+itoa(t.offsetWritten)+"-")
		if t.etag != "" {
			req.Header.Set("If-Range", t.etag)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	defer resp.Body.Close()

	t.mu.Lock()
	t.resumeSupported = resp.Header.Get("Accept-Ranges") == "bytes"
	t.etag = resp.Header.Get("ETag")
	t.lastModified = resp.Header.Get("Last-Modified")
	t.mu.Unlock()

	totalExpected := resp.ContentLength + t.offsetWritten
	if resp.ContentLength < 0 {
		totalExpected = 0
	}

	tmp, err := os.CreateTemp("", "xfer-download-*")
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	cw := &countingWriter{ctx: ctx, task: t, w: tmp, written: t.offsetWritten, onWrite: func(delta, total int64) {
		t.rep.Report(Callback{
			TaskID:        t.id,
			Type:          EventDidWrite,
			Written:       delta,
			TotalWritten:  total,
			TotalExpected: totalExpected,
		})
	}}

	_, copyErr := io.Copy(cw, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: copyErr})
		return
	}
	if closeErr != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: closeErr})
		return
	}

	// Read the bytes into memory before returning control, per spec.md's
	// temp-file rule: some HTTP stacks delete the temp file the instant
	// this callback-side work returns.
	body, readErr := os.ReadFile(tmpPath)
	if readErr != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: readErr})
		return
	}

	t.rep.Report(Callback{
		TaskID: t.id,
		Type:   EventDidFinishDownloadingTo,
		Body:   body,
		Status: resp.StatusCode,
		Header: resp.Header,
	})
}

func (t *Task) runUpload(ctx context.Context) {
	f, err := os.Open(t.spoolPath)
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}

	cr := &countingReader{ctx: ctx, task: t, r: f, onRead: func(delta, total int64) {
		t.rep.Report(Callback{
			TaskID:        t.id,
			Type:          EventDidWrite,
			Written:       delta,
			TotalWritten:  total,
			TotalExpected: info.Size(),
		})
	}}

	req, err := http.NewRequestWithContext(ctx, t.method, t.url, cr)
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	req.ContentLength = info.Size()
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: err})
		return
	}
	defer resp.Body.Close()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.rep.Report(Callback{TaskID: t.id, Type: EventDidReceive, Chunk: chunk})
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Err: readErr})
			return
		}
	}

	t.rep.Report(Callback{TaskID: t.id, Type: EventDidCompleteWithError, Status: resp.StatusCode, Header: resp.Header})
}

// countingReader mirrors countingWriter for an upload's request body.
type countingReader struct {
	ctx    context.Context
	task   *Task
	r      io.Reader
	read   int64
	onRead func(delta, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.task.pauseGate(c.ctx)
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
	}
	n, err := c.r.Read(p)
	if n > 0 {
		c.read += int64(n)
		c.task.mu.Lock()
		c.task.offsetWritten = c.read
		c.task.mu.Unlock()
		if c.onRead != nil {
			c.onRead(int64(n), c.read)
		}
	}
	return n, err
}
