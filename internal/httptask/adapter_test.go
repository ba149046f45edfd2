package httptask

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tinoosan/xfer/internal/transfer"
)

func drain(t *testing.T, ch chan Callback, want EventType, timeout time.Duration) Callback {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case c := <-ch:
			if c.Type == want {
				return c
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestDownloadTaskCompletesAndReadsBodyIntoMemory(t *testing.T) {
	const payload = "hello world, this is the downloaded body"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("ETag", `"abc"`)
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewDownload(DownloadRequest{URL: srv.URL})
	if task.State() != transfer.TaskNew {
		t.Fatalf("new task state = %v, want TaskNew", task.State())
	}

	task.Resume()
	cb := drain(t, events, EventDidFinishDownloadingTo, 2*time.Second)
	if string(cb.Body) != payload {
		t.Fatalf("body = %q, want %q", cb.Body, payload)
	}
	if cb.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", cb.Status)
	}
}

func TestDownloadTaskSuspendResumeDeliversAllBytes(t *testing.T) {
	const payload = "0123456789abcdefghijklmnopqrstuvwxyz"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewDownload(DownloadRequest{URL: srv.URL})
	task.Resume()
	task.Suspend()
	if task.State() != transfer.TaskSuspended {
		t.Fatalf("state = %v, want TaskSuspended", task.State())
	}
	task.Resume()
	if task.State() != transfer.TaskRunning {
		t.Fatalf("state after resume = %v, want TaskRunning", task.State())
	}

	cb := drain(t, events, EventDidFinishDownloadingTo, 2*time.Second)
	if string(cb.Body) != payload {
		t.Fatalf("body = %q, want %q", cb.Body, payload)
	}
}

func TestCancelProducingResumeTokenThenResumeContinues(t *testing.T) {
	const payload = "abcdefghijklmnopqrstuvwxyz0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		if rng := r.Header.Get("Range"); rng != "" {
			http.ServeContent(w, r, "", time.Time{}, strings.NewReader(payload))
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewDownload(DownloadRequest{URL: srv.URL})
	task.Resume()

	// Force the first ETag/Accept-Ranges round trip to land before we cancel.
	drain(t, events, EventDidWrite, 2*time.Second)

	token, ok := task.CancelProducingResumeToken()
	if !ok || token == nil {
		t.Fatalf("CancelProducingResumeToken() ok=%v token=%v", ok, token)
	}

	resumed, ok := a.NewDownloadFromResume(token)
	if !ok {
		t.Fatal("NewDownloadFromResume rejected a token the adapter just produced")
	}
	resumed.Resume()
	cb := drain(t, events, EventDidFinishDownloadingTo, 2*time.Second)
	if len(cb.Body) == 0 {
		t.Fatal("resumed download produced an empty body")
	}
}

func TestUploadTaskSendsBodyAndCapturesResponse(t *testing.T) {
	dir := t.TempDir()
	spoolPath := dir + "/spool"
	if err := os.WriteFile(spoolPath, []byte("payload-bytes"), 0o600); err != nil {
		t.Fatalf("write spool: %v", err)
	}

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := make([]byte, 1024)
		n, _ := r.Body.Read(b)
		gotBody = b[:n]
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewUpload(UploadRequest{URL: srv.URL, SpoolPath: spoolPath})
	task.Resume()

	cb := drain(t, events, EventDidCompleteWithError, 2*time.Second)
	if cb.Status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", cb.Status)
	}
	if string(gotBody) != "payload-bytes" {
		t.Fatalf("server received %q", gotBody)
	}
}

func TestDownloadTaskTimesOutOnAHungServer(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewDownload(DownloadRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	task.Resume()

	cb := drain(t, events, EventDidCompleteWithError, 2*time.Second)
	if cb.Err == nil {
		t.Fatal("expected a timeout error, got nil")
	}
}

func TestDownloadTaskCachePolicySetsCacheControlHeader(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Cache-Control")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	events := make(chan Callback, 64)
	a := NewAdapter(srv.Client(), NewChanReporter(events))
	task := a.NewDownload(DownloadRequest{URL: srv.URL, CachePolicy: transfer.CacheReloadIgnoring})
	task.Resume()
	drain(t, events, EventDidFinishDownloadingTo, 2*time.Second)

	if got != "no-cache" {
		t.Fatalf("Cache-Control = %q, want %q", got, "no-cache")
	}
}
