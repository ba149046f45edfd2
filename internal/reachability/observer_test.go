package reachability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestStartEmitsOnceWithInitialValues(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := New(srv.Client(), srv.URL, 20*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := o.Start(ctx)

	first := <-events
	start, ok := first.(Start)
	if !ok {
		t.Fatalf("first event = %T, want Start", first)
	}
	if !start.Connected {
		t.Fatal("expected initial Connected=true")
	}
	if start.Cellular {
		t.Fatal("expected initial Cellular=false with nil classifier")
	}
}

func TestUpdateStatusFiresOnlyOnTransition(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := New(srv.Client(), srv.URL, 15*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := o.Start(ctx)

	<-events // Start

	up.Store(false)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if us, ok := e.(UpdateStatus); ok {
				if us.Connected {
					t.Fatal("expected UpdateStatus{Connected: false}")
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for UpdateStatus")
		}
	}
}

func TestStopClosesEventStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	o := New(srv.Client(), srv.URL, 10*time.Millisecond, nil)
	events := o.Start(context.Background())
	<-events // Start

	o.Stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for event stream to close after Stop")
		}
	}
}
