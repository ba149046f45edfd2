package v1

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type ctxKeyDownloadBatch struct{}
type ctxKeyUploadBatch struct{}
type ctxKeyAction struct{}

// rwLogger wraps http.ResponseWriter to capture status/bytes for Log.
type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) { w.err = err }

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

// decodeErrStatus maps a decodeJSONStrict error to its response status:
// 415 for an unacceptable Content-Type, 400 for anything else.
func decodeErrStatus(err error) int {
	if errors.Is(err, ErrContentType) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

// MiddlewareDownloadBatch decodes a download batch request into context,
// rejecting anything with no items.
func MiddlewareDownloadBatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body downloadBatchRequest
		if err := decodeJSONStrict(w, r, &body, 1<<20, "application/json"); err != nil {
			markErr(w, err)
			http.Error(w, err.Error(), decodeErrStatus(err))
			return
		}
		if len(body.Items) == 0 {
			markErr(w, ErrEmptyBatch)
			http.Error(w, ErrEmptyBatch.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyDownloadBatch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewareUploadBatch mirrors MiddlewareDownloadBatch for uploads.
func MiddlewareUploadBatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body uploadBatchRequest
		if err := decodeJSONStrict(w, r, &body, 1<<20, "application/json"); err != nil {
			markErr(w, err)
			http.Error(w, err.Error(), decodeErrStatus(err))
			return
		}
		if len(body.Items) == 0 {
			markErr(w, ErrEmptyBatch)
			http.Error(w, ErrEmptyBatch.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUploadBatch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewareAction decodes {"action": "pause|resume|stop"} into context.
func MiddlewareAction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body actionRequest
		if err := decodeJSONStrict(w, r, &body, 1<<10, "application/json"); err != nil {
			markErr(w, err)
			http.Error(w, err.Error(), decodeErrStatus(err))
			return
		}
		switch body.Action {
		case "pause", "resume", "stop":
		default:
			markErr(w, ErrUnknownAction)
			http.Error(w, ErrUnknownAction.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyAction{}, body.Action)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Log is request logging middleware: wraps the response writer to capture
// status/size, then logs one structured line per request.
func (h *Handler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		elapsed := time.Since(start)
		if rw.err != nil {
			h.log.Error(rw.err.Error(),
				"method", r.Method, "url", r.URL.Path, "status", rw.status,
				"remote", r.RemoteAddr, "ua", r.UserAgent(),
				"dur_ms", elapsed.Milliseconds(), "bytes", rw.bytes)
			return
		}
		h.log.Info("request",
			"method", r.Method, "url", r.URL.Path, "status", rw.status,
			"remote", r.RemoteAddr, "ua", r.UserAgent(),
			"dur_ms", elapsed.Milliseconds(), "bytes", rw.bytes)
	})
}
