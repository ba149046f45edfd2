package v1

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tinoosan/xfer/internal/downloadengine"
	"github.com/tinoosan/xfer/internal/telemetry"
	"github.com/tinoosan/xfer/internal/transfer"
	"github.com/tinoosan/xfer/internal/uploadengine"
	"nhooyr.io/websocket"
)

// Handler wires the download and upload coordinators (C7, C8) behind the
// control-plane REST surface, one struct per resource family wrapping its
// coordinator the way a thin HTTP handler wraps a service.
type Handler struct {
	log *slog.Logger

	downloads *downloadengine.Coordinator
	uploads   *uploadengine.Coordinator

	mu          sync.Mutex
	downloadObs *telemetry.Observer
	uploadObs   *telemetry.Observer
}

// NewHandler builds a Handler over already-running coordinators.
func NewHandler(log *slog.Logger, downloads *downloadengine.Coordinator, uploads *uploadengine.Coordinator) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, downloads: downloads, uploads: uploads}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		markErr(w, err)
	}
}

func writeSnapshots(w http.ResponseWriter, snaps []*transfer.Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(fromSnapshots(snaps)); err != nil {
		markErr(w, err)
	}
}

func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	writeSnapshots(w, h.downloads.Snapshots())
}

// CreateDownloads starts a new download batch. Only one batch is live per
// coordinator at a time (spec.md §4.5); a second call replaces it.
func (h *Handler) CreateDownloads(w http.ResponseWriter, r *http.Request) {
	body, ok := r.Context().Value(ctxKeyDownloadBatch{}).(downloadBatchRequest)
	if !ok {
		markErr(w, ErrBatchCtx)
		http.Error(w, ErrBatchCtx.Error(), http.StatusInternalServerError)
		return
	}
	descs := make([]transfer.DownloadDescriptor, len(body.Items))
	for i, item := range body.Items {
		descs[i] = item.descriptor()
	}

	agg := h.downloads.EventsMany(descs)
	obs := telemetry.New(telemetry.KindDownload, h.log, 256)
	h.mu.Lock()
	h.downloadObs = obs
	h.mu.Unlock()
	go obs.Consume(agg)

	w.WriteHeader(http.StatusAccepted)
	writeSnapshots(w, h.downloads.Snapshots())
}

// PatchDownloads applies a lifecycle action to the running batch.
func (h *Handler) PatchDownloads(w http.ResponseWriter, r *http.Request) {
	action, ok := r.Context().Value(ctxKeyAction{}).(string)
	if !ok {
		markErr(w, ErrActionCtx)
		http.Error(w, ErrActionCtx.Error(), http.StatusInternalServerError)
		return
	}
	switch action {
	case "pause":
		h.downloads.Pause()
	case "resume":
		h.downloads.Resume()
	case "stop":
		h.downloads.Stop(transfer.ErrCanceledByUser)
	}
	writeSnapshots(w, h.downloads.Snapshots())
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	writeSnapshots(w, h.uploads.Snapshots())
}

// CreateUploads starts a new upload batch.
func (h *Handler) CreateUploads(w http.ResponseWriter, r *http.Request) {
	body, ok := r.Context().Value(ctxKeyUploadBatch{}).(uploadBatchRequest)
	if !ok {
		markErr(w, ErrBatchCtx)
		http.Error(w, ErrBatchCtx.Error(), http.StatusInternalServerError)
		return
	}
	descs := make([]transfer.UploadDescriptor, len(body.Items))
	for i, item := range body.Items {
		descs[i] = item.descriptor()
	}

	agg := h.uploads.EventsMany(descs)
	obs := telemetry.New(telemetry.KindUpload, h.log, 256)
	h.mu.Lock()
	h.uploadObs = obs
	h.mu.Unlock()
	go obs.Consume(agg)

	w.WriteHeader(http.StatusAccepted)
	writeSnapshots(w, h.uploads.Snapshots())
}

// PatchUploads applies a lifecycle action to the running upload batch.
func (h *Handler) PatchUploads(w http.ResponseWriter, r *http.Request) {
	action, ok := r.Context().Value(ctxKeyAction{}).(string)
	if !ok {
		markErr(w, ErrActionCtx)
		http.Error(w, ErrActionCtx.Error(), http.StatusInternalServerError)
		return
	}
	switch action {
	case "pause":
		h.uploads.Pause()
	case "resume":
		h.uploads.Resume()
	case "stop":
		h.uploads.Stop(transfer.ErrCanceledByUser)
	}
	writeSnapshots(w, h.uploads.Snapshots())
}

// wsEnvelope is one line pushed to a stream subscriber.
type wsEnvelope struct {
	Level   string `json:"level"` // "unit" | "aggregate"
	BatchID string `json:"batchId"`
	Index   int    `json:"index,omitempty"`
	Type    string `json:"type"`
}

// StreamDownloads upgrades to a websocket and pushes the current download
// batch's telemetry outward until the batch finishes or the client
// disconnects. A server-side Accept rather than a client-side Dial, since
// this process is the notifier, not the subscriber.
func (h *Handler) StreamDownloads(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	obs := h.downloadObs
	h.mu.Unlock()
	streamObserver(h.log, w, r, obs)
}

// StreamUploads mirrors StreamDownloads for the upload coordinator.
func (h *Handler) StreamUploads(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	obs := h.uploadObs
	h.mu.Unlock()
	streamObserver(h.log, w, r, obs)
}

func streamObserver(log *slog.Logger, w http.ResponseWriter, r *http.Request, obs *telemetry.Observer) {
	if obs == nil {
		http.Error(w, "no batch running", http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error("websocket accept", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()

	ctx := r.Context()
	for {
		select {
		case env, ok := <-obs.UnitFeed():
			if !ok {
				return
			}
			if err := writeEnvelope(ctx, conn, wsEnvelope{
				Level: "unit", BatchID: env.BatchID, Index: env.Index, Type: unitTypeName(env.Event),
			}); err != nil {
				return
			}
		case env, ok := <-obs.AggregateFeed():
			if !ok {
				return
			}
			if err := writeEnvelope(ctx, conn, wsEnvelope{
				Level: "aggregate", BatchID: env.BatchID, Type: aggregateTypeName(env.Event),
			}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, e wsEnvelope) error {
	wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return conn.Write(wctx, websocket.MessageText, b)
}

func unitTypeName(e transfer.UnitEvent) string {
	switch e.(type) {
	case transfer.UnitStart:
		return "start"
	case transfer.UnitUpdate:
		return "update"
	case transfer.UnitCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func aggregateTypeName(e transfer.AggregateEvent) string {
	switch e.(type) {
	case transfer.AggregateStart:
		return "start"
	case transfer.AggregateUnit:
		return "unit"
	case transfer.AggregateAllCompleted:
		return "allCompleted"
	default:
		return "unknown"
	}
}
