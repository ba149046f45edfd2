package router

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v1 "github.com/tinoosan/xfer/api/v1"
	"github.com/tinoosan/xfer/internal/auth"
	"github.com/tinoosan/xfer/internal/downloadengine"
	"github.com/tinoosan/xfer/internal/uploadengine"
)

// New sets up the control-plane daemon's routes and required middleware:
// one mux.Router, a request logger, and a bearer-token gate in front of
// everything but health and metrics.
func New(logger *slog.Logger, downloads *downloadengine.Coordinator, uploads *uploadengine.Coordinator) *mux.Router {
	r := mux.NewRouter()

	h := v1.NewHandler(logger, downloads, uploads)

	r.Use(h.Log)
	r.Use(v1.RequestID)
	r.Use(auth.Middleware)

	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()

	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/downloads", h.ListDownloads)
	get.HandleFunc("/uploads", h.ListUploads)

	post := api.Methods("POST").Subrouter()
	post.Handle("/downloads", v1.MiddlewareDownloadBatch(http.HandlerFunc(h.CreateDownloads)))
	post.Handle("/uploads", v1.MiddlewareUploadBatch(http.HandlerFunc(h.CreateUploads)))

	patch := api.Methods("PATCH").Subrouter()
	patch.Handle("/downloads", v1.MiddlewareAction(http.HandlerFunc(h.PatchDownloads)))
	patch.Handle("/uploads", v1.MiddlewareAction(http.HandlerFunc(h.PatchUploads)))

	r.HandleFunc("/v1/downloads/stream", h.StreamDownloads).Methods("GET")
	r.HandleFunc("/v1/uploads/stream", h.StreamUploads).Methods("GET")

	return r
}
