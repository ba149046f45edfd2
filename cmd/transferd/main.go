package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/tinoosan/xfer/internal/downloadengine"
	"github.com/tinoosan/xfer/internal/metrics"
	"github.com/tinoosan/xfer/internal/router"
	"github.com/tinoosan/xfer/internal/uploadengine"
	"gopkg.in/natefinch/lumberjack.v2"
)

// getenv returns the environment variable named by key, or def if unset.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func main() {
	var logWriter *lumberjack.Logger
	if path := os.Getenv("XFER_LOG_FILE"); path != "" {
		logWriter = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer logWriter.Close()
	}

	var logger *slog.Logger
	if logWriter != nil {
		logger = slog.New(slog.NewJSONHandler(logWriter, nil))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	metrics.Register()

	maxActive := getenvInt("XFER_MAX_ACTIVE", 3)
	spoolDir := getenv("XFER_SPOOL_DIR", os.TempDir()+"/xfer-spool")

	downloads := downloadengine.New(http.DefaultClient, maxActive, 1.0, logger.With("component", "downloadengine"))

	spool, err := uploadengine.NewSpool(spoolDir, false)
	if err != nil {
		logger.Error("build upload spool", "err", err)
		os.Exit(1)
	}
	uploads := uploadengine.New(http.DefaultClient, spool, maxActive, 1.0, logger.With("component", "uploadengine"))

	r := router.New(logger, downloads, uploads)

	server := &http.Server{
		Addr:         ":" + getenv("XFER_PORT", "9090"),
		Handler:      r,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // the websocket stream endpoints are long-lived
	}

	go func() {
		logger.Info("starting xfer control plane", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	logger.Info("received terminate, starting graceful shutdown", "signal", sig.String())

	downloads.Stop(nil)
	uploads.Stop(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
