package router

import (
	"testing"

	"github.com/tinoosan/xfer/internal/downloadengine"
	"github.com/tinoosan/xfer/internal/transfer"
	"github.com/tinoosan/xfer/internal/uploadengine"
)

func newTestDownloadCoordinator(t *testing.T) *downloadengine.Coordinator {
	t.Helper()
	return downloadengine.New(nil, 2, transfer.DefaultProgressInterval, nil)
}

func newTestUploadCoordinator(t *testing.T) *uploadengine.Coordinator {
	t.Helper()
	spool, err := uploadengine.NewSpool(t.TempDir(), false)
	if err != nil {
		t.Fatalf("NewSpool: %v", err)
	}
	return uploadengine.New(nil, spool, 2, transfer.DefaultProgressInterval, nil)
}
