package v1

import "github.com/tinoosan/xfer/internal/transfer"

// downloadItemRequest is the wire shape for one entry of a download batch.
type downloadItemRequest struct {
	SourceURL      string              `json:"sourceUrl"`
	Headers        map[string][]string `json:"headers,omitempty"`
	TimeoutSeconds float64             `json:"timeoutSeconds,omitempty"`
	DestinationDir string              `json:"destinationDir,omitempty"`
	FileName       string              `json:"fileName,omitempty"`
	Collision      string              `json:"collision,omitempty"`
}

func (i downloadItemRequest) descriptor() transfer.DownloadDescriptor {
	return transfer.DownloadDescriptor{
		SourceURL:      i.SourceURL,
		Headers:        transfer.Headers(i.Headers),
		TimeoutSeconds: i.TimeoutSeconds,
		DestinationDir: i.DestinationDir,
		FileName:       i.FileName,
		Collision:      transfer.ParseCollisionPolicy(i.Collision),
	}
}

type downloadBatchRequest struct {
	Items []downloadItemRequest `json:"items"`
}

// payloadRequest is the wire shape for an upload's body payload.
type payloadRequest struct {
	Kind      string   `json:"kind"` // "inline" | "singleFile" | "fileList"
	Bytes     []byte   `json:"bytes,omitempty"`
	MimeType  string   `json:"mimeType,omitempty"`
	FieldName string   `json:"fieldName,omitempty"`
	FileName  string   `json:"fileName,omitempty"`
	FileURLs  []string `json:"fileUrls,omitempty"`
}

func (p payloadRequest) payload() transfer.Payload {
	kind := transfer.PayloadInline
	switch p.Kind {
	case "singleFile":
		kind = transfer.PayloadSingleFile
	case "fileList":
		kind = transfer.PayloadFileList
	}
	return transfer.Payload{
		Kind:      kind,
		Bytes:     p.Bytes,
		MimeType:  p.MimeType,
		FieldName: p.FieldName,
		FileName:  p.FileName,
		FileURLs:  p.FileURLs,
	}
}

// uploadItemRequest is the wire shape for one entry of an upload batch.
type uploadItemRequest struct {
	DestinationURL string              `json:"destinationUrl"`
	Headers        map[string][]string `json:"headers,omitempty"`
	TimeoutSeconds float64             `json:"timeoutSeconds,omitempty"`
	Payload        payloadRequest      `json:"payload"`
	BodyParams     map[string]string   `json:"bodyParams,omitempty"`
	MaxBytes       int64               `json:"maxBytes,omitempty"`
}

func (i uploadItemRequest) descriptor() transfer.UploadDescriptor {
	return transfer.UploadDescriptor{
		DestinationURL: i.DestinationURL,
		Headers:        transfer.Headers(i.Headers),
		TimeoutSeconds: i.TimeoutSeconds,
		Payload:        i.Payload.payload(),
		BodyParams:     i.BodyParams,
		MaxBytes:       i.MaxBytes,
	}
}

type uploadBatchRequest struct {
	Items []uploadItemRequest `json:"items"`
}

// actionRequest carries the lifecycle action a PATCH targets.
type actionRequest struct {
	Action string `json:"action"`
}

// snapshotResponse is the wire shape of transfer.Snapshot.
type snapshotResponse struct {
	ID           string  `json:"id"`
	Index        int     `json:"index"`
	Kind         string  `json:"kind"`
	SourceURL    string  `json:"sourceUrl"`
	CurrentBytes float64 `json:"currentBytes"`
	TotalBytes   float64 `json:"totalBytes"`
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
}

func fromSnapshot(s *transfer.Snapshot) snapshotResponse {
	kind := "download"
	if s.Kind == transfer.KindUpload {
		kind = "upload"
	}
	resp := snapshotResponse{
		ID:           s.ID,
		Index:        s.Index,
		Kind:         kind,
		SourceURL:    s.SourceURL,
		CurrentBytes: s.CurrentBytes,
		TotalBytes:   s.TotalBytes,
		Status:       s.Status.String(),
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

func fromSnapshots(snaps []*transfer.Snapshot) []snapshotResponse {
	out := make([]snapshotResponse, len(snaps))
	for i, s := range snaps {
		out[i] = fromSnapshot(s)
	}
	return out
}
