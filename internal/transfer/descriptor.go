package transfer

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// CachePolicy mirrors the handful of cache behaviors a caller can request
// for a single request.
type CachePolicy string

const (
	CacheUseProtocolPolicy CachePolicy = "use-cache"
	CacheReloadIgnoring    CachePolicy = "reload-ignoring-cache"
	CacheReturnCacheOnly   CachePolicy = "return-cache-data-else-load"
)

// Headers is a header map kept as a plain map of string slices so
// descriptors stay comparable to the same shape net/http expects. Keys are
// stored as the caller supplied them; case is folded where the map is read
// (fingerprinting lowercases keys, and net/http canonicalizes them when a
// request is built).
type Headers map[string][]string

// Clone returns a deep copy, with every key lowercased, so a descriptor's
// header map can never be mutated by a caller that still holds a reference
// to the original.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for k, v := range h {
		cp := make([]string, len(v))
		copy(cp, v)
		out[strings.ToLower(k)] = cp
	}
	return out
}

// CollisionPolicy controls what a download coordinator does when its
// destination path is already occupied by a file. The base save policy is
// CollisionOverwrite; the other two values are a SPEC_FULL supplement.
type CollisionPolicy string

const (
	CollisionOverwrite CollisionPolicy = "overwrite"
	CollisionError      CollisionPolicy = "error"
	CollisionRename     CollisionPolicy = "rename"
)

// ParseCollisionPolicy converts a string to a CollisionPolicy, defaulting to
// CollisionOverwrite for anything unrecognized.
func ParseCollisionPolicy(s string) CollisionPolicy {
	switch CollisionPolicy(s) {
	case CollisionError:
		return CollisionError
	case CollisionRename:
		return CollisionRename
	default:
		return CollisionOverwrite
	}
}

// DownloadDescriptor is the immutable, pure-data contract describing one
// download. A coordinator never mutates a descriptor; it only reads from it.
type DownloadDescriptor struct {
	SourceURL        string
	Headers          Headers
	CachePolicy      CachePolicy
	TimeoutSeconds   float64
	DestinationDir   string // local directory URL/path
	FileName         string // defaults to the last path segment of SourceURL
	Collision        CollisionPolicy
}

// Method is fixed to GET for downloads so the underlying transport can
// resume them server-side.
func (d DownloadDescriptor) Method() string { return "GET" }

// ResolvedFileName returns d.FileName, or the last path segment of
// SourceURL when FileName is empty.
func (d DownloadDescriptor) ResolvedFileName() string {
	if d.FileName != "" {
		return d.FileName
	}
	u, err := url.Parse(d.SourceURL)
	if err != nil || u.Path == "" {
		return "download"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "download"
	}
	return name
}

// DestinationPath is the directory joined with the resolved file name.
func (d DownloadDescriptor) DestinationPath() string {
	if d.DestinationDir == "" {
		return ""
	}
	return strings.TrimRight(d.DestinationDir, "/") + "/" + d.ResolvedFileName()
}

// Timeout returns TimeoutSeconds as a time.Duration.
func (d DownloadDescriptor) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutSeconds * float64(time.Second))
}

// PayloadKind distinguishes the three ways an upload's body can be composed.
type PayloadKind int

const (
	PayloadInline PayloadKind = iota
	PayloadSingleFile
	PayloadFileList
)

// Payload describes the body of one multipart upload part.
type Payload struct {
	Kind PayloadKind

	// PayloadInline
	Bytes    []byte
	MimeType string

	// Shared by PayloadInline/PayloadSingleFile/PayloadFileList
	FieldName string
	FileName  string

	// PayloadSingleFile / PayloadFileList
	FileURLs []string
}

// UploadDescriptor is the immutable, pure-data contract describing one
// multipart upload.
type UploadDescriptor struct {
	DestinationURL string
	Headers        Headers
	CachePolicy    CachePolicy
	TimeoutSeconds float64
	Payload        Payload
	BodyParams     map[string]string
	MaxBytes       int64
}

// Method is fixed to POST for uploads.
func (u UploadDescriptor) Method() string { return "POST" }

func (u UploadDescriptor) Timeout() time.Duration {
	if u.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(u.TimeoutSeconds * float64(time.Second))
}
