package uploadengine

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/tinoosan/xfer/internal/transfer"
)

// BuildSpoolFile composes one upload record's multipart/form-data body
// into its spool file and returns the path plus the Content-Type header
// value to send with it (spec.md §4.6: "Boundary = the record id").
//
// Uses mime/multipart directly rather than hand-rolling part framing: the
// pack has no third-party multipart library, and the standard one already
// guarantees the RFC 7578 round-trip spec.md's R1 requires.
func BuildSpoolFile(spool *Spool, recordID string, d transfer.UploadDescriptor) (path, contentType string, err error) {
	path = spool.Path(recordID)
	f, err := os.Create(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	mw := multipart.NewWriter(f)
	if err := mw.SetBoundary(recordID); err != nil {
		return "", "", fmt.Errorf("upload spool boundary: %w", err)
	}

	for _, k := range sortedKeys(d.BodyParams) {
		if err := mw.WriteField(k, d.BodyParams[k]); err != nil {
			return "", "", err
		}
	}

	if err := writePayload(mw, d.Payload); err != nil {
		return "", "", err
	}

	if err := mw.Close(); err != nil {
		return "", "", err
	}
	return path, mw.FormDataContentType(), nil
}

func writePayload(mw *multipart.Writer, p transfer.Payload) error {
	switch p.Kind {
	case transfer.PayloadInline:
		return writeFilePart(mw, p.FieldName, p.FileName, p.MimeType, p.Bytes)

	case transfer.PayloadSingleFile, transfer.PayloadFileList:
		for _, fileURL := range p.FileURLs {
			path := localPath(fileURL)
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := writeFilePart(mw, p.FieldName, filepath.Base(path), inferMime(path), b); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFilePart(mw *multipart.Writer, field, fileName, mimeType string, body []byte) error {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, fileName))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(body)
	return err
}

// inferMime derives a part's Content-Type from its file extension,
// defaulting to application/octet-stream per spec.md §4.6.
func inferMime(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// localPath accepts a file:// URL or a plain filesystem path.
func localPath(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil && (u.Scheme == "" || u.Scheme == "file") && u.Path != "" {
		return u.Path
	}
	return fileURL
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
