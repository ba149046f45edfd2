package httptask

import (
	"encoding/json"
)

// resumeToken is the opaque representation spec.md §4.4/§4.5 calls a
// "resume token": bytes a coordinator stores on a record and later hands
// back to NewDownloadFromResume. spec.md leaves the token's wire shape
// unspecified for a pure-HTTP transport (it only pins the behavior real
// platform stacks expose); this resolves that Open Question by deriving a
// resume token from the two things an HTTP/1.1 origin needs to resume a
// byte-range request: how much was already written, and an ETag/
// Last-Modified to detect the resource changing underneath the transfer.
type resumeToken struct {
	URL            string              `json:"url"`
	Header         map[string][]string `json:"header,omitempty"`
	OffsetWritten  int64               `json:"offset"`
	ETag           string              `json:"etag,omitempty"`
	LastModified   string              `json:"lastModified,omitempty"`
	TimeoutSeconds float64             `json:"timeoutSeconds,omitempty"`
}

func encodeResumeToken(t resumeToken) []byte {
	b, err := json.Marshal(t)
	if err != nil {
		return nil
	}
	return b
}

func decodeResumeToken(b []byte) (resumeToken, bool) {
	var t resumeToken
	if err := json.Unmarshal(b, &t); err != nil {
		return resumeToken{}, false
	}
	if t.URL == "" {
		return resumeToken{}, false
	}
	return t, true
}
