package transfer

import "fmt"

// Error kinds mirror the taxonomy a transfer can fail with. They are
// sentinel-comparable via errors.Is since ServerError and ServerErrorHTML
// carry data but still wrap a stable base value.
var (
	ErrCanceledByUser     = fmt.Errorf("transfer: canceled by user")
	ErrInvalidURL         = fmt.Errorf("transfer: descriptor yielded no valid URL")
	ErrInvalidFileURL     = fmt.Errorf("transfer: destination is not a local file URL")
	ErrNoDataInLocal      = fmt.Errorf("transfer: local file unreadable or unwritable")
	ErrOverLimitedSize    = fmt.Errorf("transfer: upload spool exceeds maxBytes")
	ErrServer             = fmt.Errorf("transfer: server responded outside 2xx")
	ErrNotFound           = fmt.Errorf("transfer: record not found")
	ErrAlreadyTerminal    = fmt.Errorf("transfer: record already reached a terminal state")
	ErrEncoding           = fmt.Errorf("transfer: request body could not be encoded")
	ErrDecoding           = fmt.Errorf("transfer: response body could not be decoded")
)

// ServerError is returned when the origin server answers outside [200,300).
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("transfer: server error, status %d", e.Status)
}

func (e *ServerError) Unwrap() error { return ErrServer }

// ServerErrorHTML is a ServerError whose body looks like an HTML error page.
type ServerErrorHTML struct {
	Status int
	Body   []byte
}

func (e *ServerErrorHTML) Error() string {
	return fmt.Sprintf("transfer: server error, status %d (html body, %d bytes)", e.Status, len(e.Body))
}

func (e *ServerErrorHTML) Unwrap() error { return ErrServer }

// FailureReason is an application-level error propagated unchanged from a
// caller-supplied reason string. It exists so callers can attach their own
// diagnostics to stop() without the engine inventing a taxonomy entry.
type FailureReason struct {
	Reason string
}

func (e *FailureReason) Error() string { return e.Reason }
