package v1

import "errors"

var (
	ErrBatchCtx      = errors.New("batch missing in context")
	ErrActionCtx     = errors.New("action missing in context")
	ErrActionBody    = errors.New("action is required")
	ErrUnknownAction = errors.New("action must be one of pause|resume|stop")
	ErrContentType   = errors.New("Content-Type must be application/json")
	ErrEmptyBatch    = errors.New("items must contain at least one entry")
)
