package models

import "errors"

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error         string            `json:"error"`
	Code          string            `json:"code,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeSyncActive         = "SYNC_ALREADY_ACTIVE"
	ErrCodeDuplicateWorkflow  = "DUPLICATE_WORKFLOW"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeConfigurationError = "CONFIGURATION_ERROR"
	ErrCodeUpstreamError      = "UPSTREAM_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Sentinel errors shared across store and tracker boundaries.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateWorkflow is returned when a workflow.triggered event is
	// replayed over an execution that already reached a terminal state.
	ErrDuplicateWorkflow = errors.New("workflow already executed")

	// ErrConfiguration is returned when a required credential or endpoint
	// for an external call is missing. Operator-actionable, surfaced as 500.
	ErrConfiguration = errors.New("missing configuration")
)
