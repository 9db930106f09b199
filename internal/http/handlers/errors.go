// Package handlers defines the HTTP error codes returned in ErrorResponse.
//
// Codes are lowercase snake_case and stable; clients branch on them instead
// of on the human-readable message.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// ErrCodeInvalidInput marks rejected form input; the message is the
	// inline text for the offending field.
	ErrCodeInvalidInput = "invalid_input"

	ErrCodeCreateFailed   = "create_failed"
	ErrCodeDeleteFailed   = "delete_failed"
	ErrCodeListFailed     = "list_failed"
	ErrCodeScheduleFailed = "schedule_failed"
	ErrCodeStreamFailed   = "stream_failed"
)
