// Package handlers defines the error codes of failures answered directly by
// handlers. Codes of forwarded errors come from their apperr.Kind (see
// middleware.ErrorResponder).
//
// Codes are lowercase snake_case and stable; clients may branch on them.
package handlers

const (
	ErrCodeBadRequest = "bad_request"
	ErrCodeConflict   = "conflict"

	// Domain-specific:
	ErrCodeMissingFields = "missing_fields"
	ErrCodeCreateFailed  = "create_failed"
	ErrCodeUpdateFailed  = "update_failed"
	ErrCodeLookupFailed  = "lookup_failed"
	ErrCodeDeleteFailed  = "delete_failed"
)
