package core

import "errors"

var (
	// ErrNotFound marks a lookup for an unknown document or job id.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotReady rejects generation requests against a document
	// that has not reached PROCESSED.
	ErrDocumentNotReady = errors.New("document is not processed")
	// ErrInvalidRating rejects feedback ratings outside {-1, 0, 1}.
	ErrInvalidRating = errors.New("rating must be -1, 0, or 1")
	// ErrQueryTooShort rejects queries below the minimum length.
	ErrQueryTooShort = errors.New("query must be at least 3 characters long")
	// ErrValidation marks malformed request parameters rejected before any
	// job is created.
	ErrValidation = errors.New("invalid request")
)
