package types

import "errors"

var (
	// ErrValidation marks malformed input such as a bad data URL or an oversized message.
	ErrValidation = errors.New("validation error")
	// ErrDecode marks image bytes that cannot be decoded as the declared type.
	ErrDecode = errors.New("decode error")
	// ErrUpstreamScorer marks a classifier call that failed or timed out.
	ErrUpstreamScorer = errors.New("upstream scorer error")
	// ErrConflict marks a lock held by another moderator or a case that is no longer open.
	ErrConflict = errors.New("conflict")
	// ErrPersistence marks a document store failure.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound marks a missing upload, case or user state.
	ErrNotFound = errors.New("not found")
)
