package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and blob backends return these
// (optionally wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: row or blob does not exist
//   - ErrAlreadyUsed: a unique key (registration number) is already taken
//   - ErrInvalidState: stored value cannot be interpreted
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
)
