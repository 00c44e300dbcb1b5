package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and downstream targets
// return these (optionally wrapped) so services can translate them into
// domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: no record exists for the requested subject/key
// - ErrConflict: concurrent mutation detected by the backing store
// - ErrUnavailable: backing store or sync target temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
