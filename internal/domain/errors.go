package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for caller input and lookup failures.
var (
	// ErrValidation indicates bad caller input (empty query, missing fields).
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a referenced document, question, or unit is absent.
	ErrNotFound = errors.New("not found")
)

// ExtractionError indicates a file could not be read as a valid PDF
// (corrupt, encrypted, or not a PDF at all).
type ExtractionError struct {
	Name string // file name or storage key, for diagnostics
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ConfigurationError indicates invalid pipeline parameters, such as an
// overlap fraction outside [0, 1).
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Param, e.Reason)
}

// ModelUnavailableError indicates the embedding backend could not be
// reached or refused the request. Callers must fail the operation rather
// than substitute a zero vector.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("embedding model %s unavailable: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// DimensionMismatchError indicates an existing vector collection has a
// different dimension than the one requested.
type DimensionMismatchError struct {
	Collection string
	Want       int
	Got        int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("collection %s has vector size %d, expected %d", e.Collection, e.Got, e.Want)
}

// PartialUpsertError reports which upsert batches failed so the caller can
// retry only that subset instead of re-running the whole ingestion.
type PartialUpsertError struct {
	Collection    string
	FailedBatches []int
	Err           error
}

func (e *PartialUpsertError) Error() string {
	return fmt.Sprintf("upsert to %s failed for batches %v: %v", e.Collection, e.FailedBatches, e.Err)
}

func (e *PartialUpsertError) Unwrap() error { return e.Err }

// SearchUnavailableError indicates the vector store could not be reached
// during a search. Surfaced instead of an empty result so "store down" is
// distinguishable from "nothing matched".
type SearchUnavailableError struct {
	Err error
}

func (e *SearchUnavailableError) Error() string {
	return fmt.Sprintf("vector search unavailable: %v", e.Err)
}

func (e *SearchUnavailableError) Unwrap() error { return e.Err }
