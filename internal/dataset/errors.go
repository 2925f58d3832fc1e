package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload is returned when an API payload lacks an expected key or
	// holds a value of the wrong shape.
	ErrMalformedPayload = errors.New("dataset: malformed payload")

	// ErrSchemaMismatch is returned when records of a single batch do not share
	// the same key set.
	ErrSchemaMismatch = errors.New("dataset: schema mismatch")
)

// MalformedPayloadError names the payload key that could not be read.
type MalformedPayloadError struct {
	Key    string
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("dataset: malformed payload: %s: %s", e.Key, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return ErrMalformedPayload
}

// SchemaMismatchError reports the first record whose keys differ from the
// first record of the same source.
type SchemaMismatchError struct {
	Source string
	Record int
	Key    string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("dataset: schema mismatch in %s record %d: key %q", e.Source, e.Record, e.Key)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}
