package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedStatus matches any *StatusError
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
	// ErrNotRecordSet is returned when a response or artifact does not decode as a record set
	ErrNotRecordSet = errors.New("content does not decode as a variation record set")
	// ErrColumnMissing is returned when a table lacks the partition column
	ErrColumnMissing = errors.New("column not found")
	// ErrDuplicateColumn is returned when a CSV header names a column twice
	ErrDuplicateColumn = errors.New("duplicate column")
	// ErrIdentifierColumn is returned when the input sheet lacks the identifier column
	ErrIdentifierColumn = errors.New("identifier column not found")
)

// StatusError reports a non-OK response for one identifier
type StatusError struct {
	Identifier string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error fetching data for %s: HTTP status code %d", e.Identifier, e.StatusCode)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) match
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
