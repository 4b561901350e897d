package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord matches every RecordError through errors.Is.
var ErrInvalidRecord = errors.New("invalid record")

// RecordError locates a snapshot record an evaluator skipped and says why.
type RecordError struct {
	Section string
	Index   int
	Reason  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s[%d]: %s", e.Section, e.Index, e.Reason)
}

// Is reports whether target is ErrInvalidRecord.
func (e *RecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// NewRecordError constructs a RecordError.
func NewRecordError(section string, index int, reason string) *RecordError {
	return &RecordError{Section: section, Index: index, Reason: reason}
}
