package bibliography

import (
	"fmt"
	"strings"

	cerrors "github.com/FocuswithJustin/excite/core/errors"
)

// DuplicateReferenceError reports that a label's reference entry was
// defined more than once. It is raised at scan time, before any
// document mutation.
type DuplicateReferenceError struct {
	Label string
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("duplicate reference entry for label %q", e.Label)
}

func (e *DuplicateReferenceError) Unwrap() error {
	return cerrors.ErrAlreadyExists
}

// MissingReferenceError reports citations without a matching reference
// entry after a full scan. Uncited carries the converse mismatch
// (reference entries no citation points at), when present.
type MissingReferenceError struct {
	Missing []string
	Uncited []string
}

func (e *MissingReferenceError) Error() string {
	switch {
	case len(e.Missing) > 0 && len(e.Uncited) > 0:
		return fmt.Sprintf("citations without references: %s; references without citations: %s",
			strings.Join(e.Missing, ", "), strings.Join(e.Uncited, ", "))
	case len(e.Missing) > 0:
		return fmt.Sprintf("citations without references: %s", strings.Join(e.Missing, ", "))
	case len(e.Uncited) > 0:
		return fmt.Sprintf("references without citations: %s", strings.Join(e.Uncited, ", "))
	}
	return "citation/reference mismatch"
}

func (e *MissingReferenceError) Unwrap() error {
	return cerrors.ErrNotFound
}
