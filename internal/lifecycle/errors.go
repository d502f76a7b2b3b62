package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced work item or ledger
	// entry does not exist.
	ErrNotFound = errors.New("lifecycle: not found")

	// ErrValidation wraps rejected input: missing required fields or
	// values outside the accepted set.
	ErrValidation = errors.New("lifecycle: validation failed")

	// ErrTerminal is returned when a ledger write targets a completed
	// work item. Completed items accept no further entries.
	ErrTerminal = errors.New("lifecycle: work item is completed")

	// ErrInvalidTransition is returned when the entry kind is not legal
	// for the item's current status.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")

	// ErrInvalidState is returned when a closure verdict is applied to an
	// item that is not awaiting confirmation.
	ErrInvalidState = errors.New("lifecycle: item is not awaiting confirmation")
)

// DuplicateError signals that an active work item already covers the same
// (owner, subject, category) triple. It is a redirect, not a failure: the
// caller should point the user at ExistingID instead of creating a new row.
type DuplicateError struct {
	ExistingID uint
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("lifecycle: duplicate work item, active item #%d covers this subject", e.ExistingID)
}
