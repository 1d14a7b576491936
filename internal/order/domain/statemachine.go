package domain

import "github.com/dmehra2102/storefront/pkg/apperr"

// Decision is the outcome of a permitted status change.
type Decision struct {
	// Changed is false for the idempotent cancelled -> cancelled request.
	Changed bool
	// Restitute is true when the reserved stock must be returned.
	Restitute bool
}

// Decide applies the order lifecycle table. created may move to completed or
// cancelled; completed and cancelled are terminal. Repeating a cancellation is
// accepted without effect. Every other pair is an InvalidTransitionError.
func Decide(from, to Status) (Decision, error) {
	switch {
	case from == StatusCreated && to == StatusCompleted:
		return Decision{Changed: true}, nil
	case from == StatusCreated && to == StatusCancelled:
		return Decision{Changed: true, Restitute: true}, nil
	case from == StatusCancelled && to == StatusCancelled:
		return Decision{}, nil
	}
	return Decision{}, &apperr.InvalidTransitionError{From: string(from), To: string(to)}
}

// Cancellable reports whether a user initiated cancel is allowed. Unlike
// Decide it rejects an already cancelled order so the caller learns that
// nothing was restituted.
func Cancellable(current Status) error {
	if current != StatusCreated {
		return &apperr.InvalidTransitionError{From: string(current), To: string(StatusCancelled)}
	}
	return nil
}
