// Package lifecycle holds the request status transition table.
package lifecycle

import (
	"fmt"

	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

// validTransitions lists the statuses reachable through a direct status
// change. new -> assigned is absent: only assignment produces it.
var validTransitions = map[types.Status][]types.Status{
	types.StatusNew: {
		types.StatusInProgress,
		types.StatusCancelled,
	},
	types.StatusAssigned: {
		types.StatusInProgress,
		types.StatusCompleted,
		types.StatusCancelled,
	},
	types.StatusInProgress: {
		types.StatusCompleted,
		types.StatusCancelled,
	},
	types.StatusCompleted: {},
	types.StatusCancelled: {},
}

// ValidateStatusTransition returns ErrInvalidState unless from -> to is a
// permitted direct status change.
func ValidateStatusTransition(from, to types.Status) error {
	if from.Terminal() {
		return fmt.Errorf("request is %s and can no longer change status: %w", from, apperr.ErrInvalidState)
	}
	for _, allowed := range validTransitions[from] {
		if to == allowed {
			return nil
		}
	}
	if from == types.StatusNew && to == types.StatusAssigned {
		return fmt.Errorf("assign a volunteer to move a request to assigned: %w", apperr.ErrInvalidState)
	}
	return fmt.Errorf("cannot transition from %s to %s: %w", from, to, apperr.ErrInvalidState)
}

// AllowedTransitions returns the statuses a request in status can move to
// through a direct status change.
func AllowedTransitions(status types.Status) []types.Status {
	return append([]types.Status(nil), validTransitions[status]...)
}

// StatusAfterAssign is the status a request takes when a volunteer is
// assigned to it: new requests become assigned, others keep their status.
func StatusAfterAssign(current types.Status) types.Status {
	if current == types.StatusNew {
		return types.StatusAssigned
	}
	return current
}
