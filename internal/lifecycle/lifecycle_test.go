package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

var allStatuses = []types.Status{
	types.StatusNew,
	types.StatusAssigned,
	types.StatusInProgress,
	types.StatusCompleted,
	types.StatusCancelled,
}

func TestValidateStatusTransition_Table(t *testing.T) {
	allowed := map[[2]types.Status]bool{
		{types.StatusNew, types.StatusInProgress}:       true,
		{types.StatusNew, types.StatusCancelled}:        true,
		{types.StatusAssigned, types.StatusInProgress}:  true,
		{types.StatusAssigned, types.StatusCompleted}:   true,
		{types.StatusAssigned, types.StatusCancelled}:   true,
		{types.StatusInProgress, types.StatusCompleted}: true,
		{types.StatusInProgress, types.StatusCancelled}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := ValidateStatusTransition(from, to)
			if allowed[[2]types.Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrInvalidState, "%s -> %s", from, to)
		}
	}
}

func TestValidateStatusTransition_NeverBackToNew(t *testing.T) {
	for _, from := range allStatuses {
		assert.ErrorIs(t, ValidateStatusTransition(from, types.StatusNew), apperr.ErrInvalidState)
	}
}

func TestAllowedTransitions(t *testing.T) {
	assert.Empty(t, AllowedTransitions(types.StatusCompleted))
	assert.ElementsMatch(t,
		[]types.Status{types.StatusCompleted, types.StatusCancelled},
		AllowedTransitions(types.StatusInProgress),
	)

	got := AllowedTransitions(types.StatusNew)
	got[0] = types.StatusCompleted
	assert.Equal(t, types.StatusInProgress, AllowedTransitions(types.StatusNew)[0], "callers must not mutate the table")
}

func TestStatusAfterAssign(t *testing.T) {
	assert.Equal(t, types.StatusAssigned, StatusAfterAssign(types.StatusNew))
	assert.Equal(t, types.StatusAssigned, StatusAfterAssign(types.StatusAssigned))
	assert.Equal(t, types.StatusInProgress, StatusAfterAssign(types.StatusInProgress))
}
