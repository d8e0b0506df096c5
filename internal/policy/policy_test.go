package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

var (
	admin     = types.Principal{ID: 1, Role: types.RoleAdmin}
	volunteer = types.Principal{ID: 2, Role: types.RoleVolunteer}
	stranger  = types.Principal{ID: 3, Role: types.Role("guest")}
)

func intPtr(v int) *int { return &v }

func request(status types.Status, assignee *int) types.Request {
	return types.Request{ID: 10, Status: status, AssignedVolunteerID: assignee}
}

func TestCanView(t *testing.T) {
	tests := []struct {
		name      string
		principal types.Principal
		request   types.Request
		want      bool
	}{
		{"admin sees everything", admin, request(types.StatusCompleted, intPtr(9)), true},
		{"volunteer sees new", volunteer, request(types.StatusNew, nil), true},
		{"volunteer sees own", volunteer, request(types.StatusInProgress, intPtr(2)), true},
		{"volunteer sees own completed", volunteer, request(types.StatusCompleted, intPtr(2)), true},
		{"volunteer blind to others", volunteer, request(types.StatusAssigned, intPtr(9)), false},
		{"volunteer blind to unassigned cancelled", volunteer, request(types.StatusCancelled, nil), false},
		{"unknown role", stranger, request(types.StatusNew, nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.principal, tt.request))
			assert.Equal(t, tt.want, CanAddNote(tt.principal, tt.request))
		})
	}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		name      string
		principal types.Principal
		request   types.Request
		target    *int
		wantErr   error
	}{
		{"volunteer self claim", volunteer, request(types.StatusNew, nil), nil, nil},
		{"volunteer explicit self", volunteer, request(types.StatusNew, nil), intPtr(2), nil},
		{"volunteer assigns other", volunteer, request(types.StatusNew, nil), intPtr(5), apperr.ErrForbidden},
		{"volunteer other on terminal is forbidden first", volunteer, request(types.StatusCompleted, nil), intPtr(5), apperr.ErrForbidden},
		{"volunteer on terminal", volunteer, request(types.StatusCancelled, nil), nil, apperr.ErrInvalidState},
		{"admin assigns anyone", admin, request(types.StatusInProgress, intPtr(4)), intPtr(5), nil},
		{"admin on completed", admin, request(types.StatusCompleted, intPtr(4)), intPtr(5), apperr.ErrInvalidState},
		{"unknown role", stranger, request(types.StatusNew, nil), nil, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanAssign(tt.principal, tt.request, tt.target)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCanChangeStatus(t *testing.T) {
	assert.True(t, CanChangeStatus(admin, request(types.StatusNew, nil)))
	assert.True(t, CanChangeStatus(volunteer, request(types.StatusAssigned, intPtr(2))))
	assert.False(t, CanChangeStatus(volunteer, request(types.StatusNew, nil)), "volunteer must assign first")
	assert.False(t, CanChangeStatus(volunteer, request(types.StatusAssigned, intPtr(9))))
	assert.False(t, CanChangeStatus(stranger, request(types.StatusAssigned, intPtr(3))))
}

func TestAdminOnly(t *testing.T) {
	assert.True(t, CanDelete(admin))
	assert.False(t, CanDelete(volunteer))
	assert.True(t, CanManageUsers(admin))
	assert.False(t, CanManageUsers(volunteer))
}
