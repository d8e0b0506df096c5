// Package policy answers whether a principal may act on a help request.
// Every function is pure; callers load the request and the principal first.
package policy

import (
	"fmt"

	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

// CanView reports whether p may see r. Volunteers see unclaimed requests
// and the ones they hold.
func CanView(p types.Principal, r types.Request) bool {
	switch p.Role {
	case types.RoleAdmin:
		return true
	case types.RoleVolunteer:
		return r.Status == types.StatusNew || r.AssignedTo(p.ID)
	default:
		return false
	}
}

// CanAssign checks whether p may assign target to r. A nil target means the
// principal is claiming the request for themself.
func CanAssign(p types.Principal, r types.Request, target *int) error {
	switch p.Role {
	case types.RoleAdmin:
	case types.RoleVolunteer:
		if target != nil && *target != p.ID {
			return fmt.Errorf("volunteers may only assign themselves: %w", apperr.ErrForbidden)
		}
	default:
		return fmt.Errorf("role %q cannot assign volunteers: %w", p.Role, apperr.ErrForbidden)
	}
	if r.Status.Terminal() {
		return fmt.Errorf("cannot assign a %s request: %w", r.Status, apperr.ErrInvalidState)
	}
	return nil
}

// CanChangeStatus reports whether p may move r to another status. A
// volunteer must hold the request first.
func CanChangeStatus(p types.Principal, r types.Request) bool {
	switch p.Role {
	case types.RoleAdmin:
		return true
	case types.RoleVolunteer:
		return r.AssignedTo(p.ID)
	default:
		return false
	}
}

// CanAddNote reports whether p may append a note to r.
func CanAddNote(p types.Principal, r types.Request) bool {
	return CanView(p, r)
}

// CanDelete reports whether p may delete requests.
func CanDelete(p types.Principal) bool {
	return p.IsAdmin()
}

// CanManageUsers reports whether p may activate or deactivate accounts.
func CanManageUsers(p types.Principal) bool {
	return p.IsAdmin()
}
