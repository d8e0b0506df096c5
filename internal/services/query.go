package services

import (
	"context"
	"errors"
	"strings"

	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

// ListParams are the optional query parameters of a request listing.
type ListParams struct {
	Status   string
	Category string
	Priority string
	Assigned string
}

// BuildFilter turns explicit listing parameters into the effective
// predicate for p. Volunteers are additionally limited to new requests and
// requests they hold. Unknown assigned values are ignored.
func BuildFilter(p types.Principal, params ListParams) types.RequestFilter {
	filter := types.RequestFilter{
		Status:   types.Status(strings.TrimSpace(params.Status)),
		Category: types.Category(strings.TrimSpace(params.Category)),
		Priority: types.Priority(strings.TrimSpace(params.Priority)),
	}

	switch types.AssignedFilter(strings.ToLower(strings.TrimSpace(params.Assigned))) {
	case types.AssignedYes:
		filter.Assigned = types.AssignedYes
	case types.AssignedNo:
		filter.Assigned = types.AssignedNo
	case types.AssignedToMe:
		filter.Assigned = types.AssignedToMe
		filter.AssignedTo = p.ID
	}

	if !p.IsAdmin() {
		filter.VisibleTo = p.ID
	}
	return filter
}

// userCache memoizes user lookups while shaping one response.
type userCache struct {
	users UserRepository
	seen  map[int]*types.User
}

func newUserCache(users UserRepository) *userCache {
	return &userCache{users: users, seen: make(map[int]*types.User)}
}

// get returns nil for users that no longer resolve.
func (c *userCache) get(ctx context.Context, id int) (*types.User, error) {
	if user, ok := c.seen[id]; ok {
		return user, nil
	}
	user, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.seen[id] = nil
			return nil, nil
		}
		return nil, err
	}
	c.seen[id] = &user
	return &user, nil
}

func (c *userCache) shapeRequest(ctx context.Context, request types.Request) (types.RequestView, error) {
	view := types.RequestView{Request: request}
	if request.AssignedVolunteerID == nil {
		return view, nil
	}
	user, err := c.get(ctx, *request.AssignedVolunteerID)
	if err != nil {
		return types.RequestView{}, err
	}
	if user != nil {
		view.AssignedVolunteer = &types.VolunteerSummary{
			ID:    user.ID,
			Name:  user.Name,
			Phone: user.Phone,
			Email: user.Email,
		}
	}
	return view, nil
}

func (c *userCache) shapeNote(ctx context.Context, note types.Note) (types.NoteView, error) {
	view := types.NoteView{Note: note}
	user, err := c.get(ctx, note.AuthorID)
	if err != nil {
		return types.NoteView{}, err
	}
	if user != nil {
		view.Author = &types.AuthorSummary{ID: user.ID, Name: user.Name}
	}
	return view, nil
}
