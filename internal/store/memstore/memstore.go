// Package memstore is an in-memory entity store with the same semantics as
// the Postgres repositories. It backs tests and local development.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

// Store holds users, requests and notes behind one mutex.
type Store struct {
	mu sync.Mutex

	users    map[int]types.User
	requests map[int]types.Request
	notes    []types.Note

	nextUserID    int
	nextRequestID int
	nextNoteID    int

	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[int]types.User),
		requests: make(map[int]types.Request),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Requests returns the request repository view of the store.
func (s *Store) Requests() *RequestRepository { return &RequestRepository{s: s} }

// Notes returns the note repository view of the store.
func (s *Store) Notes() *NoteRepository { return &NoteRepository{s: s} }

// UserRepository is the in-memory user repository.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, apperr.ErrNotFound
	}
	return copyUser(user), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = normalizeEmail(email)
	for _, user := range r.s.users {
		if user.Email == email {
			return copyUser(user), nil
		}
	}
	return types.User{}, apperr.ErrNotFound
}

func (r *UserRepository) ListVolunteers(ctx context.Context, activeOnly bool) ([]types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]types.User, 0)
	for _, user := range r.s.users {
		if user.Role != types.RoleVolunteer || (activeOnly && !user.IsActive) {
			continue
		}
		users = append(users, copyUser(user))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if r.s.emailTaken(user.Email) {
		return types.User{}, apperr.ErrDuplicate
	}

	r.s.nextUserID++
	now := r.s.now()
	user.ID = r.s.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Skills == nil {
		user.Skills = []string{}
	}
	r.s.users[user.ID] = copyUser(user)
	return copyUser(user), nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, apperr.ErrNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Skills != nil {
		user.Skills = update.Skills
	}
	if update.Location != nil {
		user.Location = *update.Location
	}
	if update.Availability != nil {
		user.Availability = *update.Availability
	}
	user.UpdatedAt = r.s.now()
	r.s.users[id] = copyUser(user)
	return copyUser(user), nil
}

func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, apperr.ErrNotFound
	}
	user.IsActive = active
	user.UpdatedAt = r.s.now()
	r.s.users[id] = user
	return copyUser(user), nil
}

// RequestRepository is the in-memory request repository.
type RequestRepository struct {
	s *Store
}

func (r *RequestRepository) List(ctx context.Context, filter types.RequestFilter) ([]types.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	requests := make([]types.Request, 0)
	for _, request := range r.s.requests {
		if matches(request, filter) {
			requests = append(requests, copyRequest(request))
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.After(requests[j].CreatedAt)
		}
		return requests[i].ID > requests[j].ID
	})
	return requests, nil
}

func (r *RequestRepository) Get(ctx context.Context, id int) (types.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	request, ok := r.s.requests[id]
	if !ok {
		return types.Request{}, apperr.ErrNotFound
	}
	return copyRequest(request), nil
}

func (r *RequestRepository) Create(ctx context.Context, request types.Request) (types.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextRequestID++
	now := r.s.now()
	request.ID = r.s.nextRequestID
	request.CreatedAt = now
	request.UpdatedAt = now
	r.s.requests[request.ID] = copyRequest(request)
	return copyRequest(request), nil
}

// ConditionalUpdate compares the stored (status, assignee) with expected and
// swaps in next under the store lock, appending note in the same critical
// section.
func (r *RequestRepository) ConditionalUpdate(
	ctx context.Context,
	id int,
	expected types.RequestState,
	next types.RequestState,
	note *types.Note,
) (types.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	request, ok := r.s.requests[id]
	if !ok {
		return types.Request{}, apperr.ErrNotFound
	}
	if !request.State().Equal(expected) {
		return types.Request{}, apperr.ErrConflict
	}

	request.Status = next.Status
	request.AssignedVolunteerID = copyIntPtr(next.AssignedVolunteerID)
	request.UpdatedAt = r.s.now()
	r.s.requests[id] = request

	if note != nil {
		n := *note
		n.RequestID = id
		r.s.appendNote(n)
	}
	return copyRequest(request), nil
}

// Delete removes a request and its notes.
func (r *RequestRepository) Delete(ctx context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.s.requests, id)

	kept := r.s.notes[:0]
	for _, note := range r.s.notes {
		if note.RequestID != id {
			kept = append(kept, note)
		}
	}
	r.s.notes = kept
	return nil
}

// NoteRepository is the in-memory note repository.
type NoteRepository struct {
	s *Store
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.requests[note.RequestID]; !ok {
		return types.Note{}, apperr.ErrNotFound
	}
	return r.s.appendNote(note), nil
}

func (r *NoteRepository) ListByRequest(ctx context.Context, requestID int) ([]types.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notes := make([]types.Note, 0)
	for _, note := range r.s.notes {
		if note.RequestID == requestID {
			notes = append(notes, note)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

// appendNote requires s.mu to be held.
func (s *Store) appendNote(note types.Note) types.Note {
	s.nextNoteID++
	note.ID = s.nextNoteID
	note.CreatedAt = s.now()
	s.notes = append(s.notes, note)
	return note
}

// emailTaken requires s.mu to be held.
func (s *Store) emailTaken(email string) bool {
	for _, user := range s.users {
		if user.Email == email {
			return true
		}
	}
	return false
}

func matches(request types.Request, filter types.RequestFilter) bool {
	if filter.Status != "" && request.Status != filter.Status {
		return false
	}
	if filter.Category != "" && request.Category != filter.Category {
		return false
	}
	if filter.Priority != "" && request.Priority != filter.Priority {
		return false
	}
	switch filter.Assigned {
	case types.AssignedYes:
		if request.AssignedVolunteerID == nil {
			return false
		}
	case types.AssignedNo:
		if request.AssignedVolunteerID != nil {
			return false
		}
	case types.AssignedToMe:
		if !request.AssignedTo(filter.AssignedTo) {
			return false
		}
	}
	if filter.VisibleTo != 0 && request.Status != types.StatusNew && !request.AssignedTo(filter.VisibleTo) {
		return false
	}
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func copyUser(user types.User) types.User {
	user.Skills = append([]string{}, user.Skills...)
	return user
}

func copyRequest(request types.Request) types.Request {
	request.AssignedVolunteerID = copyIntPtr(request.AssignedVolunteerID)
	if request.Deadline != nil {
		deadline := *request.Deadline
		request.Deadline = &deadline
	}
	if request.Location.Coordinates != nil {
		coords := *request.Location.Coordinates
		request.Location.Coordinates = &coords
	}
	return request
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
