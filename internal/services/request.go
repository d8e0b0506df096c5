package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/internal/lifecycle"
	"github.com/volunteer-hub/apiserver/internal/metrics"
	"github.com/volunteer-hub/apiserver/internal/policy"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
)

// RequestRepository defines persistence operations for help requests.
type RequestRepository interface {
	Create(ctx context.Context, request types.Request) (types.Request, error)
	Get(ctx context.Context, id int) (types.Request, error)
	List(ctx context.Context, filter types.RequestFilter) ([]types.Request, error)
	// ConditionalUpdate atomically replaces the (status, assignee) pair of a
	// request if it still equals expected, appending note in the same unit
	// of work. It returns apperr.ErrConflict when the pair has moved on.
	ConditionalUpdate(ctx context.Context, id int, expected, next types.RequestState, note *types.Note) (types.Request, error)
	Delete(ctx context.Context, id int) error
}

// NoteRepository defines persistence operations for request notes.
type NoteRepository interface {
	Create(ctx context.Context, note types.Note) (types.Note, error)
	ListByRequest(ctx context.Context, requestID int) ([]types.Note, error)
}

// EventPublisher hands committed lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishRequestEvent(ctx context.Context, event types.RequestEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishRequestEvent(context.Context, types.RequestEvent) error { return nil }

// Operation names used for metrics and logs.
const (
	opCreate    = "create"
	opAssign    = "assign"
	opSetStatus = "set_status"
	opAddNote   = "add_note"
	opGet       = "get"
	opList      = "list"
	opDelete    = "delete"
)

// CreateRequestInput is a public help request submission.
type CreateRequestInput struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"required"`
	Category    types.Category `json:"category" validate:"required,oneof=medical humanitarian evacuation psychological legal technical translation other"`
	Priority    types.Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Location    LocationInput  `json:"location"`
	ContactInfo ContactInput   `json:"contactInfo"`
	// Deadline accepts RFC 3339 timestamps or plain dates (YYYY-MM-DD).
	Deadline string `json:"deadline"`
}

type LocationInput struct {
	Address     string             `json:"address" validate:"required"`
	City        string             `json:"city" validate:"required"`
	Region      string             `json:"region"`
	Coordinates *types.Coordinates `json:"coordinates"`
}

type ContactInput struct {
	Name             string `json:"name" validate:"required"`
	Phone            string `json:"phone" validate:"required"`
	Email            string `json:"email" validate:"omitempty,email"`
	AlternateContact string `json:"alternateContact"`
}

// RequestOption configures a RequestService.
type RequestOption func(*RequestService)

// WithEventPublisher publishes lifecycle events after each committed change.
func WithEventPublisher(p EventPublisher) RequestOption {
	return func(s *RequestService) { s.events = p }
}

// WithMetrics records operation outcomes.
func WithMetrics(r metrics.Recorder) RequestOption {
	return func(s *RequestService) { s.metrics = r }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) RequestOption {
	return func(s *RequestService) { s.logger = l }
}

// RequestService applies the help request lifecycle: creation, assignment,
// status changes and notes, each checked against the authorization policy
// and the transition table.
type RequestService struct {
	requests RequestRepository
	notes    NoteRepository
	users    UserRepository
	events   EventPublisher
	metrics  metrics.Recorder
	logger   *zap.Logger
}

func NewRequestService(requests RequestRepository, notes NoteRepository, users UserRepository, opts ...RequestOption) *RequestService {
	s := &RequestService{
		requests: requests,
		notes:    notes,
		users:    users,
		events:   nopPublisher{},
		metrics:  metrics.Nop{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new request. No principal is needed.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (_ types.RequestView, err error) {
	defer func() { s.record(opCreate, err) }()

	input = trimCreateInput(input)
	if err := validateStruct(input); err != nil {
		return types.RequestView{}, err
	}
	deadline, err := parseDeadline(input.Deadline)
	if err != nil {
		return types.RequestView{}, err
	}

	priority := input.Priority
	if priority == "" {
		priority = types.PriorityMedium
	}

	created, err := s.requests.Create(ctx, types.Request{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    priority,
		Location: types.RequestLocation{
			Address:     input.Location.Address,
			City:        input.Location.City,
			Region:      input.Location.Region,
			Coordinates: input.Location.Coordinates,
		},
		ContactInfo: types.ContactInfo{
			Name:             input.ContactInfo.Name,
			Phone:            input.ContactInfo.Phone,
			Email:            input.ContactInfo.Email,
			AlternateContact: input.ContactInfo.AlternateContact,
		},
		Status:   types.StatusNew,
		Deadline: deadline,
	})
	if err != nil {
		return types.RequestView{}, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("request created",
		zap.Int("request_id", created.ID),
		zap.String("category", string(created.Category)),
		zap.String("priority", string(created.Priority)),
	)
	s.publish(ctx, newEvent(types.EventRequestCreated, created, 0))
	return types.RequestView{Request: created}, nil
}

// Assign puts a volunteer on a request. A nil volunteerID lets a volunteer
// claim the request; administrators must name the volunteer.
//
// New requests become assigned; requests already in progress keep their
// status and only change hands. Assigning the current holder again changes
// nothing and records no note or event.
func (s *RequestService) Assign(ctx context.Context, p types.Principal, id int, volunteerID *int) (_ types.RequestView, err error) {
	defer func() { s.record(opAssign, err) }()

	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return types.RequestView{}, fmt.Errorf("load request %d: %w", id, err)
	}
	if err := policy.CanAssign(p, request, volunteerID); err != nil {
		return types.RequestView{}, err
	}

	targetID := p.ID
	switch {
	case volunteerID != nil:
		targetID = *volunteerID
	case p.IsAdmin():
		return types.RequestView{}, apperr.Invalid("volunteerId", "is required when an administrator assigns")
	}
	volunteer, err := s.users.GetByID(ctx, targetID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return types.RequestView{}, fmt.Errorf("load volunteer %d: %w", targetID, err)
	}
	if err != nil || !volunteer.IsActiveVolunteer() {
		return types.RequestView{}, fmt.Errorf("volunteer %d: %w", targetID, apperr.ErrNotFound)
	}

	if p.IsVolunteer() && request.AssignedVolunteerID != nil && !request.AssignedTo(p.ID) {
		return types.RequestView{}, fmt.Errorf("request %d is already claimed: %w", id, apperr.ErrConflict)
	}

	next := types.RequestState{
		Status:              lifecycle.StatusAfterAssign(request.Status),
		AssignedVolunteerID: &targetID,
	}
	if next.Status == request.Status && request.AssignedTo(targetID) {
		return newUserCache(s.users).shapeRequest(ctx, request)
	}
	note := &types.Note{
		Text:     fmt.Sprintf("Assigned to %s", volunteer.Name),
		AuthorID: p.ID,
	}
	updated, err := s.requests.ConditionalUpdate(ctx, id, request.State(), next, note)
	if err != nil {
		return types.RequestView{}, fmt.Errorf("assign request %d: %w", id, err)
	}

	s.logger.Info("volunteer assigned",
		zap.Int("request_id", id),
		zap.Int("volunteer_id", targetID),
		zap.Int("actor_id", p.ID),
		zap.String("status", string(updated.Status)),
	)
	s.publish(ctx, newEvent(types.EventRequestAssigned, updated, p.ID))
	return newUserCache(s.users).shapeRequest(ctx, updated)
}

// SetStatus moves a request to status, recording the change as a note.
func (s *RequestService) SetStatus(ctx context.Context, p types.Principal, id int, status types.Status) (_ types.RequestView, err error) {
	defer func() { s.record(opSetStatus, err) }()

	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return types.RequestView{}, fmt.Errorf("load request %d: %w", id, err)
	}
	if !status.Valid() {
		return types.RequestView{}, apperr.Invalid("status", "must be one of: new, assigned, in_progress, completed, cancelled")
	}
	if !policy.CanChangeStatus(p, request) {
		return types.RequestView{}, fmt.Errorf("change status of request %d: %w", id, apperr.ErrForbidden)
	}
	if err := lifecycle.ValidateStatusTransition(request.Status, status); err != nil {
		return types.RequestView{}, err
	}

	next := types.RequestState{
		Status:              status,
		AssignedVolunteerID: request.AssignedVolunteerID,
	}
	note := &types.Note{
		Text:     fmt.Sprintf("Status changed from %s to %s", request.Status, status),
		AuthorID: p.ID,
	}
	updated, err := s.requests.ConditionalUpdate(ctx, id, request.State(), next, note)
	if err != nil {
		return types.RequestView{}, fmt.Errorf("set status of request %d: %w", id, err)
	}

	s.logger.Info("request status changed",
		zap.Int("request_id", id),
		zap.String("from", string(request.Status)),
		zap.String("to", string(status)),
		zap.Int("actor_id", p.ID),
	)
	event := newEvent(types.EventRequestStatusChanged, updated, p.ID)
	event.PreviousStatus = request.Status
	s.publish(ctx, event)
	return newUserCache(s.users).shapeRequest(ctx, updated)
}

// AddNote appends a user-authored note. Notes stay open after a request
// reaches a terminal status.
func (s *RequestService) AddNote(ctx context.Context, p types.Principal, id int, text string) (_ types.NoteView, err error) {
	defer func() { s.record(opAddNote, err) }()

	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return types.NoteView{}, fmt.Errorf("load request %d: %w", id, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return types.NoteView{}, apperr.Invalid("text", "is required")
	}
	if !policy.CanAddNote(p, request) {
		return types.NoteView{}, fmt.Errorf("add note to request %d: %w", id, apperr.ErrForbidden)
	}

	note, err := s.notes.Create(ctx, types.Note{
		Text:      text,
		RequestID: id,
		AuthorID:  p.ID,
	})
	if err != nil {
		return types.NoteView{}, fmt.Errorf("add note to request %d: %w", id, err)
	}

	s.publish(ctx, newEvent(types.EventRequestNoteAdded, request, p.ID))
	return newUserCache(s.users).shapeNote(ctx, note)
}

// Get returns a request with its notes, oldest first.
func (s *RequestService) Get(ctx context.Context, p types.Principal, id int) (_ types.RequestDetail, err error) {
	defer func() { s.record(opGet, err) }()

	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return types.RequestDetail{}, fmt.Errorf("load request %d: %w", id, err)
	}
	if !policy.CanView(p, request) {
		return types.RequestDetail{}, fmt.Errorf("view request %d: %w", id, apperr.ErrForbidden)
	}

	notes, err := s.notes.ListByRequest(ctx, id)
	if err != nil {
		return types.RequestDetail{}, fmt.Errorf("list notes of request %d: %w", id, err)
	}

	cache := newUserCache(s.users)
	view, err := cache.shapeRequest(ctx, request)
	if err != nil {
		return types.RequestDetail{}, err
	}
	detail := types.RequestDetail{RequestView: view, Notes: make([]types.NoteView, 0, len(notes))}
	for _, note := range notes {
		noteView, err := cache.shapeNote(ctx, note)
		if err != nil {
			return types.RequestDetail{}, err
		}
		detail.Notes = append(detail.Notes, noteView)
	}
	return detail, nil
}

// List returns the requests p may see that match params, newest first.
func (s *RequestService) List(ctx context.Context, p types.Principal, params ListParams) (_ []types.RequestView, err error) {
	defer func() { s.record(opList, err) }()

	requests, err := s.requests.List(ctx, BuildFilter(p, params))
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	cache := newUserCache(s.users)
	views := make([]types.RequestView, 0, len(requests))
	for _, request := range requests {
		if !policy.CanView(p, request) {
			continue
		}
		view, err := cache.shapeRequest(ctx, request)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// Delete removes a request and its notes. Only administrators may delete.
func (s *RequestService) Delete(ctx context.Context, p types.Principal, id int) (err error) {
	defer func() { s.record(opDelete, err) }()

	if !policy.CanDelete(p) {
		return fmt.Errorf("delete request %d: %w", id, apperr.ErrForbidden)
	}
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load request %d: %w", id, err)
	}
	if err := s.requests.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete request %d: %w", id, err)
	}

	s.logger.Info("request deleted", zap.Int("request_id", id), zap.Int("actor_id", p.ID))
	s.publish(ctx, newEvent(types.EventRequestDeleted, request, p.ID))
	return nil
}

func (s *RequestService) publish(ctx context.Context, event types.RequestEvent) {
	err := s.events.PublishRequestEvent(ctx, event)
	s.metrics.RecordEventPublish(string(event.Type), err)
	if err != nil {
		s.logger.Warn("publish request event failed",
			zap.String("event_type", string(event.Type)),
			zap.Int("request_id", event.RequestID),
			zap.Error(err),
		)
	}
}

func (s *RequestService) record(op string, err error) {
	outcome := outcomeOf(err)
	s.metrics.RecordOperation(op, outcome)
	if outcome == metrics.OutcomeError {
		s.logger.Error("request operation failed", zap.String("operation", op), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, apperr.ErrValidation):
		return metrics.OutcomeValidation
	case errors.Is(err, apperr.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return metrics.OutcomeForbidden
	case errors.Is(err, apperr.ErrInvalidState):
		return metrics.OutcomeInvalidState
	case errors.Is(err, apperr.ErrConflict):
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeError
	}
}

func newEvent(eventType types.EventType, request types.Request, actorID int) types.RequestEvent {
	return types.RequestEvent{
		ID:                  uuid.NewString(),
		Type:                eventType,
		RequestID:           request.ID,
		ActorID:             actorID,
		Status:              request.Status,
		AssignedVolunteerID: request.AssignedVolunteerID,
		OccurredAt:          time.Now().UTC(),
	}
}

func trimCreateInput(input CreateRequestInput) CreateRequestInput {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = types.Category(strings.TrimSpace(string(input.Category)))
	input.Priority = types.Priority(strings.TrimSpace(string(input.Priority)))
	input.Location.Address = strings.TrimSpace(input.Location.Address)
	input.Location.City = strings.TrimSpace(input.Location.City)
	input.Location.Region = strings.TrimSpace(input.Location.Region)
	input.ContactInfo.Name = strings.TrimSpace(input.ContactInfo.Name)
	input.ContactInfo.Phone = strings.TrimSpace(input.ContactInfo.Phone)
	input.ContactInfo.Email = strings.TrimSpace(input.ContactInfo.Email)
	input.ContactInfo.AlternateContact = strings.TrimSpace(input.ContactInfo.AlternateContact)
	input.Deadline = strings.TrimSpace(input.Deadline)
	return input
}

func parseDeadline(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Invalid("deadline", "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}
