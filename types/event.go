package types

import "time"

// EventType names a lifecycle event published to the message queue.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestAssigned      EventType = "request.assigned"
	EventRequestStatusChanged EventType = "request.status_changed"
	EventRequestNoteAdded     EventType = "request.note_added"
	EventRequestDeleted       EventType = "request.deleted"
)

// RequestEvent describes a committed change to a help request.
type RequestEvent struct {
	// ID uniquely identifies the event for consumer-side deduplication.
	ID string `json:"id"`

	// Type is the kind of change.
	Type EventType `json:"type"`

	// RequestID identifies the changed request.
	RequestID int `json:"requestId"`

	// ActorID is the principal that caused the change; zero for anonymous submissions.
	ActorID int `json:"actorId,omitempty"`

	// Status is the request status after the change.
	Status Status `json:"status,omitempty"`

	// PreviousStatus is set for status changes.
	PreviousStatus Status `json:"previousStatus,omitempty"`

	// AssignedVolunteerID is the assignee after the change.
	AssignedVolunteerID *int `json:"assignedVolunteerId,omitempty"`

	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurredAt"`
}
