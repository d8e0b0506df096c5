package types

import "time"

// Status is the lifecycle state of a help request.
type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a recognized status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Category classifies the kind of help requested.
type Category string

const (
	CategoryMedical       Category = "medical"
	CategoryHumanitarian  Category = "humanitarian"
	CategoryEvacuation    Category = "evacuation"
	CategoryPsychological Category = "psychological"
	CategoryLegal         Category = "legal"
	CategoryTechnical     Category = "technical"
	CategoryTranslation   Category = "translation"
	CategoryOther         Category = "other"
)

// Priority is the urgency of a help request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Coordinates is a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RequestLocation is where help is needed.
type RequestLocation struct {
	Address     string       `json:"address"`
	City        string       `json:"city"`
	Region      string       `json:"region,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// ContactInfo identifies the person who asked for help.
type ContactInfo struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Email            string `json:"email,omitempty"`
	AlternateContact string `json:"alternateContact,omitempty"`
}

// Request is a help request submitted by a requester and worked on by a volunteer.
type Request struct {
	// ID is the unique identifier of the request.
	ID int `json:"id" db:"id"`

	// Title is a short summary of the help needed.
	Title string `json:"title" db:"title"`

	// Description is the full text of the request.
	Description string `json:"description" db:"description"`

	// Category classifies the request.
	Category Category `json:"category" db:"category"`

	// Priority is the urgency of the request.
	Priority Priority `json:"priority" db:"priority"`

	// Location is where help is needed.
	Location RequestLocation `json:"location" db:"location"`

	// ContactInfo identifies the requester.
	ContactInfo ContactInfo `json:"contactInfo" db:"contact_info"`

	// Status is the current lifecycle state.
	Status Status `json:"status" db:"status"`

	// AssignedVolunteerID references the volunteer holding the request, if any.
	AssignedVolunteerID *int `json:"assignedVolunteerId" db:"assigned_volunteer_id"`

	// Deadline is an informational due date; it is stored, not enforced.
	Deadline *time.Time `json:"deadline" db:"deadline"`

	// CreatedAt is the timestamp when the request was submitted.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent change.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// State returns the part of the request guarded by conditional updates.
func (r Request) State() RequestState {
	return RequestState{Status: r.Status, AssignedVolunteerID: r.AssignedVolunteerID}
}

// AssignedTo reports whether the request is held by the given user.
func (r Request) AssignedTo(userID int) bool {
	return r.AssignedVolunteerID != nil && *r.AssignedVolunteerID == userID
}

// RequestState is the (status, assignee) pair that lifecycle operations
// compare and swap atomically.
type RequestState struct {
	Status              Status
	AssignedVolunteerID *int
}

// Equal reports whether both states hold the same status and assignee.
func (s RequestState) Equal(other RequestState) bool {
	if s.Status != other.Status {
		return false
	}
	if s.AssignedVolunteerID == nil || other.AssignedVolunteerID == nil {
		return s.AssignedVolunteerID == nil && other.AssignedVolunteerID == nil
	}
	return *s.AssignedVolunteerID == *other.AssignedVolunteerID
}

// AssignedFilter restricts a listing by assignment.
type AssignedFilter string

const (
	AssignedAny  AssignedFilter = ""
	AssignedYes  AssignedFilter = "true"
	AssignedNo   AssignedFilter = "false"
	AssignedToMe AssignedFilter = "me"
)

// RequestFilter is the effective predicate of a request listing.
// Empty fields do not constrain the result.
type RequestFilter struct {
	Status   Status
	Category Category
	Priority Priority

	// Assigned narrows by assignment; AssignedToMe requires AssignedTo.
	Assigned   AssignedFilter
	AssignedTo int

	// VisibleTo, when non-zero, limits rows to new requests or requests
	// assigned to that volunteer.
	VisibleTo int
}

// RequestView is a request shaped for list responses.
type RequestView struct {
	Request
	AssignedVolunteer *VolunteerSummary `json:"assignedVolunteer"`
}

// RequestDetail is a request with its full note history, oldest first.
type RequestDetail struct {
	RequestView
	Notes []NoteView `json:"notes"`
}
