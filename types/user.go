package types

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleVolunteer Role = "volunteer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleVolunteer || r == RoleAdmin
}

// Availability describes when a volunteer can take on requests.
type Availability string

const (
	AvailabilityFulltime Availability = "fulltime"
	AvailabilityParttime Availability = "parttime"
	AvailabilityWeekends Availability = "weekends"
	AvailabilityFlexible Availability = "flexible"
)

// UserLocation is the coarse home area of a volunteer.
type UserLocation struct {
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
}

// User represents an account in the system.
// It contains identity, role, volunteer profile and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's unique email address, stored lower-cased.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Phone is the contact phone number of the user.
	Phone string `json:"phone" db:"phone"`

	// Role indicates the user's authorization level ("volunteer", "admin").
	Role Role `json:"role" db:"role"`

	// Skills lists the volunteer's self-declared skills.
	Skills []string `json:"skills" db:"skills"`

	// Location is the volunteer's home area.
	Location UserLocation `json:"location" db:"location"`

	// Availability is the volunteer's declared availability.
	Availability Availability `json:"availability" db:"availability"`

	// IsActive is false for accounts deactivated by an administrator.
	// Inactive users cannot log in or be assigned to requests.
	IsActive bool `json:"isActive" db:"is_active"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsActiveVolunteer reports whether the user can hold a request assignment.
func (u User) IsActiveVolunteer() bool {
	return u.IsActive && u.Role == RoleVolunteer
}

// ProfileUpdate is a partial change to the self-service profile columns.
// Nil fields are left as stored. Role, email, password and activation are
// never touched by a profile update.
type ProfileUpdate struct {
	Name         *string
	Phone        *string
	Skills       []string
	Location     *UserLocation
	Availability *Availability
}

// Principal is the authenticated actor performing an action.
type Principal struct {
	ID   int
	Role Role
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsVolunteer reports whether the principal has the volunteer role.
func (p Principal) IsVolunteer() bool {
	return p.Role == RoleVolunteer
}

// VolunteerSummary is the denormalized view of a user attached to requests.
type VolunteerSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AuthorSummary is the denormalized view of a note author.
type AuthorSummary struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
