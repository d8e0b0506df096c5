package types

import "time"

// Note is an append-only comment on a request. Lifecycle events are
// recorded as notes too.
type Note struct {
	// ID is the unique identifier of the note.
	ID int `json:"id" db:"id"`

	// Text is the note body.
	Text string `json:"text" db:"text"`

	// RequestID identifies the request that owns the note.
	RequestID int `json:"requestId" db:"request_id"`

	// AuthorID identifies the user who wrote the note or triggered the event.
	AuthorID int `json:"authorId" db:"author_id"`

	// CreatedAt is the timestamp when the note was appended.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NoteView is a note shaped for API responses.
type NoteView struct {
	Note
	Author *AuthorSummary `json:"author"`
}
