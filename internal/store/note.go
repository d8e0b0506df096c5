package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/volunteer-hub/apiserver/types"
)

// NoteRepository handles persistence for request notes.
type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *NoteRepository) Create(ctx context.Context, note types.Note) (types.Note, error) {
	return insertNote(ctx, r.db, note)
}

// ListByRequest returns the notes of a request, oldest first.
func (r *NoteRepository) ListByRequest(ctx context.Context, requestID int) ([]types.Note, error) {
	const query = `
		SELECT id, text, request_id, author_id, created_at
		FROM notes
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]types.Note, 0)
	for rows.Next() {
		var note types.Note
		if err := rows.Scan(&note.ID, &note.Text, &note.RequestID, &note.AuthorID, &note.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func insertNote(ctx context.Context, q rowQuerier, note types.Note) (types.Note, error) {
	note.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO notes (text, request_id, author_id, created_at)
		SELECT $1, id, $3, $4 FROM requests WHERE id = $2
		RETURNING id`
	if err := q.QueryRowContext(ctx, query, note.Text, note.RequestID, note.AuthorID, note.CreatedAt).Scan(&note.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Note{}, ErrNotFound
		}
		return types.Note{}, translateError(err)
	}
	return note, nil
}
