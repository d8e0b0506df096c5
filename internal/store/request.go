package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volunteer-hub/apiserver/types"
)

const requestColumns = `id, title, description, category, priority, location, contact_info, status, assigned_volunteer_id, deadline, created_at, updated_at`

// RequestRepository handles persistence for help requests.
type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// List returns requests matching filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter types.RequestFilter) ([]types.Request, error) {
	where, args := buildRequestWhere(filter)
	query := `SELECT ` + requestColumns + ` FROM requests`
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]types.Request, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepository) Get(ctx context.Context, id int) (types.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Request{}, ErrNotFound
		}
		return types.Request{}, err
	}
	return request, nil
}

func (r *RequestRepository) Create(ctx context.Context, request types.Request) (types.Request, error) {
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now

	locationJSON, err := json.Marshal(request.Location)
	if err != nil {
		return types.Request{}, err
	}
	contactJSON, err := json.Marshal(request.ContactInfo)
	if err != nil {
		return types.Request{}, err
	}

	const query = `
		INSERT INTO requests (title, description, category, priority, location, contact_info, status, assigned_volunteer_id, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		request.Title,
		request.Description,
		request.Category,
		request.Priority,
		locationJSON,
		contactJSON,
		request.Status,
		request.AssignedVolunteerID,
		request.Deadline,
		request.CreatedAt,
		request.UpdatedAt,
	).Scan(&request.ID); err != nil {
		return types.Request{}, translateError(err)
	}
	return request, nil
}

// ConditionalUpdate moves request id from expected to next in one UPDATE
// guarded by the expected (status, assignee) pair. When note is non-nil it
// is inserted in the same transaction. A request whose state no longer
// matches expected yields ErrConflict.
func (r *RequestRepository) ConditionalUpdate(
	ctx context.Context,
	id int,
	expected types.RequestState,
	next types.RequestState,
	note *types.Note,
) (types.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Request{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	query := `
		UPDATE requests
		SET status = $1,
			assigned_volunteer_id = $2,
			updated_at = $3
		WHERE id = $4
			AND status = $5
			AND assigned_volunteer_id IS NOT DISTINCT FROM $6::integer
		RETURNING ` + requestColumns
	updated, err := scanRequest(tx.QueryRowContext(
		ctx,
		query,
		next.Status,
		next.AssignedVolunteerID,
		now,
		id,
		expected.Status,
		expected.AssignedVolunteerID,
	))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return types.Request{}, err
		}
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM requests WHERE id = $1)`, id).Scan(&exists); err != nil {
			return types.Request{}, err
		}
		if !exists {
			return types.Request{}, ErrNotFound
		}
		return types.Request{}, ErrConflict
	}

	if note != nil {
		note.RequestID = id
		if _, err := insertNote(ctx, tx, *note); err != nil {
			return types.Request{}, fmt.Errorf("append audit note: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Request{}, err
	}
	return updated, nil
}

// Delete removes a request; its notes are removed by the foreign key cascade.
func (r *RequestRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM requests WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildRequestWhere(filter types.RequestFilter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = "+arg(filter.Category))
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = "+arg(filter.Priority))
	}
	switch filter.Assigned {
	case types.AssignedYes:
		clauses = append(clauses, "assigned_volunteer_id IS NOT NULL")
	case types.AssignedNo:
		clauses = append(clauses, "assigned_volunteer_id IS NULL")
	case types.AssignedToMe:
		clauses = append(clauses, "assigned_volunteer_id = "+arg(filter.AssignedTo))
	}
	if filter.VisibleTo != 0 {
		clauses = append(clauses, fmt.Sprintf("(status = %s OR assigned_volunteer_id = %s)", arg(types.StatusNew), arg(filter.VisibleTo)))
	}

	return strings.Join(clauses, " AND "), args
}

func scanRequest(row rowScanner) (types.Request, error) {
	var request types.Request
	var locationJSON, contactJSON []byte
	var assigned sql.NullInt64
	var deadline sql.NullTime
	if err := row.Scan(
		&request.ID,
		&request.Title,
		&request.Description,
		&request.Category,
		&request.Priority,
		&locationJSON,
		&contactJSON,
		&request.Status,
		&assigned,
		&deadline,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return types.Request{}, err
	}

	if len(locationJSON) > 0 {
		if err := json.Unmarshal(locationJSON, &request.Location); err != nil {
			return types.Request{}, fmt.Errorf("decode location of request %d: %w", request.ID, err)
		}
	}
	if len(contactJSON) > 0 {
		if err := json.Unmarshal(contactJSON, &request.ContactInfo); err != nil {
			return types.Request{}, fmt.Errorf("decode contact of request %d: %w", request.ID, err)
		}
	}
	if assigned.Valid {
		id := int(assigned.Int64)
		request.AssignedVolunteerID = &id
	}
	if deadline.Valid {
		t := deadline.Time
		request.Deadline = &t
	}
	return request, nil
}
