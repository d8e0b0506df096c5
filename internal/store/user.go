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

const userColumns = `id, name, email, password_hash, phone, role, skills, location, availability, is_active, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err := scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// ListVolunteers returns volunteers ordered by name. With activeOnly,
// deactivated accounts are skipped.
func (r *UserRepository) ListVolunteers(ctx context.Context, activeOnly bool) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1`
	if activeOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, types.RoleVolunteer)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Skills == nil {
		user.Skills = []string{}
	}

	skillsJSON, err := json.Marshal(user.Skills)
	if err != nil {
		return types.User{}, err
	}
	locationJSON, err := json.Marshal(user.Location)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (name, email, password_hash, phone, role, skills, location, availability, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Role,
		skillsJSON,
		locationJSON,
		user.Availability,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateError(err)
	}
	return user, nil
}

// UpdateProfile writes the profile columns present in update and leaves
// everything else, is_active included, as stored.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error) {
	var skillsJSON, locationJSON []byte
	if update.Skills != nil {
		encoded, err := json.Marshal(update.Skills)
		if err != nil {
			return types.User{}, err
		}
		skillsJSON = encoded
	}
	if update.Location != nil {
		encoded, err := json.Marshal(update.Location)
		if err != nil {
			return types.User{}, err
		}
		locationJSON = encoded
	}

	const query = `
		UPDATE users
		SET name = COALESCE($1, name),
			phone = COALESCE($2, phone),
			skills = COALESCE($3::jsonb, skills),
			location = COALESCE($4::jsonb, location),
			availability = COALESCE($5, availability),
			updated_at = $6
		WHERE id = $7
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		nullString(update.Name),
		nullString(update.Phone),
		nullBytes(skillsJSON),
		nullBytes(locationJSON),
		nullAvailability(update.Availability),
		time.Now().UTC(),
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, translateError(err)
	}
	return user, nil
}

// SetActive flips is_active in a single statement.
func (r *UserRepository) SetActive(ctx context.Context, id int, active bool) (types.User, error) {
	const query = `
		UPDATE users
		SET is_active = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, active, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullAvailability(v *types.Availability) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func nullBytes(v []byte) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(v), Valid: true}
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	var skillsJSON, locationJSON []byte
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Role,
		&skillsJSON,
		&locationJSON,
		&user.Availability,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return types.User{}, err
	}

	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &user.Skills); err != nil {
			return types.User{}, fmt.Errorf("decode skills of user %d: %w", user.ID, err)
		}
	}
	if len(locationJSON) > 0 {
		if err := json.Unmarshal(locationJSON, &user.Location); err != nil {
			return types.User{}, fmt.Errorf("decode location of user %d: %w", user.ID, err)
		}
	}
	if user.Skills == nil {
		user.Skills = []string{}
	}
	return user, nil
}
