package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/internal/policy"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	ListVolunteers(ctx context.Context, activeOnly bool) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	// UpdateProfile writes only the profile columns named in update.
	UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error)
	// SetActive flips the activation flag without touching the profile.
	SetActive(ctx context.Context, id int, active bool) (types.User, error)
}

// RegisterInput is a new account submission.
type RegisterInput struct {
	Name         string             `json:"name" validate:"required"`
	Email        string             `json:"email" validate:"required,email"`
	Password     string             `json:"password" validate:"required,min=6"`
	Phone        string             `json:"phone" validate:"required"`
	Skills       []string           `json:"skills"`
	Location     types.UserLocation `json:"location"`
	Availability types.Availability `json:"availability" validate:"omitempty,oneof=fulltime parttime weekends flexible"`
}

// ProfileInput is a partial profile update; nil fields are left unchanged.
type ProfileInput struct {
	Name         *string             `json:"name"`
	Phone        *string             `json:"phone"`
	Skills       []string            `json:"skills"`
	Location     *types.UserLocation `json:"location"`
	Availability *types.Availability `json:"availability" validate:"omitempty,oneof=fulltime parttime weekends flexible"`
}

// UserService encapsulates account and volunteer directory use-cases.
type UserService struct {
	repo     UserRepository
	logger   *zap.Logger
	hashCost int
}

func NewUserService(repo UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger, hashCost: bcrypt.DefaultCost}
}

// Register creates an active volunteer account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (types.User, error) {
	return s.CreateUser(ctx, input, types.RoleVolunteer)
}

// CreateUser creates an active account with the given role. Administrators
// are only created through the command line.
func (s *UserService) CreateUser(ctx context.Context, input RegisterInput, role types.Role) (types.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	if err := validateStruct(input); err != nil {
		return types.User{}, err
	}
	if !role.Valid() {
		return types.User{}, apperr.Invalid("role", "must be one of: volunteer, admin")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.hashCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	availability := input.Availability
	if availability == "" {
		availability = types.AvailabilityFlexible
	}
	skills := input.Skills
	if skills == nil {
		skills = []string{}
	}

	user, err := s.repo.Create(ctx, types.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		Role:         role,
		Skills:       skills,
		Location:     input.Location,
		Availability: availability,
		IsActive:     true,
	})
	if err != nil {
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate checks credentials. Unknown emails, wrong passwords and
// deactivated accounts all fail with the same ErrAuth.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return types.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrAuth)
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return types.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrAuth)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, fmt.Errorf("invalid credentials: %w", apperr.ErrAuth)
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfile applies the non-nil fields of input to the user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, id int, input ProfileInput) (types.User, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}
	if input.Phone != nil {
		trimmed := strings.TrimSpace(*input.Phone)
		input.Phone = &trimmed
	}
	if err := validateStruct(input); err != nil {
		return types.User{}, err
	}
	// An explicitly blank name or phone is rejected rather than ignored.
	if input.Name != nil && *input.Name == "" {
		return types.User{}, apperr.Invalid("name", "must not be empty")
	}
	if input.Phone != nil && *input.Phone == "" {
		return types.User{}, apperr.Invalid("phone", "must not be empty")
	}

	updated, err := s.repo.UpdateProfile(ctx, id, types.ProfileUpdate{
		Name:         input.Name,
		Phone:        input.Phone,
		Skills:       input.Skills,
		Location:     input.Location,
		Availability: input.Availability,
	})
	if err != nil {
		return types.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	return updated, nil
}

// ListVolunteers returns active volunteers ordered by name.
func (s *UserService) ListVolunteers(ctx context.Context) ([]types.User, error) {
	return s.repo.ListVolunteers(ctx, true)
}

// GetVolunteer returns an active volunteer.
func (s *UserService) GetVolunteer(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, fmt.Errorf("load volunteer %d: %w", id, err)
	}
	if !user.IsActiveVolunteer() {
		return types.User{}, fmt.Errorf("volunteer %d: %w", id, apperr.ErrNotFound)
	}
	return user, nil
}

// SetActive activates or deactivates an account. Administrators only.
func (s *UserService) SetActive(ctx context.Context, p types.Principal, id int, active bool) (types.User, error) {
	if !policy.CanManageUsers(p) {
		return types.User{}, fmt.Errorf("change activation of user %d: %w", id, apperr.ErrForbidden)
	}
	updated, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return types.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	s.logger.Info("user activation changed",
		zap.Int("user_id", id),
		zap.Bool("active", active),
		zap.Int("actor_id", p.ID),
	)
	return updated, nil
}
