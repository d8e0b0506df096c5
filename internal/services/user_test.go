package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.users.Register(ctx, RegisterInput{
		Name:     " Vera ",
		Email:    "Vera@Example.com",
		Password: "secret123",
		Phone:    "555-0101",
		Skills:   []string{"first aid"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Vera", user.Name)
	assert.Equal(t, "vera@example.com", user.Email)
	assert.Equal(t, types.RoleVolunteer, user.Role)
	assert.Equal(t, types.AvailabilityFlexible, user.Availability)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret123", user.PasswordHash)

	_, err = f.users.Register(ctx, RegisterInput{
		Name:     "Other",
		Email:    "vera@example.com",
		Password: "secret123",
		Phone:    "555",
	})
	assert.ErrorIs(t, err, apperr.ErrDuplicate)
}

func TestUserService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{"missing name", RegisterInput{Email: "a@b.io", Password: "secret1", Phone: "1"}, "name"},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "secret1", Phone: "1"}, "email"},
		{"short password", RegisterInput{Name: "A", Email: "a@b.io", Password: "123", Phone: "1"}, "password"},
		{"missing phone", RegisterInput{Name: "A", Email: "a@b.io", Password: "secret1"}, "phone"},
		{"bad availability", RegisterInput{Name: "A", Email: "a@b.io", Password: "secret1", Phone: "1", Availability: "never"}, "availability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.users.Register(context.Background(), tt.input)
			require.ErrorIs(t, err, apperr.ErrValidation)

			verr, ok := err.(*apperr.ValidationError)
			require.True(t, ok)
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
}

func TestUserService_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	vera := f.user(t, "vera", types.RoleVolunteer)
	admin := f.user(t, "adam", types.RoleAdmin)

	user, err := f.users.Authenticate(ctx, " VERA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, vera.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "vera@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = f.users.Authenticate(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = f.users.SetActive(ctx, admin, vera.ID, false)
	require.NoError(t, err)
	_, err = f.users.Authenticate(ctx, "vera@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	vera := f.user(t, "vera", types.RoleVolunteer)

	name := "Vera K."
	availability := types.AvailabilityWeekends
	updated, err := f.users.UpdateProfile(ctx, vera.ID, ProfileInput{
		Name:         &name,
		Skills:       []string{"driving"},
		Location:     &types.UserLocation{City: "Lviv"},
		Availability: &availability,
	})
	require.NoError(t, err)
	assert.Equal(t, "Vera K.", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone, "phone untouched")
	assert.Equal(t, []string{"driving"}, updated.Skills)
	assert.Equal(t, "Lviv", updated.Location.City)
	assert.Equal(t, types.AvailabilityWeekends, updated.Availability)

	blank := "  "
	_, err = f.users.UpdateProfile(ctx, vera.ID, ProfileInput{Phone: &blank})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	bad := types.Availability("sometimes")
	_, err = f.users.UpdateProfile(ctx, vera.ID, ProfileInput{Availability: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.users.UpdateProfile(ctx, 999, ProfileInput{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserService_Volunteers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	vera := f.user(t, "vera", types.RoleVolunteer)
	bob := f.user(t, "bob", types.RoleVolunteer)
	admin := f.user(t, "adam", types.RoleAdmin)

	_, err := f.users.SetActive(ctx, vera, bob.ID, false)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.users.SetActive(ctx, admin, 999, false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	deactivated, err := f.users.SetActive(ctx, admin, bob.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	list, err := f.users.ListVolunteers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, vera.ID, list[0].ID)

	_, err = f.users.GetVolunteer(ctx, bob.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = f.users.GetVolunteer(ctx, admin.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.users.GetVolunteer(ctx, vera.ID)
	require.NoError(t, err)
	assert.Equal(t, "vera", got.Name)
}

// deactivatingUsers deactivates target just before a profile write lands,
// as a concurrent admin request would.
type deactivatingUsers struct {
	UserRepository
	target int
}

func (r deactivatingUsers) UpdateProfile(ctx context.Context, id int, update types.ProfileUpdate) (types.User, error) {
	if _, err := r.UserRepository.SetActive(ctx, r.target, false); err != nil {
		return types.User{}, err
	}
	return r.UserRepository.UpdateProfile(ctx, id, update)
}

func TestUserService_ProfileUpdateKeepsConcurrentDeactivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	vera := f.user(t, "vera", types.RoleVolunteer)

	users := NewUserService(deactivatingUsers{UserRepository: f.store.Users(), target: vera.ID}, nil)
	name := "Vera K."
	updated, err := users.UpdateProfile(ctx, vera.ID, ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Vera K.", updated.Name)
	assert.False(t, updated.IsActive)

	stored, err := f.store.Users().GetByID(ctx, vera.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = f.users.Authenticate(ctx, "vera@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}
