// Package auth issues and verifies bearer tokens and resolves them to the
// principal performing a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/volunteer-hub/apiserver/internal/apperr"
	"github.com/volunteer-hub/apiserver/types"
)

const DefaultTokenTTL = 24 * time.Hour

// UserLookup loads the current state of a user.
type UserLookup interface {
	GetByID(ctx context.Context, id int) (types.User, error)
}

// Resolver signs HS256 tokens whose subject is the user id, and resolves
// them back to a Principal. The role is read from the store on every call
// so deactivation and role changes apply immediately.
type Resolver struct {
	users  UserLookup
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResolver(users UserLookup, secret string, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Resolver{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for user.
func (r *Resolver) Issue(user types.User) (string, error) {
	now := r.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(user.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve verifies tokenString and returns the principal it names. Any
// failure, including an unknown or deactivated user, is ErrAuth.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (types.Principal, error) {
	userID, err := r.subject(tokenString)
	if err != nil {
		return types.Principal{}, fmt.Errorf("%v: %w", err, apperr.ErrAuth)
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return types.Principal{}, fmt.Errorf("unknown user: %w", apperr.ErrAuth)
		}
		return types.Principal{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return types.Principal{}, fmt.Errorf("user %d is deactivated: %w", userID, apperr.ErrAuth)
	}
	return types.Principal{ID: user.ID, Role: user.Role}, nil
}

func (r *Resolver) subject(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}

	id, err := strconv.Atoi(strings.TrimSpace(claims.Subject))
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", fmt.Errorf("missing authorization: %w", apperr.ErrAuth)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("invalid authorization: %w", apperr.ErrAuth)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("invalid authorization: %w", apperr.ErrAuth)
	}
	return token, nil
}
