package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/Dosada05/room-bracket/models"
	"github.com/golang-jwt/jwt/v4"
)

// Имена JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoIdentity = errors.New("authenticated user not found in context")

// Identity is the caller behind a verified token. Organizer ownership of a
// tournament is checked by the services, not here.
type Identity struct {
	UserID int
	Role   models.UserRole
}

// IdentityFromContext returns the caller stored by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// WithIdentity кладёт вызывающего в контекст без токена. Нужен тестам хендлеров.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// identityFromClaims читает user_id и role один раз, при проверке токена.
func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	userID, err := parseUserID(claims[jwtClaimUserID])
	if err != nil {
		return Identity{}, err
	}
	role, err := parseRole(claims[jwtClaimRole])
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Role: role}, nil
}

// user_id приходит числом JSON (float64) или строкой.
func parseUserID(claim interface{}) (int, error) {
	var userID int
	switch v := claim.(type) {
	case nil:
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %v", jwtClaimUserID, v)
		}
		userID = int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim %q: %w", jwtClaimUserID, v, err)
		}
		userID = n
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected number or string, got %T", jwtClaimUserID, claim)
	}
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}

func parseRole(claim interface{}) (models.UserRole, error) {
	s, ok := claim.(string)
	if !ok {
		return "", fmt.Errorf("missing or non-string '%s' claim: %T", jwtClaimRole, claim)
	}
	role := models.UserRole(s)
	switch role {
	case models.RoleAdmin, models.RoleOrganizer, models.RolePlayer:
		return role, nil
	}
	return "", fmt.Errorf("invalid role value in claim: %q", s)
}
