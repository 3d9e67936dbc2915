package authz

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleClient = "client"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// ActingUser is the opaque record the session collaborator attaches to each
// authenticated request. Its absence means "not logged in".
type ActingUser struct {
	ID        int64
	Role      string
	FirstName string
	LastName  string
	Username  string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *ActingUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the ActingUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value
// has a different type.
func UserFromContext(ctx context.Context) *ActingUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*ActingUser)
	if !ok {
		return nil
	}

	return user
}

// Authorize is the role gate. An unauthenticated user always fails. With no
// required roles, any authenticated role passes; otherwise the user's role
// must be one of requiredRoles. Success has no side effect.
func Authorize(user *ActingUser, requiredRoles ...string) error {
	if user == nil || user.Role == "" {
		return ErrUnauthenticated
	}
	if len(requiredRoles) == 0 {
		return nil
	}
	for _, role := range requiredRoles {
		if user.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// RequireRole applies Authorize to the user stored in ctx.
func RequireRole(ctx context.Context, requiredRoles ...string) error {
	return Authorize(UserFromContext(ctx), requiredRoles...)
}

// IsStaff reports whether the user holds a back-office role.
func IsStaff(user *ActingUser) bool {
	return user != nil && (user.Role == RoleStaff || user.Role == RoleAdmin)
}
