// Package auth defines who is acting on the POS: staff roles, the principal
// attached to a request, and the staff directory.
package auth

import (
	"context"

	"github.com/xenking/qpos/internal/domain/poserr"
)

// Role is a staff role. Roles gate which screens and operations are usable.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleKitchen Role = "kitchen"
)

// ParseRole validates a role name.
func ParseRole(v string) (Role, error) {
	switch r := Role(v); r {
	case RoleAdmin, RoleCashier, RoleKitchen:
		return r, nil
	default:
		return "", poserr.InvalidInput("unknown role %q", v)
	}
}

// Principal is an authenticated staff member.
type Principal struct {
	ID          string
	DisplayName string
	Role        Role
}

// Allowed reports whether p has one of roles. Admins are allowed everywhere.
func (p Principal) Allowed(roles ...Role) bool {
	if p.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored in ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
