package auth

import (
	"context"

	"fleetwatch/internal/domain"
)

// UserSource resolves API tokens to users.
type UserSource interface {
	UserByToken(ctx context.Context, token string) (*domain.User, error)
}

// Authorizer owns the single vehicle-visibility capability consumed by
// every component that serves per-vehicle data.
type Authorizer struct {
	users UserSource
}

// NewAuthorizer creates an authorizer backed by the given user source.
func NewAuthorizer(users UserSource) *Authorizer {
	return &Authorizer{users: users}
}

// ResolveToken returns the user owning the token, or nil for an
// unknown or empty token.
func (a *Authorizer) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	return a.users.UserByToken(ctx, token)
}

// CanView reports whether the user may see the vehicle. Drivers see
// only their assigned vehicle; every other role sees all vehicles.
func CanView(user *domain.User, vehicle *domain.Vehicle) bool {
	if user == nil || vehicle == nil {
		return false
	}
	if user.Role != domain.RoleDriver {
		return true
	}
	return vehicle.AssignedDriverID != nil && *vehicle.AssignedDriverID == user.ID
}
