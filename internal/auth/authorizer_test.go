package auth_test

import (
	"context"
	"testing"

	"fleetwatch/internal/auth"
	"fleetwatch/internal/domain"
)

func iptr(v int64) *int64 { return &v }

type fakeUserSource struct {
	user   *domain.User
	called bool
}

func (s *fakeUserSource) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	s.called = true
	if s.user == nil {
		return nil, nil
	}
	return s.user, nil
}

func TestResolveToken_EmptyTokenSkipsLookup(t *testing.T) {
	source := &fakeUserSource{}
	a := auth.NewAuthorizer(source)

	user, err := a.ResolveToken(context.Background(), "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user != nil {
		t.Error("Expected nil user for empty token")
	}
	if source.called {
		t.Error("Expected no lookup for empty token")
	}
}

func TestResolveToken_KnownToken(t *testing.T) {
	source := &fakeUserSource{user: &domain.User{ID: 7, Role: domain.RoleManager}}
	a := auth.NewAuthorizer(source)

	user, err := a.ResolveToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user == nil || user.ID != 7 {
		t.Error("Expected resolved user")
	}
}

func TestCanView(t *testing.T) {
	vehicle := &domain.Vehicle{ID: 1, AssignedDriverID: iptr(10)}
	unassigned := &domain.Vehicle{ID: 2}

	cases := []struct {
		name    string
		user    *domain.User
		vehicle *domain.Vehicle
		want    bool
	}{
		{"nil user", nil, vehicle, false},
		{"nil vehicle", &domain.User{ID: 10, Role: domain.RoleDriver}, nil, false},
		{"admin sees all", &domain.User{ID: 1, Role: domain.RoleAdmin}, vehicle, true},
		{"manager sees all", &domain.User{ID: 2, Role: domain.RoleManager}, vehicle, true},
		{"assigned driver", &domain.User{ID: 10, Role: domain.RoleDriver}, vehicle, true},
		{"other driver", &domain.User{ID: 11, Role: domain.RoleDriver}, vehicle, false},
		{"driver on unassigned vehicle", &domain.User{ID: 10, Role: domain.RoleDriver}, unassigned, false},
	}

	for _, tc := range cases {
		if got := auth.CanView(tc.user, tc.vehicle); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
