package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbook/internal/client/session"
	"medbook/internal/domain"
)

func snapshot(role domain.UserRole) session.Snapshot {
	if role == "" {
		return session.Snapshot{}
	}
	return session.Snapshot{State: session.State{
		AccessToken:     "t",
		IsAuthenticated: true,
		User:            &domain.Profile{ID: "u1", Role: role},
	}}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		role        domain.UserRole
		path        string
		wantTarget  string
		wantAllowed bool
	}{
		{"home anonymous", "", "/", "/", true},
		{"doctors anonymous", "", "/doctors", "/doctors", true},
		{"login anonymous", "", "/login", "/login", true},
		{"dashboard anonymous", "", "/dashboard", "/login", false},
		{"booking anonymous", "", "/booking/d1", "/login", false},
		{"admin anonymous", "", "/admin/users", "/login", false},
		{"dashboard patient", domain.UserRolePatient, "/dashboard", "/dashboard", true},
		{"booking patient", domain.UserRolePatient, "/booking/d1?date=2026-03-09", "/booking/d1", true},
		{"admin patient", domain.UserRolePatient, "/admin", "/", false},
		{"admin doctor", domain.UserRoleDoctor, "/admin/appointments", "/", false},
		{"admin admin", domain.UserRoleAdmin, "/admin/appointments", "/admin/appointments", true},
		{"admin root admin", domain.UserRoleAdmin, "/admin/", "/admin", true},
		{"unknown", domain.UserRolePatient, "/settings", "/", false},
		{"booking without doctor", domain.UserRolePatient, "/booking", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, allowed := Resolve(snapshot(tt.role), tt.path)
			assert.Equal(t, tt.wantTarget, target)
			assert.Equal(t, tt.wantAllowed, allowed)
		})
	}
}

func TestMatchParams(t *testing.T) {
	route, params, ok := Match("/booking/d42")
	require.True(t, ok)
	assert.Equal(t, Authenticated, route.Access)
	assert.Equal(t, "d42", params["doctorId"])

	_, _, ok = Match("/booking/d42/extra")
	assert.False(t, ok)
}
