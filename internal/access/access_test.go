package access

import (
	"testing"

	"goodfit/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name  string
		route Route
		role  model.Role
		want  bool
	}{
		{"public route without role", RouteGyms, "", true},
		{"public route for user", RouteSubscriptions, model.RoleUser, true},
		{"bookings need sign in", RouteBookings, "", false},
		{"bookings for user", RouteBookings, model.RoleUser, true},
		{"admin panel denies user", RouteAdmin, model.RoleUser, false},
		{"admin panel for partner", RouteAdmin, model.RolePartner, true},
		{"partner manages gyms", RouteAdminGyms, model.RolePartner, true},
		{"partner cannot list users", RouteAdminUsers, model.RolePartner, false},
		{"admin lists users", RouteAdminUsers, model.RoleAdmin, true},
		{"admin sees all bookings", RouteAdminBookings, model.RoleAdmin, true},
		{"unknown route denied", Route("reports"), model.RoleAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.route, tt.role))
		})
	}
}

func TestRolesAndPublic(t *testing.T) {
	roles, ok := Roles(RouteAdminUsers)
	assert.True(t, ok)
	assert.Equal(t, []model.Role{model.RoleAdmin}, roles)

	_, ok = Roles(Route("missing"))
	assert.False(t, ok)

	assert.True(t, Public(RouteGyms))
	assert.False(t, Public(RouteProfile))
	assert.False(t, Public(Route("missing")))
}

func TestEveryRouteUsesKnownRoles(t *testing.T) {
	for route, roles := range policy {
		for _, role := range roles {
			assert.True(t, role.Valid(), "route %s lists unknown role %q", route, role)
		}
	}
}
