// Package access holds the single table of which roles may use which route.
// The backend's role middleware and the command-line app both read it.
package access

import "goodfit/internal/model"

type Route string

const (
	RouteGyms          Route = "gyms"
	RouteGymDetail     Route = "gyms.detail"
	RouteSubscriptions Route = "subscriptions"
	RouteProfile       Route = "profile"
	RouteBookings      Route = "bookings"
	RouteAdmin         Route = "admin"
	RouteAdminGyms     Route = "admin.gyms"
	RouteAdminClasses  Route = "admin.classes"
	RouteAdminBookings Route = "admin.bookings"
	RouteAdminUsers    Route = "admin.users"
)

var (
	anyone        = []model.Role{}
	signedIn      = []model.Role{model.RoleUser, model.RolePartner, model.RoleAdmin}
	staff         = []model.Role{model.RolePartner, model.RoleAdmin}
	administrator = []model.Role{model.RoleAdmin}
)

// policy maps each route to its permitted roles. An empty list means public.
var policy = map[Route][]model.Role{
	RouteGyms:          anyone,
	RouteGymDetail:     anyone,
	RouteSubscriptions: anyone,
	RouteProfile:       signedIn,
	RouteBookings:      signedIn,
	RouteAdmin:         staff,
	RouteAdminGyms:     staff,
	RouteAdminClasses:  staff,
	RouteAdminBookings: administrator,
	RouteAdminUsers:    administrator,
}

// Roles returns the roles permitted on a route. ok is false for unknown routes.
func Roles(r Route) (roles []model.Role, ok bool) {
	roles, ok = policy[r]
	return roles, ok
}

// Public reports whether a route needs no signed-in user.
func Public(r Route) bool {
	roles, ok := policy[r]
	return ok && len(roles) == 0
}

// Allowed reports whether role may use route. Unknown routes are denied.
func Allowed(r Route, role model.Role) bool {
	roles, ok := policy[r]
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, permitted := range roles {
		if permitted == role {
			return true
		}
	}
	return false
}
