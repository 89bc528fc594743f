package model

import "time"

// Role is the application role of a user. The set is closed.
type Role string

const (
	RoleUser    Role = "USER"
	RolePartner Role = "PARTNER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePartner, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user record, keyed by the auth identity id.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	ProfileImage   *string   `json:"profile_image,omitempty"`
	SubscriptionID *string   `json:"subscription_id,omitempty"`
}

// UserEmail returns the stored email or "" when absent.
func (u *User) UserEmail() string { return StringValue(u.Email) }

// UserPhone returns the stored phone or "" when absent.
func (u *User) UserPhone() string { return StringValue(u.Phone) }

// Principal is the authenticated caller of a backend request.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Phone     string
	Role      Role
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// StringValue dereferences an optional string column.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StringPtr returns nil for blank strings so optional columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// UserPatch carries the fields of a partial user update. Nil fields are left
// unchanged; a blank string clears an optional column.
type UserPatch struct {
	ID             *string `json:"id,omitempty"`
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Role           *Role   `json:"role,omitempty"`
	ProfileImage   *string `json:"profile_image,omitempty"`
	SubscriptionID *string `json:"subscription_id,omitempty"`
}

// Apply writes the set fields of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.ID != nil && *p.ID != "" {
		u.ID = *p.ID
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = StringPtr(*p.Email)
	}
	if p.Phone != nil {
		u.Phone = StringPtr(*p.Phone)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.ProfileImage != nil {
		u.ProfileImage = StringPtr(*p.ProfileImage)
	}
	if p.SubscriptionID != nil {
		u.SubscriptionID = StringPtr(*p.SubscriptionID)
	}
}
