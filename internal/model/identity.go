package model

// Role is the closed set of user roles known to the platform.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleNurse       Role = "NURSE"
	RoleCoordinator Role = "COORDINATOR"
	RoleFamily      Role = "FAMILY"
)

// CallerIdentity carries the verified claims of the caller. It is supplied
// by the identity layer and threaded explicitly through every operation;
// services never read it from request-global state.
type CallerIdentity struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     Role   `json:"role"`
	Origin   string `json:"-"`
}

// IsZero reports whether no identity was supplied at all.
func (c CallerIdentity) IsZero() bool {
	return c.UserID == "" && c.TenantID == ""
}
