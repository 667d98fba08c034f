package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the authenticated caller as asserted by the identity provider.
// It is trusted as is.
type Identity struct {
	UserID string
	Role   string
	Email  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
