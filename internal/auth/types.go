package auth

import "time"

// Role is the closed set of user roles. Keeping it a named type rather than
// a free string makes authorization decisions exhaustive at the call sites.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps an untrusted string onto the closed role set. Anything that
// is not exactly "admin" degrades to RoleUser.
func ParseRole(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Public returns the client-safe view of the user: the fields the browser is
// allowed to cache. The password hash never leaves the server.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

type PublicUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}
