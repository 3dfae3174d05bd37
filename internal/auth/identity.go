package auth

import (
	"net/http"
	"strconv"
	"strings"
)

// Header names for explicit identity assertions. When present they take
// precedence over the session cookie; the asserted role is trusted as-is,
// which mirrors how the site has always behaved (see RevokeCookie's caveats
// about the trust model).
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Identity is the caller as the server understands it for one request.
type Identity struct {
	UserID int
	Role   Role
}

// ResolveIdentity derives the caller's identity from the request: explicit
// identity headers first, otherwise the session cookie with an implicit
// RoleUser. The second return is false when the request carries no usable
// identity at all (the 401 case).
func ResolveIdentity(r *http.Request) (Identity, bool) {
	if raw := strings.TrimSpace(r.Header.Get(HeaderUserID)); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return Identity{}, false
		}
		return Identity{UserID: id, Role: ParseRole(strings.TrimSpace(r.Header.Get(HeaderUserRole)))}, true
	}

	id, ok := UserIDFromRequest(r)
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: id, Role: RoleUser}, true
}

// CanMutate decides owner-or-admin access to a resource. ownerID is nil for
// legacy rows that never recorded an owner; a missing owner never matches
// anyone, so those rows are admin-only.
func CanMutate(caller Identity, ownerID *int) bool {
	if caller.Role.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == caller.UserID
}
