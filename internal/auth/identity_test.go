package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveIdentityFromCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "7"})

	id, ok := ResolveIdentity(r)
	if !ok {
		t.Fatalf("expected identity from cookie")
	}
	if id.UserID != 7 || id.Role != RoleUser {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestResolveIdentityHeadersWin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "7"})
	r.Header.Set(HeaderUserID, "12")
	r.Header.Set(HeaderUserRole, "admin")

	id, ok := ResolveIdentity(r)
	if !ok {
		t.Fatalf("expected identity from headers")
	}
	if id.UserID != 12 || id.Role != RoleAdmin {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestResolveIdentityUnknownRoleDegrades(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderUserID, "12")
	r.Header.Set(HeaderUserRole, "superuser")

	id, ok := ResolveIdentity(r)
	if !ok {
		t.Fatalf("expected identity")
	}
	if id.Role != RoleUser {
		t.Fatalf("unknown role must degrade to user, got %q", id.Role)
	}
}

func TestResolveIdentityBadHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: CookieName, Value: "7"})
	r.Header.Set(HeaderUserID, "not-a-number")

	// A malformed header is an error, not a fallthrough to the cookie.
	if _, ok := ResolveIdentity(r); ok {
		t.Fatalf("expected no identity for malformed header")
	}
}

func TestResolveIdentityAbsent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ResolveIdentity(r); ok {
		t.Fatalf("expected no identity on a bare request")
	}
}

func TestCanMutate(t *testing.T) {
	owner := 5
	cases := []struct {
		name    string
		caller  Identity
		ownerID *int
		want    bool
	}{
		{"owner", Identity{UserID: 5, Role: RoleUser}, &owner, true},
		{"non owner", Identity{UserID: 6, Role: RoleUser}, &owner, false},
		{"admin non owner", Identity{UserID: 6, Role: RoleAdmin}, &owner, true},
		{"ownerless row user", Identity{UserID: 5, Role: RoleUser}, nil, false},
		{"ownerless row admin", Identity{UserID: 5, Role: RoleAdmin}, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanMutate(tc.caller, tc.ownerID); got != tc.want {
				t.Fatalf("CanMutate() = %v, want %v", got, tc.want)
			}
		})
	}
}
