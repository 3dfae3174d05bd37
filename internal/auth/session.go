package auth

import (
	"net/http"
	"strconv"
	"time"
)

// CookieName is the session cookie the whole site keys off.
const CookieName = "auth_token"

// DefaultSessionTTL is how long a login survives without an explicit logout.
const DefaultSessionTTL = 24 * time.Hour

// IssueCookie builds the session cookie for a freshly verified user. The
// value is the bare user id: the session is stateless and unsigned, so there
// is no server-side record to revoke and no signature to check. HttpOnly
// keeps scripts away from the value; everything stronger is deliberately out
// of scope here.
func IssueCookie(userID int, ttl time.Duration) *http.Cookie {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    strconv.Itoa(userID),
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
	}
}

// RevokeCookie tells the issuing client to forget its session immediately.
// Other clients holding the same cookie value are unaffected; with no
// server-side session table there is nothing global to invalidate.
func RevokeCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
}

// UserIDFromRequest reads the session cookie and parses its user id. A
// missing cookie or a non-numeric value both read as "no session".
func UserIDFromRequest(r *http.Request) (int, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return 0, false
	}
	id, err := strconv.Atoi(c.Value)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// HasSessionCookie is the access gate's presence-only check: it does not
// care whether the value maps to a real user. The mutation endpoints do the
// precise ownership checks; the gate only keeps anonymous visitors off the
// authoring pages without a storage round trip.
func HasSessionCookie(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	return err == nil && c.Value != ""
}
