package session

import "net/http"

const CookieName = "auth_session"

// NewCookie wraps a signed credential in the auth_session cookie.
func NewCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(TTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie tells the browser to drop the auth_session cookie.
func ClearCookie(secure bool) *http.Cookie {
	c := NewCookie("", secure)
	c.MaxAge = -1
	return c
}

// FromRequest returns the raw credential, or "" when the cookie is absent.
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
