package handlers

import (
	"net/http"
	"time"
)

// CookieConfig controls the attributes of the session cookies.
// Secure should only be disabled for local development over plain http.
type CookieConfig struct {
	Secure bool
}

func (c CookieConfig) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (c CookieConfig) setSession(w http.ResponseWriter, access, refresh string, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, access, accessTTL))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, refresh, refreshTTL))
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	expired := c.cookie(AccessTokenCookie, "", 0)
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	expired = c.cookie(RefreshTokenCookie, "", 0)
	expired.MaxAge = -1
	http.SetCookie(w, expired)
}
