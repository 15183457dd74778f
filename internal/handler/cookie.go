package handler

import (
	"net/http"
	"time"
)

const (
	// AccessCookie holds the signed access token.
	AccessCookie = "grq_access"

	accessCookieMaxAge = 30 * 24 * time.Hour
)

// CookieOptions controls the attributes of the access cookie.
type CookieOptions struct {
	Secure bool
}

func (o CookieOptions) access(token string) *http.Cookie {
	return &http.Cookie{
		Name:     AccessCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(accessCookieMaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   o.Secure,
	}
}
