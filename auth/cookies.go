package auth

import (
	"net/http"
	"time"
)

// Cookie names carried on every HTTP request and WebSocket handshake
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieSettings controls the attributes of the credential cookies
type CookieSettings struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Cookies returns the Set-Cookie values for pair
func (s CookieSettings) Cookies(pair TokenPair) []*http.Cookie {
	return []*http.Cookie{
		s.cookie(AccessTokenCookie, pair.AccessToken, s.AccessTTL),
		s.cookie(RefreshTokenCookie, pair.RefreshToken, s.RefreshTTL),
	}
}

// Expired returns Set-Cookie values that clear both credentials
func (s CookieSettings) Expired() []*http.Cookie {
	return []*http.Cookie{
		s.cookie(AccessTokenCookie, "", -time.Second),
		s.cookie(RefreshTokenCookie, "", -time.Second),
	}
}

func (s CookieSettings) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.Domain,
		MaxAge:   int(ttl.Seconds()),
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookieHeader adds cookies to header as Set-Cookie lines
func SetCookieHeader(header http.Header, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		if v := cookie.String(); v != "" {
			header.Add("Set-Cookie", v)
		}
	}
}

// TokensFromRequest reads the credential cookies; missing cookies yield empty strings
func TokensFromRequest(r *http.Request) (accessToken, refreshToken string) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		accessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}
	return accessToken, refreshToken
}
