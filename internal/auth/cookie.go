package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie carrying the signed session key.
const SessionCookieName = "weatherfav_session"

var ErrEmptySessionSecret = errors.New("session signing secret is empty")

// CookieCodec signs session keys into cookies and reads them back. Cookies
// with a bad signature or an elapsed timestamp read as absent.
type CookieCodec struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

func NewCookieCodec(secret string, maxAge time.Duration, secure bool) (*CookieCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySessionSecret
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionLifetime
	}

	codec := securecookie.New([]byte(secret), nil)
	codec.MaxAge(int(maxAge.Seconds()))

	return &CookieCodec{
		codec:  codec,
		maxAge: maxAge,
		secure: secure,
	}, nil
}

// Write sets the session cookie for key.
func (c *CookieCodec) Write(w http.ResponseWriter, key string) error {
	encoded, err := c.codec.Encode(SessionCookieName, key)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read extracts the session key from the request cookie.
func (c *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	var key string
	if err := c.codec.Decode(SessionCookieName, cookie.Value, &key); err != nil {
		return "", false
	}
	return key, key != ""
}

// Clear expires the session cookie on the client.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
