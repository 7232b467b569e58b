package httpapi

import (
	"net/http"
	"strings"
	"time"
)

// CookieConfig names the session cookies and their transport attributes.
type CookieConfig struct {
	Name       string
	LegacyName string
	Secure     bool
	MaxAge     time.Duration
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.Name == "" {
		c.Name = "kkh_session"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	return c
}

// sessionToken returns the raw token from the request, or "".
func (c CookieConfig) sessionToken(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(ck.Value)
}

func (c CookieConfig) setSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c CookieConfig) clearSession(w http.ResponseWriter) {
	c.expire(w, c.Name)
}

func (c CookieConfig) clearLegacy(w http.ResponseWriter) {
	if c.LegacyName != "" {
		c.expire(w, c.LegacyName)
	}
}

// expire overwrites name with an empty value that the browser drops at once.
func (c CookieConfig) expire(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
