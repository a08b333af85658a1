package session

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-staff-bff/internal/config"
)

// CookieWriter issues and clears the auth cookies. Every cookie is httpOnly,
// SameSite=Lax and scoped to "/"; Secure follows the environment.
type CookieWriter struct {
	secure        bool
	accessMaxAge  time.Duration
	refreshMaxAge time.Duration
	clockMaxAge   time.Duration
}

func NewCookieWriter(cfg config.Config) *CookieWriter {
	return &CookieWriter{
		secure:        cfg.GetSecureCookies(),
		accessMaxAge:  cfg.GetAccessTokenMaxAge(),
		refreshMaxAge: cfg.GetRefreshTokenMaxAge(),
		clockMaxAge:   cfg.GetClockSessionMaxAge(),
	}
}

func (c *CookieWriter) set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

// clear emits Max-Age=0 (net/http encodes a negative MaxAge that way).
func (c *CookieWriter) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (c *CookieWriter) SetAccess(w http.ResponseWriter, accessToken string) {
	c.set(w, AccessTokenCookie, accessToken, c.accessMaxAge)
}

func (c *CookieWriter) SetRefresh(w http.ResponseWriter, refreshToken string) {
	c.set(w, RefreshTokenCookie, refreshToken, c.refreshMaxAge)
}

func (c *CookieWriter) SetPair(w http.ResponseWriter, accessToken, refreshToken string) {
	c.SetAccess(w, accessToken)
	c.SetRefresh(w, refreshToken)
}

func (c *CookieWriter) ClearAccess(w http.ResponseWriter) {
	c.clear(w, AccessTokenCookie)
}

func (c *CookieWriter) ClearPair(w http.ResponseWriter) {
	c.clear(w, AccessTokenCookie)
	c.clear(w, RefreshTokenCookie)
}

func (c *CookieWriter) SetClock(w http.ResponseWriter, b ClockBundle) {
	c.set(w, ClockTokenCookie, b.Token, c.clockMaxAge)
	c.set(w, ClockAdminNameCookie, b.AdminName, c.clockMaxAge)
	c.set(w, ClockTenantNameCookie, b.TenantName, c.clockMaxAge)
	c.set(w, ClockTenantIDCookie, b.TenantID, c.clockMaxAge)
	if b.SessionID != "" {
		c.set(w, ClockSessionIDCookie, b.SessionID, c.clockMaxAge)
	}
}

func (c *CookieWriter) ClearClock(w http.ResponseWriter) {
	for _, name := range []string{ClockTokenCookie, ClockAdminNameCookie, ClockTenantNameCookie, ClockTenantIDCookie, ClockSessionIDCookie} {
		c.clear(w, name)
	}
}
