package session

import (
	"net/http"
	"strings"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
)

const (
	ClockTokenCookie      = "clock_token"
	ClockAdminNameCookie  = "clock_admin_name"
	ClockTenantNameCookie = "clock_tenant_name"
	ClockTenantIDCookie   = "clock_tenant_id"
	ClockSessionIDCookie  = "clock_session_id"

	HeaderClockToken   = "X-Clock-Token"
	HeaderClockAdmin   = "X-Clock-Admin"
	HeaderClockSession = "X-Clock-Session"
	HeaderTenantID     = "X-Tenant-ID"
)

// ClockBundle is the kiosk credential family. It lives alongside, and
// independently of, the admin session pair.
type ClockBundle struct {
	Token      string
	AdminName  string
	TenantName string
	TenantID   string
	SessionID  string
}

// ClockFromRequest reads the clock cookie family. Token, admin name and
// tenant id are required; the error names every missing cookie.
func ClockFromRequest(r *http.Request) (ClockBundle, error) {
	read := func(name string) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(c.Value)
	}

	b := ClockBundle{
		Token:      read(ClockTokenCookie),
		AdminName:  read(ClockAdminNameCookie),
		TenantName: read(ClockTenantNameCookie),
		TenantID:   read(ClockTenantIDCookie),
		SessionID:  read(ClockSessionIDCookie),
	}

	var missing []string
	if b.Token == "" {
		missing = append(missing, ClockTokenCookie)
	}
	if b.AdminName == "" {
		missing = append(missing, ClockAdminNameCookie)
	}
	if b.TenantID == "" {
		missing = append(missing, ClockTenantIDCookie)
	}
	if len(missing) > 0 {
		return ClockBundle{}, bfferrors.Wrapf(bfferrors.ErrClockBundleMissing, "missing %s", strings.Join(missing, ", "))
	}
	return b, nil
}

// Apply sets the clock portal headers on an outgoing upstream request.
func (b ClockBundle) Apply(req *http.Request) {
	req.Header.Set(HeaderClockToken, b.Token)
	req.Header.Set(HeaderClockAdmin, b.AdminName)
	req.Header.Set(HeaderTenantID, b.TenantID)
	if b.SessionID != "" {
		req.Header.Set(HeaderClockSession, b.SessionID)
	}
}
