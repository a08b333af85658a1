package server_test

import (
	"net/http"
	"testing"

	"github.com/jrsteele09/go-staff-bff/server"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/jrsteele09/go-staff-bff/upstream/upstreamfake"
	"github.com/stretchr/testify/require"
)

var clockCookieNames = []string{
	session.ClockTokenCookie,
	session.ClockAdminNameCookie,
	session.ClockTenantNameCookie,
	session.ClockTenantIDCookie,
	session.ClockSessionIDCookie,
}

func clockCookies(token, admin, tenantName, tenantID, sessionID string) []*http.Cookie {
	return []*http.Cookie{
		cookie(session.ClockTokenCookie, token),
		cookie(session.ClockAdminNameCookie, admin),
		cookie(session.ClockTenantNameCookie, tenantName),
		cookie(session.ClockTenantIDCookie, tenantID),
		cookie(session.ClockSessionIDCookie, sessionID),
	}
}

func TestClockLogin(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.AddClockAdmin(upstreamfake.ClockAdmin{
		Email: "kiosk@example.com", Password: "kiosk-pass",
		Name: "Front Desk", TenantName: "Acme Events", TenantID: "t-1", Token: "CLK",
	})

	rec := do(t, srv, http.MethodPost, server.RouteClockLogin, map[string]string{"email": "kiosk@example.com", "password": "kiosk-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	written := setCookies(t, rec)
	require.Len(t, written, len(clockCookieNames))
	for _, name := range clockCookieNames {
		require.Equal(t, 8*60*60, written[name].MaxAge, name)
		require.True(t, written[name].HttpOnly, name)
	}
	require.Equal(t, "CLK", written[session.ClockTokenCookie].Value)
	require.Equal(t, "t-1", written[session.ClockTenantIDCookie].Value)
	require.NotEmpty(t, written[session.ClockSessionIDCookie].Value)
	require.NotContains(t, written, session.AccessTokenCookie)

	sess := decodeBody(t, rec)["session"].(map[string]any)
	require.Equal(t, "Front Desk", sess["adminName"])
	require.Equal(t, written[session.ClockSessionIDCookie].Value, sess["sessionId"])
}

func TestClockLogin_NumericTenantID(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.AddClockAdmin(upstreamfake.ClockAdmin{
		Email: "desk@example.com", Password: "kiosk-pass",
		Name: "Desk", TenantName: "Acme", TenantID: 42, Token: "CLK",
	})

	rec := do(t, srv, http.MethodPost, server.RouteClockLogin, map[string]string{"email": "desk@example.com", "password": "kiosk-pass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	written := setCookies(t, rec)
	require.Equal(t, "42", written[session.ClockTenantIDCookie].Value)
	sess := decodeBody(t, rec)["session"].(map[string]any)
	require.Equal(t, "42", sess["tenantId"])
}

func TestClockLogin_BadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, server.RouteClockLogin, map[string]string{"email": "kiosk@example.com", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestClockLogin_MissingToken(t *testing.T) {
	ts := stubUpstream(t, "POST "+upstream.PathClockLogin, http.StatusOK, map[string]any{"admin_name": "Front Desk"})
	srv := newServerFor(t, ts.URL, "development")

	rec := do(t, srv, http.MethodPost, server.RouteClockLogin, map[string]string{"email": "kiosk@example.com", "password": "kiosk-pass"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestClockSession(t *testing.T) {
	srv, fake := newTestServer(t)

	rec := do(t, srv, http.MethodGet, server.RouteClockSession, nil, clockCookies("CLK", "Front Desk", "Acme", "t-1", "s-1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{
		"adminName": "Front Desk", "tenantName": "Acme", "tenantId": "t-1", "sessionId": "s-1",
	}, decodeBody(t, rec))

	rec = do(t, srv, http.MethodGet, server.RouteClockSession, nil, cookie(session.ClockTokenCookie, "CLK"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	reasons := authErrors(t, decodeBody(t, rec))
	require.Contains(t, reasons[0], session.ClockTenantIDCookie)
	require.Zero(t, fake.TotalCalls())
}

func TestClockLogout(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodPost, server.RouteClockLogout, nil, clockCookies("CLK", "Front Desk", "Acme", "t-1", "s-1")...)
	require.Equal(t, http.StatusOK, rec.Code)
	written := setCookies(t, rec)
	for _, name := range clockCookieNames {
		require.Equal(t, -1, written[name].MaxAge, name)
	}
	require.NotContains(t, written, session.AccessTokenCookie)
}

func TestClockProxy(t *testing.T) {
	srv, fake := newTestServer(t)
	var got http.Header
	var gotQuery string
	fake.Handle("POST /api/clock/check-in/", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotQuery = r.URL.RawQuery
		upstreamfake.WriteJSON(w, http.StatusCreated, map[string]any{"status": "checked_in"})
	})

	rec := do(t, srv, http.MethodPost, "/api/clock/check-in?staff=42", map[string]string{"staff_id": "42"},
		clockCookies("CLK", "Front Desk", "Acme", "t-1", "s-1")...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "checked_in", decodeBody(t, rec)["status"])

	require.Equal(t, "CLK", got.Get(session.HeaderClockToken))
	require.Equal(t, "Front Desk", got.Get(session.HeaderClockAdmin))
	require.Equal(t, "t-1", got.Get(session.HeaderTenantID))
	require.Equal(t, "s-1", got.Get(session.HeaderClockSession))
	require.Empty(t, got.Get("Authorization"))
	require.Equal(t, "staff=42", gotQuery)
}

func TestClockProxy_RequiresBundle(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	// an admin session is not a clock session
	rec := do(t, srv, http.MethodPost, "/api/clock/check-in", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, authErrors(t, decodeBody(t, rec)))
	require.Zero(t, fake.TotalCalls())
}
