package server_test

import (
	"net/http"
	"testing"

	"github.com/jrsteele09/go-staff-bff/internal/config"
	"github.com/jrsteele09/go-staff-bff/server"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/stretchr/testify/require"
)

func TestMe_NoTokens(t *testing.T) {
	srv, fake := newTestServer(t)

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, authErrors(t, decodeBody(t, rec)))
	require.Empty(t, rec.Result().Cookies())
	require.Zero(t, fake.TotalCalls())
}

func TestMe_ValidAccess(t *testing.T) {
	srv, fake := newTestServer(t)
	user := fake.AddUser("ada@example.com", "pw")
	pair := fake.IssueTokens(user)

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil,
		cookie(session.AccessTokenCookie, pair.Access),
		cookie(session.RefreshTokenCookie, pair.Refresh))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, user.Email, decodeBody(t, rec)["email"])
	require.Empty(t, rec.Result().Cookies())
	require.Zero(t, fake.Calls(upstream.PathTokenRefresh))
}

func TestMe_RefreshesInline(t *testing.T) {
	tests := []struct {
		name       string
		access     func(t *testing.T, valid string) string
		wantMeHits int
	}{
		{"access cookie absent", func(*testing.T, string) string { return "" }, 1},
		{"access locally expired", func(t *testing.T, _ string) string { return expiredJWT(t) }, 1},
		{"access rejected upstream", func(_ *testing.T, valid string) string { return valid }, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fake := newTestServer(t)
			user := fake.AddUser("ada@example.com", "pw")
			pair := fake.IssueTokens(user)
			fake.RevokeAccess()

			cookies := []*http.Cookie{cookie(session.RefreshTokenCookie, pair.Refresh)}
			if access := tt.access(t, pair.Access); access != "" {
				cookies = append(cookies, cookie(session.AccessTokenCookie, access))
			}

			rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookies...)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Equal(t, user.Email, decodeBody(t, rec)["email"])

			written := setCookies(t, rec)
			require.Len(t, written, 1)
			require.NotEmpty(t, written[session.AccessTokenCookie].Value)
			require.Equal(t, 30*60, written[session.AccessTokenCookie].MaxAge)

			require.Equal(t, 1, fake.Calls(upstream.PathTokenRefresh))
			require.Equal(t, tt.wantMeHits, fake.Calls(upstream.PathMe))
		})
	}
}

func TestMe_WritesRotatedRefreshToken(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.RotateRefresh = true
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookie(session.RefreshTokenCookie, pair.Refresh))
	require.Equal(t, http.StatusOK, rec.Code)

	written := setCookies(t, rec)
	require.NotEmpty(t, written[session.AccessTokenCookie].Value)
	require.NotEqual(t, pair.Refresh, written[session.RefreshTokenCookie].Value)
}

func TestMe_RefreshRejected(t *testing.T) {
	srv, fake := newTestServer(t)

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil,
		cookie(session.AccessTokenCookie, expiredJWT(t)),
		cookie(session.RefreshTokenCookie, "unknown"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, authErrors(t, decodeBody(t, rec)))

	written := setCookies(t, rec)
	require.Equal(t, -1, written[session.AccessTokenCookie].MaxAge)
	require.Equal(t, -1, written[session.RefreshTokenCookie].MaxAge)
	require.Zero(t, fake.Calls(upstream.PathMe))
}

func TestMe_RejectedWithoutRefreshToken(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	fake.RevokeAccess()

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	written := setCookies(t, rec)
	require.Len(t, written, 1)
	require.Equal(t, -1, written[session.AccessTokenCookie].MaxAge)
	require.Zero(t, fake.Calls(upstream.PathTokenRefresh))
}

func TestMe_ExpiredAccessWithoutRefreshToken(t *testing.T) {
	srv, fake := newTestServer(t)

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookie(session.AccessTokenCookie, expiredJWT(t)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, -1, setCookies(t, rec)[session.AccessTokenCookie].MaxAge)
	require.Zero(t, fake.TotalCalls())
}

func TestMe_RefreshWithoutAccessToken(t *testing.T) {
	srv, fake := newTestServer(t)
	fake.OmitRefreshAccess = true
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookie(session.RefreshTokenCookie, pair.Refresh))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestMe_MissingUpstreamURL(t *testing.T) {
	srv := newServerFor(t, "", config.EnvDevelopment)

	rec := do(t, srv, http.MethodGet, server.RouteAuthMe, nil, cookie(session.RefreshTokenCookie, "R"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Server misconfiguration", decodeBody(t, rec)["message"])
}
