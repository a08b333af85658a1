package server_test

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-staff-bff/internal/config"
	"github.com/jrsteele09/go-staff-bff/server"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream/upstreamfake"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var resourceRoots = []string{
	"/api/staff", "/api/events", "/api/vendors", "/api/contracts",
	"/api/attendance", "/api/audit-logs", "/api/payroll", "/api/locations",
}

func TestResourceProxy_RequiresSession(t *testing.T) {
	srv, fake := newTestServer(t)

	for _, root := range resourceRoots {
		for _, path := range []string{root, root + "/7"} {
			rec := do(t, srv, http.MethodGet, path, nil)
			require.Equal(t, http.StatusUnauthorized, rec.Code, path)
			require.NotEmpty(t, authErrors(t, decodeBody(t, rec)), path)
		}
		rec := do(t, srv, http.MethodGet, root, nil, cookie(session.AccessTokenCookie, expiredJWT(t)))
		require.Equal(t, http.StatusUnauthorized, rec.Code, root)
	}
	rec := do(t, srv, http.MethodGet, server.RouteTenantSettings, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.Zero(t, fake.TotalCalls())
}

func TestResourceProxy_Forwards(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	var gotMethod, gotPath, gotQuery, gotAuth, gotType string
	var gotBody []byte
	fake.Handle("/api/events/", func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotQuery = r.Method, r.URL.Path, r.URL.RawQuery
		gotAuth, gotType = r.Header.Get("Authorization"), r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		upstreamfake.WriteJSON(w, http.StatusOK, map[string]any{"id": 12, "name": "Gala"})
	})

	rec := doWithHeaders(t, srv, http.MethodPatch, "/api/events/12?notify=true", `{"name":"Gala"}`,
		map[string]string{"Content-Type": "application/json"},
		cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"id":12,"name":"Gala"}`, rec.Body.String())

	require.Equal(t, http.MethodPatch, gotMethod)
	require.Equal(t, "/api/events/12/", gotPath)
	require.Equal(t, "notify=true", gotQuery)
	require.Equal(t, "Bearer "+pair.Access, gotAuth)
	require.Equal(t, "application/json", gotType)
	require.JSONEq(t, `{"name":"Gala"}`, string(gotBody))
}

func TestResourceProxy_EscapedPathSegments(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	type seen struct{ path, escaped, query string }
	var got seen
	fake.Handle("GET /api/staff/", func(w http.ResponseWriter, r *http.Request) {
		got = seen{r.URL.Path, r.URL.EscapedPath(), r.URL.RawQuery}
		upstreamfake.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	tests := []struct {
		target string
		want   seen
	}{
		{"/api/staff/search%3Frole=admin", seen{"/api/staff/search?role=admin/", "/api/staff/search%3Frole=admin/", ""}},
		{"/api/staff/100%25", seen{"/api/staff/100%/", "/api/staff/100%25/", ""}},
		{"/api/staff/search%3Fx?page=2", seen{"/api/staff/search?x/", "/api/staff/search%3Fx/", "page=2"}},
	}
	for _, tt := range tests {
		got = seen{}
		rec := do(t, srv, http.MethodGet, tt.target, nil, cookie(session.AccessTokenCookie, pair.Access))
		require.Equal(t, http.StatusOK, rec.Code, "%s: %s", tt.target, rec.Body.String())
		require.Equal(t, tt.want, got, tt.target)
	}
}

func TestResourceProxy_NonJSONText(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	fake.Handle("GET /api/vendors/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("vendor service warming up"))
	})

	rec := do(t, srv, http.MethodGet, "/api/vendors", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"raw": "vendor service warming up"}, decodeBody(t, rec))
}

func TestResourceProxy_CSVAttachment(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	fake.Handle("GET /api/attendance/export/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if r.URL.Query().Get("named") == "1" {
			w.Header().Set("Content-Disposition", `attachment; filename="attendance-2024-05.csv"`)
		}
		_, _ = w.Write([]byte("name,hours\nAda,8\n"))
	})

	rec := do(t, srv, http.MethodGet, "/api/attendance/export", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="export.csv"`, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "name,hours\nAda,8\n", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/attendance/export?named=1", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, `attachment; filename="attendance-2024-05.csv"`, rec.Header().Get("Content-Disposition"))
}

func TestResourceProxy_XLSXAttachment(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	book := excelize.NewFile()
	require.NoError(t, book.SetCellValue("Sheet1", "A1", "Payroll"))
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, book.Close())
	workbook := buf.Bytes()

	fake.Handle("GET /api/payroll/export/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if r.URL.Query().Get("broken") == "1" {
			_, _ = w.Write(workbook[:len(workbook)/2])
			return
		}
		_, _ = w.Write(workbook)
	})

	rec := do(t, srv, http.MethodGet, "/api/payroll/export", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `attachment; filename="export.xlsx"`, rec.Header().Get("Content-Disposition"))
	require.True(t, bytes.Equal(workbook, rec.Body.Bytes()))

	rec = do(t, srv, http.MethodGet, "/api/payroll/export?broken=1", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Empty(t, rec.Header().Get("Content-Disposition"))
	require.Equal(t, "Upstream returned an unreadable file", decodeBody(t, rec)["message"])
}

func TestResourceProxy_UpstreamError(t *testing.T) {
	for _, env := range []string{config.EnvDevelopment, config.EnvProduction} {
		t.Run(env, func(t *testing.T) {
			fake := upstreamfake.New()
			t.Cleanup(fake.Close)
			srv := newServerFor(t, fake.URL, env)
			pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
			fake.Handle("POST /api/staff/", func(w http.ResponseWriter, r *http.Request) {
				upstreamfake.WriteJSON(w, http.StatusConflict, map[string]any{
					"detail": "Staff member already exists",
					"email":  []string{"This email is already in use."},
				})
			})

			rec := do(t, srv, http.MethodPost, "/api/staff", map[string]string{"email": "dup@example.com"}, cookie(session.AccessTokenCookie, pair.Access))
			require.Equal(t, http.StatusConflict, rec.Code)
			body := decodeBody(t, rec)
			require.Equal(t, "Staff member already exists", body["message"])
			require.Equal(t, map[string]any{"email": []any{"This email is already in use."}}, body["errors"])
			_, exposed := body["upstream"]
			require.Equal(t, env != config.EnvProduction, exposed)
		})
	}
}

func TestResourceProxy_UpstreamUnavailable(t *testing.T) {
	fake := upstreamfake.New()
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	fake.Close()
	srv := newServerFor(t, fake.URL, config.EnvDevelopment)

	rec := do(t, srv, http.MethodGet, "/api/locations", nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Upstream service unavailable", decodeBody(t, rec)["message"])
}

func TestResourceProxy_MissingUpstreamURL(t *testing.T) {
	srv := newServerFor(t, "", config.EnvDevelopment)

	rec := do(t, srv, http.MethodGet, "/api/contracts", nil, cookie(session.AccessTokenCookie, "opaque-token"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "Server misconfiguration", decodeBody(t, rec)["message"])
}

func TestTenantSettings_Unwraps(t *testing.T) {
	srv, fake := newTestServer(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	fake.Handle("/api/tenant/settings/", func(w http.ResponseWriter, r *http.Request) {
		upstreamfake.WriteJSON(w, http.StatusOK, map[string]any{
			"tenant": map[string]any{"name": "Acme Events", "timezone": "Europe/London", "method": r.Method},
		})
	})

	for _, method := range []string{http.MethodGet, http.MethodPatch} {
		rec := do(t, srv, method, server.RouteTenantSettings, map[string]string{"timezone": "Europe/London"}, cookie(session.AccessTokenCookie, pair.Access))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, map[string]any{"name": "Acme Events", "timezone": "Europe/London", "method": method}, decodeBody(t, rec))
	}

	rec := do(t, srv, http.MethodPost, server.RouteTenantSettings, nil, cookie(session.AccessTokenCookie, pair.Access))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
