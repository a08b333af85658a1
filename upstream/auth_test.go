package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/go-staff-bff/internal/config"
	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/jrsteele09/go-staff-bff/upstream/upstreamfake"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeClient(t *testing.T) (*upstream.Client, *upstreamfake.Server) {
	t.Helper()
	fake := upstreamfake.New()
	t.Cleanup(fake.Close)
	t.Setenv("DJANGO_API_URL", fake.URL+"/")
	return upstream.NewClient(config.New(), nil), fake
}

func TestClient_LoginAndMe(t *testing.T) {
	client, fake := newFakeClient(t)
	fake.AddUser("ada@example.com", "correct-horse")
	ctx := context.Background()

	resp, err := client.Login(ctx, []byte(`{"email":"ada@example.com","password":"correct-horse"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.Status)

	pair, rest, err := upstream.LoginTokens(resp)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	require.NotContains(t, rest, "tokens")
	require.Equal(t, "Login successful", rest["message"])

	me, err := client.Me(ctx, pair.Access)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, me.Status)
	require.Equal(t, "Bearer "+pair.Access, fake.LastAuthorization(upstream.PathMe))
}

func TestClient_Refresh(t *testing.T) {
	client, fake := newFakeClient(t)
	fake.RotateRefresh = true
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))
	ctx := context.Background()

	resp, err := client.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	next, err := upstream.RefreshTokens(resp)
	require.NoError(t, err)
	require.NotEmpty(t, next.Access)
	require.NotEqual(t, pair.Refresh, next.Refresh)

	// the rotated-out token is now stale
	resp, err = client.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.Equal(t, "token_not_valid", resp.Code())
}

func TestClient_Logout(t *testing.T) {
	client, fake := newFakeClient(t)
	pair := fake.IssueTokens(fake.AddUser("ada@example.com", "pw"))

	resp, err := client.Logout(context.Background(), &oauth2.Token{AccessToken: pair.Access, RefreshToken: pair.Refresh})
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Equal(t, 1, fake.Calls(upstream.PathLogout))
}

func TestClient_MissingUpstreamURL(t *testing.T) {
	t.Setenv("DJANGO_API_URL", "")
	client := upstream.NewClient(config.New(), nil)

	_, err := client.Me(context.Background(), "x")
	require.True(t, errors.Is(err, bfferrors.ErrMissingUpstreamURL))
}

func TestClient_Unavailable(t *testing.T) {
	fake := upstreamfake.New()
	fake.Close()
	t.Setenv("DJANGO_API_URL", fake.URL)
	client := upstream.NewClient(config.New(), nil)

	_, err := client.Me(context.Background(), "x")
	require.ErrorIs(t, err, bfferrors.ErrUpstreamUnavailable)
}

func TestClient_ForwardsRequestID(t *testing.T) {
	client, fake := newFakeClient(t)
	var seen string
	fake.Handle("GET /api/ping/", func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(upstream.HeaderRequestID)
		upstreamfake.WriteJSON(w, http.StatusOK, map[string]any{})
	})

	ctx := upstream.WithRequestID(context.Background(), "req-42")
	_, err := client.Do(ctx, upstream.Request{Path: "api/ping/"})
	require.NoError(t, err)
	require.Equal(t, "req-42", seen)
}

func TestLoginTokens_Missing(t *testing.T) {
	_, _, err := upstream.LoginTokens(jsonResponse(200, `{"tokens":{"access":"a"}}`))
	require.ErrorIs(t, err, bfferrors.ErrTokensMissing)

	_, err = upstream.RefreshTokens(jsonResponse(200, `{}`))
	require.ErrorIs(t, err, bfferrors.ErrTokensMissing)
}
