package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/jrsteele09/go-staff-bff/session"
	"golang.org/x/oauth2"
)

// TokenPair is what the upstream hands back on login or refresh. Refresh is
// empty when a refresh call did not rotate the refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Bearer returns an Authorize func that sends the access token.
func Bearer(accessToken string) func(*http.Request) {
	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	return func(r *http.Request) {
		session.ApplyBearer(r, tok)
	}
}

func (c *Client) Login(ctx context.Context, body []byte) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: PathLogin, Body: body})
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Response, error) {
	body, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: PathTokenRefresh, Body: body})
}

func (c *Client) Me(ctx context.Context, accessToken string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: PathMe, Authorize: Bearer(accessToken)})
}

// Logout tells the upstream to blacklist the refresh token.
func (c *Client) Logout(ctx context.Context, tok *oauth2.Token) (*Response, error) {
	body, err := json.Marshal(map[string]string{"refresh": tok.RefreshToken})
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: PathLogout, Body: body, Authorize: Bearer(tok.AccessToken)})
}

// LoginTokens extracts {tokens:{access,refresh}} from a successful login (or
// invitation acceptance) response and returns the rest of the body with the
// tokens removed. Both tokens are required.
func LoginTokens(resp *Response) (TokenPair, map[string]any, error) {
	obj, ok := resp.Object()
	if !ok {
		return TokenPair{}, nil, bfferrors.Wrapf(bfferrors.ErrTokensMissing, "login body is not a JSON object")
	}

	var pair TokenPair
	if tokens, ok := obj["tokens"].(map[string]any); ok {
		pair.Access, _ = tokens["access"].(string)
		pair.Refresh, _ = tokens["refresh"].(string)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return TokenPair{}, nil, bfferrors.Wrapf(bfferrors.ErrTokensMissing, "access=%t refresh=%t", pair.Access != "", pair.Refresh != "")
	}

	delete(obj, "tokens")
	return pair, obj, nil
}

// RefreshTokens reads {access, refresh?} from a refresh response. Access is
// required; refresh is only present when the upstream rotates it.
func RefreshTokens(resp *Response) (TokenPair, error) {
	var pair TokenPair
	if err := resp.Decode(&pair); err != nil {
		return TokenPair{}, bfferrors.Wrapf(bfferrors.ErrTokensMissing, "%v", err)
	}
	if pair.Access == "" {
		return TokenPair{}, bfferrors.Wrapf(bfferrors.ErrTokensMissing, "refresh response has no access token")
	}
	return pair, nil
}
