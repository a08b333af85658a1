// Package session holds the credential families carried in cookies between
// the browser and the BFF, and the rules for reading, classifying and
// rewriting them.
package session

import (
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"golang.org/x/oauth2"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// FromRequest reads the access/refresh pair from the request cookies. Missing
// cookies leave the matching field empty. When the access token is a JWT its
// exp claim becomes the token expiry; opaque tokens never expire locally.
func FromRequest(r *http.Request) *oauth2.Token {
	tok := &oauth2.Token{TokenType: "Bearer"}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		tok.AccessToken = strings.TrimSpace(c.Value)
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		tok.RefreshToken = strings.TrimSpace(c.Value)
	}
	if tok.AccessToken != "" {
		tok.Expiry = AccessExpiry(tok.AccessToken)
	}
	return tok
}

// AccessExpiry extracts the exp claim without verifying the signature. The
// upstream remains the authority on validity; this only lets the BFF skip
// calls that are certain to be rejected.
func AccessExpiry(raw string) time.Time {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Expired reports whether the access token carries an exp claim in the past.
func Expired(tok *oauth2.Token) bool {
	if tok == nil || tok.Expiry.IsZero() {
		return false
	}
	return !tok.Expiry.After(NowTimeFunc())
}

// BearerFromRequest returns the caller's access credential for forwarding
// upstream. A missing or locally expired access token yields ErrNoCredentials
// so the caller can answer 401 without an upstream round trip.
func BearerFromRequest(r *http.Request) (*oauth2.Token, error) {
	tok := FromRequest(r)
	if tok.AccessToken == "" {
		return nil, bfferrors.Wrapf(bfferrors.ErrNoCredentials, "%s cookie missing", AccessTokenCookie)
	}
	if Expired(tok) {
		return nil, bfferrors.Wrapf(bfferrors.ErrNoCredentials, "access token expired")
	}
	return tok, nil
}

// ApplyBearer sets the Authorization header on an outgoing upstream request.
func ApplyBearer(req *http.Request, tok *oauth2.Token) {
	if tok == nil || tok.AccessToken == "" {
		return
	}
	tok.SetAuthHeader(req)
}
