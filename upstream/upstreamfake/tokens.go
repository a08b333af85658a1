package upstreamfake

import (
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-staff-bff/upstream"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const signingSecret = "upstreamfake-secret"

// storedRefreshToken is the server-side record behind an opaque refresh token.
type storedRefreshToken struct {
	Token  string
	UserID string
	Iat    time.Time
}

// tokenStore issues, validates and rotates the fake's credentials.
type tokenStore struct {
	lock       sync.RWMutex
	access     map[string]string // access token -> user id
	refresh    map[string]*storedRefreshToken
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		access:     make(map[string]string),
		refresh:    make(map[string]*storedRefreshToken),
		accessTTL:  30 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
	}
}

func (ts *tokenStore) issue(userID string) upstream.TokenPair {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	access := ts.signAccessLocked(userID)
	rt := &storedRefreshToken{Token: uuid.NewString(), UserID: userID, Iat: NowTimeFunc()}
	ts.refresh[rt.Token] = rt
	return upstream.TokenPair{Access: access, Refresh: rt.Token}
}

// exchange trades a refresh token for a new access token. With rotate set the
// presented token is consumed and a replacement returned.
func (ts *tokenStore) exchange(refreshToken string, rotate bool) (upstream.TokenPair, bool) {
	ts.lock.Lock()
	defer ts.lock.Unlock()

	rt, ok := ts.refresh[refreshToken]
	if !ok {
		return upstream.TokenPair{}, false
	}
	if NowTimeFunc().Sub(rt.Iat) > ts.refreshTTL {
		delete(ts.refresh, refreshToken)
		return upstream.TokenPair{}, false
	}

	pair := upstream.TokenPair{Access: ts.signAccessLocked(rt.UserID)}
	if rotate {
		delete(ts.refresh, refreshToken)
		next := &storedRefreshToken{Token: uuid.NewString(), UserID: rt.UserID, Iat: NowTimeFunc()}
		ts.refresh[next.Token] = next
		pair.Refresh = next.Token
	}
	return pair, true
}

func (ts *tokenStore) revokeRefresh(refreshToken string) {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	delete(ts.refresh, refreshToken)
}

func (ts *tokenStore) revokeAllAccess() {
	ts.lock.Lock()
	defer ts.lock.Unlock()
	ts.access = make(map[string]string)
}

// authenticate resolves a bearer token to its user. The token must have been
// issued by this store and still verify.
func (ts *tokenStore) authenticate(raw string) (string, bool) {
	ts.lock.RLock()
	userID, ok := ts.access[raw]
	ts.lock.RUnlock()
	if !ok {
		return "", false
	}
	_, err := jwtlib.Parse(raw, func(*jwtlib.Token) (any, error) {
		return []byte(signingSecret), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(NowTimeFunc))
	if err != nil {
		return "", false
	}
	return userID, true
}

func (ts *tokenStore) signAccessLocked(userID string) string {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"sub":        userID,
		"token_type": "access",
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ts.accessTTL).Unix(),
	}
	tok, _ := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	ts.access[tok] = userID
	return tok
}
