// Package apiclient is the caller-side choke point for BFF API calls. It
// carries the session cookies, refreshes an expired session once on behalf of
// every concurrent caller and replays the failed request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshPath = "/api/auth/token/refresh"
	DefaultLoginPath   = "/api/auth/login"
	LoginPagePath      = "/login"
)

type Client struct {
	baseURL     *url.URL
	http        *http.Client
	refreshPath string
	loginPath   string
	maxRetries  int

	onLoginRedirect func(loginURL string)
	currentPath     func() string

	refreshGroup singleflight.Group
}

type Option func(*Client)

// WithHTTPClient replaces the transport. A client without a jar gets one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLoginRedirect is called with /login?redirect=... when the session cannot
// be recovered.
func WithLoginRedirect(fn func(loginURL string)) Option {
	return func(c *Client) {
		c.onLoginRedirect = fn
	}
}

// WithCurrentPath supplies the location to return to after logging in.
func WithCurrentPath(fn func() string) Option {
	return func(c *Client) {
		c.currentPath = fn
	}
}

func WithRefreshPath(p string) Option {
	return func(c *Client) {
		c.refreshPath = p
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("[apiclient New] parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[apiclient New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:     u,
		refreshPath: DefaultRefreshPath,
		loginPath:   DefaultLoginPath,
		maxRetries:  1,
		currentPath: func() string { return "/" },
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("[apiclient New] cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Cookies returns the cookies the client would send to the BFF.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.baseURL)
}

// Call sends one request and decodes a 2xx JSON body into out. A session-class
// 401 triggers a shared refresh followed by a replay, at most maxRetries times.
// When the session cannot be recovered the login redirect fires and an
// *AuthError is returned. Other failures come back as *APIError.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("[apiclient Call] encode body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, respBody, err := c.send(ctx, method, endpoint, payload)
		if err != nil {
			return err
		}

		if status >= 200 && status < 300 {
			return decodeInto(respBody, out)
		}

		if status != http.StatusUnauthorized || !c.refreshable(endpoint) || !isAuthFailure(respBody) {
			return parseErrorBody(status, respBody)
		}

		if attempt >= c.maxRetries {
			log.Warn().Str("endpoint", endpoint).Int("attempt", attempt).Msg("session still rejected after refresh")
			return c.redirectToLogin(status)
		}

		if !c.Refresh(ctx) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return c.redirectToLogin(status)
		}
	}
}

// Refresh asks the BFF to rotate the session cookies. Concurrent callers share
// a single in-flight refresh and its outcome. The shared call is not cancelled
// when the caller that started it gives up.
func (c *Client) Refresh(ctx context.Context) bool {
	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		return c.doRefresh(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}

func (c *Client) doRefresh(ctx context.Context) bool {
	status, _, err := c.send(ctx, http.MethodPost, c.refreshPath, nil)
	if err != nil {
		log.Err(err).Msg("session refresh failed")
		return false
	}
	if status < 200 || status >= 300 {
		log.Info().Int("status", status).Msg("session refresh rejected")
		return false
	}
	return true
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("[apiclient send] build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("[apiclient send] %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("[apiclient send] read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) resolve(endpoint string) (string, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("[apiclient resolve] %q: %w", endpoint, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawQuery = ref.RawQuery
	return u.String(), nil
}

// refreshable is false for the endpoints that establish a session; a 401 from
// them is a credential failure, not an expired session.
func (c *Client) refreshable(endpoint string) bool {
	p := strings.TrimRight(strings.SplitN(endpoint, "?", 2)[0], "/")
	return p != strings.TrimRight(c.refreshPath, "/") && p != strings.TrimRight(c.loginPath, "/")
}

func (c *Client) redirectToLogin(status int) error {
	loginURL := LoginPagePath + "?redirect=" + url.QueryEscape(c.currentPath())
	if c.onLoginRedirect != nil {
		c.onLoginRedirect(loginURL)
	}
	return &AuthError{Status: status, RedirectURL: loginURL}
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("[apiclient decode] %w", err)
	}
	return nil
}
