// Package upstream talks to the Django REST API that owns every business
// record. The BFF never interprets business payloads; it forwards them and
// reads only the token fields it needs to manage cookies.
package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-staff-bff/internal/config"
	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/rs/zerolog/log"
)

// Upstream paths. Django routes end in a slash.
const (
	PathLogin                = "/api/auth/login/"
	PathLogout               = "/api/auth/logout/"
	PathMe                   = "/api/auth/me/"
	PathTokenRefresh         = "/api/auth/token/refresh/"
	PathPasswordReset        = "/api/auth/password-reset/"
	PathPasswordResetConfirm = "/api/auth/password-reset/confirm/"
	PathAcceptInvitation     = "/api/auth/accept-invitation/"
	PathChangePassword       = "/api/auth/change-password/"
	PathInviteUser           = "/api/auth/invite-user/"
	PathClockLogin           = "/api/clock/login/"

	HeaderRequestID = "X-Request-ID"
)

// Request describes one call to the upstream API.
type Request struct {
	Method string
	// Path is the escaped upstream path. Percent-escapes are kept as escapes.
	Path        string
	RawQuery    string
	Body        []byte
	ContentType string
	Accept      string
	// Authorize attaches credentials to the outgoing request.
	Authorize func(*http.Request)
}

// Client issues requests against the configured upstream base URL.
type Client struct {
	cfg  config.EnvConfig
	http *http.Client
}

func NewClient(cfg config.EnvConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.GetUpstreamTimeout()}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// Do sends req and reads the whole response body. The base URL is resolved per
// call so a missing DJANGO_API_URL surfaces as ErrMissingUpstreamURL on every
// route that needs it.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	baseURL, err := c.cfg.GetUpstreamURL()
	if err != nil {
		return nil, err
	}

	target, err := resolve(baseURL, req.Path, req.RawQuery)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, bfferrors.Wrapf(err, "[upstream Do] build request")
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	} else if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	accept := req.Accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)

	requestID := RequestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(HeaderRequestID, requestID)

	if req.Authorize != nil {
		req.Authorize(httpReq)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		log.Err(err).
			Str("request_id", requestID).
			Str("method", method).
			Str("path", req.Path).
			Msg("upstream request failed")
		return nil, bfferrors.Wrapf(bfferrors.ErrUpstreamUnavailable, "%s %s: %v", method, req.Path, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, bfferrors.Wrapf(bfferrors.ErrUpstreamUnavailable, "%s %s: read body: %v", method, req.Path, err)
	}

	log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream")

	return &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

// resolve joins an escaped path onto the base URL without decoding it, so an
// escaped "?" or "%" stays part of the path segment.
func resolve(baseURL, escapedPath, rawQuery string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", bfferrors.Wrapf(err, "[upstream resolve] base url %q", baseURL)
	}
	if _, err := url.PathUnescape(escapedPath); err != nil {
		return "", bfferrors.Wrapf(err, "[upstream resolve] path %q", escapedPath)
	}
	target := base.JoinPath(ensureLeadingSlash(escapedPath))
	target.RawQuery = rawQuery
	target.Fragment = ""
	return target.String(), nil
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

type requestIDKey struct{}

// WithRequestID stores the inbound request id so upstream calls reuse it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
