package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
)

// Codes the upstream sends for session-class failures.
var authCodes = map[string]bool{
	"token_not_valid":       true,
	"authentication_failed": true,
	"not_authenticated":     true,
}

// AuthError means the session is gone and the caller has been sent to login.
// Toast layers should stay quiet about it.
type AuthError struct {
	Status      int
	RedirectURL string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication required (status %d), redirecting to %s", e.Status, e.RedirectURL)
}

func (e *AuthError) Unwrap() error {
	return bfferrors.ErrAuthRequired
}

func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is any non-2xx response that is not an auth-class 401.
type APIError struct {
	Status  int
	Message string
	Errors  map[string][]string
	Body    []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Messages flattens err into lines for display: field messages first, the
// top level message otherwise. Auth errors produce nothing.
func Messages(err error) []string {
	if err == nil || IsAuthError(err) {
		return nil
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return []string{err.Error()}
	}

	keys := make([]string, 0, len(apiErr.Errors))
	for k := range apiErr.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		out = append(out, apiErr.Errors[k]...)
	}
	if len(out) == 0 && apiErr.Message != "" {
		out = append(out, apiErr.Message)
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("Request failed with status %d", apiErr.Status))
	}
	return out
}

type errorBody struct {
	Message string         `json:"message"`
	Detail  string         `json:"detail"`
	Code    string         `json:"code"`
	Errors  map[string]any `json:"errors"`
}

func parseErrorBody(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	apiErr.Message = eb.Message
	if apiErr.Message == "" {
		apiErr.Message = eb.Detail
	}
	if len(eb.Errors) > 0 {
		apiErr.Errors = map[string][]string{}
		for k, v := range eb.Errors {
			switch t := v.(type) {
			case string:
				apiErr.Errors[k] = []string{t}
			case []any:
				for _, item := range t {
					if s, ok := item.(string); ok {
						apiErr.Errors[k] = append(apiErr.Errors[k], s)
					}
				}
			}
		}
	}
	return apiErr
}

// isAuthFailure reports whether a 401 body signals an expired or invalid
// session rather than a permission problem. A structured code or an
// errors.auth entry decides; message text is the fallback for upstreams
// that send neither.
func isAuthFailure(body []byte) bool {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return false
	}
	if eb.Code != "" {
		return authCodes[eb.Code]
	}
	if _, ok := eb.Errors["auth"]; ok {
		return true
	}
	text := strings.ToLower(eb.Message + " " + eb.Detail)
	for _, needle := range []string{"token", "authentication", "unauthorized"} {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
