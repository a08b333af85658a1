package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	maxJSONBody  = 1 << 20  // 1 MiB
	maxProxyBody = 25 << 20 // face verification uploads
)

// errorResponse is the JSON error envelope shared by every route.
type errorResponse struct {
	Message  string              `json:"message"`
	Errors   map[string][]string `json:"errors,omitempty"`
	Code     string              `json:"code,omitempty"`
	Upstream any                 `json:"upstream,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	writeJSON(w, status, errorResponse{Message: message, Errors: fields})
}

// writeAuthRequired answers 401 with errors.auth populated, the shape the
// request client recognises as an expired session.
func writeAuthRequired(w http.ResponseWriter, message, reason string) {
	writeError(w, http.StatusUnauthorized, message, map[string][]string{"auth": {reason}})
}

// writeFailure maps a local or transport error onto the envelope.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var message string
	switch {
	case bfferrors.Is(err, bfferrors.ErrMissingUpstreamURL):
		status, message = http.StatusInternalServerError, "Server misconfiguration"
	case bfferrors.Is(err, bfferrors.ErrUpstreamUnavailable):
		status, message = http.StatusBadGateway, "Upstream service unavailable"
	case bfferrors.Is(err, bfferrors.ErrCorruptAttachment):
		status, message = http.StatusBadGateway, "Upstream returned an unreadable file"
	case bfferrors.Is(err, bfferrors.ErrTokensMissing):
		status, message = http.StatusInternalServerError, "Invalid response from authentication service"
	default:
		status, message = http.StatusInternalServerError, "Internal server error"
	}

	log.Err(err).
		Str("request_id", upstream.RequestIDFrom(r.Context())).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg(message)
	writeError(w, status, message, nil)
}

// writeUpstreamError relays a non-2xx upstream response with its status kept.
// The raw upstream payload is attached only outside production.
func (s *Server) writeUpstreamError(w http.ResponseWriter, resp *upstream.Response) {
	out := errorResponse{
		Message: resp.Message(fmt.Sprintf("Request failed with status %d", resp.Status)),
		Errors:  resp.FieldErrors(),
		Code:    resp.Code(),
	}
	if s.config.GetExposeUpstreamErrors() {
		if obj, ok := resp.Object(); ok {
			out.Upstream = obj
		} else if raw := strings.TrimSpace(string(resp.Body)); raw != "" {
			out.Upstream = raw
		}
	}
	writeJSON(w, resp.Status, out)
}

// writeRelay writes a 2xx upstream response. JSON passes through untouched;
// any other text is wrapped as {raw}.
func writeRelay(w http.ResponseWriter, resp *upstream.Response) {
	if resp.Status == http.StatusNoContent || len(resp.Body) == 0 {
		w.WriteHeader(resp.Status)
		return
	}
	if resp.IsJSON() {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(resp.Status)
		_, _ = w.Write(resp.Body)
		return
	}
	mt := resp.MediaType()
	if mt == "" || strings.HasPrefix(mt, "text/") {
		writeJSON(w, resp.Status, map[string]string{"raw": string(resp.Body)})
		return
	}
	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// readBody reads a bounded request body. ok is false once an error response
// has been written.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	if r.Body == nil {
		return nil, true
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if bfferrors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", nil)
		return nil, false
	}
	return data, true
}

// decodeJSONBody reads and decodes a JSON body into v, returning the raw
// bytes for forwarding.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) ([]byte, bool) {
	data, ok := readBody(w, r, maxJSONBody)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Debug().
			Err(bfferrors.Wrapf(bfferrors.ErrInvalidBody, "%v", err)).
			Str("path", r.URL.Path).
			Msg("rejected request body")
		writeError(w, http.StatusBadRequest, "Invalid request body", map[string][]string{"body": {"Invalid JSON"}})
		return nil, false
	}
	return data, true
}
