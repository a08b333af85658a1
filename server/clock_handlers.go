package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
)

type clockSessionResponse struct {
	AdminName  string `json:"adminName"`
	TenantName string `json:"tenantName"`
	TenantID   string `json:"tenantId"`
	SessionID  string `json:"sessionId,omitempty"`
}

// clockLoginResponse is the upstream kiosk login payload. The tenant id is a
// primary key and arrives as a JSON number or string.
type clockLoginResponse struct {
	Token      string          `json:"token"`
	AdminName  string          `json:"admin_name"`
	TenantName string          `json:"tenant_name"`
	TenantID   json.RawMessage `json:"tenant_id"`
}

func decodeClockLogin(resp *upstream.Response) (session.ClockBundle, error) {
	var c clockLoginResponse
	if err := resp.Decode(&c); err != nil {
		return session.ClockBundle{}, err
	}
	tenantID, err := idString(c.TenantID)
	if err != nil {
		return session.ClockBundle{}, err
	}
	return session.ClockBundle{
		Token:      c.Token,
		AdminName:  c.AdminName,
		TenantName: c.TenantName,
		TenantID:   tenantID,
	}, nil
}

// idString renders a JSON id, number or string, as cookie text.
func idString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func newClockSessionResponse(b session.ClockBundle) clockSessionResponse {
	return clockSessionResponse{
		AdminName:  b.AdminName,
		TenantName: b.TenantName,
		TenantID:   b.TenantID,
		SessionID:  b.SessionID,
	}
}

// ClockLoginHandler signs a kiosk into the clock portal. The clock cookies
// live beside the admin session and never touch it.
func (s *Server) ClockLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}
		bag := newValidationBag()
		bag.Email("email", req.Email)
		bag.Required("password", req.Password)
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}

		resp, err := s.upstream.Do(r.Context(), upstream.Request{
			Method: http.MethodPost,
			Path:   upstream.PathClockLogin,
			Body:   body,
		})
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		if !resp.OK() {
			s.writeUpstreamError(w, resp)
			return
		}

		bundle, err := decodeClockLogin(resp)
		if err != nil || bundle.Token == "" {
			log.Error().Err(err).Msg("clock login response has no token")
			writeError(w, http.StatusInternalServerError, "Invalid response from clock service", nil)
			return
		}
		bundle.SessionID = uuid.NewString()

		s.cookies.SetClock(w, bundle)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Clock portal login successful",
			"session": newClockSessionResponse(bundle),
		})
	}
}

func (s *Server) ClockSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle, err := session.ClockFromRequest(r)
		if err != nil {
			writeAuthRequired(w, "Clock portal session required", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, newClockSessionResponse(bundle))
	}
}

func (s *Server) ClockLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.cookies.ClearClock(w)
		writeJSON(w, http.StatusOK, map[string]any{"message": "Clock portal logged out"})
	}
}

// ClockProxyHandler forwards kiosk calls (check-in, check-out, face
// verification, staff lookup) with the clock headers in place of a bearer.
func (s *Server) ClockProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bundle, err := session.ClockFromRequest(r)
		if err != nil {
			writeAuthRequired(w, "Clock portal session required", err.Error())
			return
		}
		s.proxy(w, r, r.URL.EscapedPath(), bundle.Apply)
	}
}
