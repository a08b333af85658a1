package server

import (
	"net/http"

	bfferrors "github.com/jrsteele09/go-staff-bff/internal/errors"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler exchanges credentials for the cookie pair. The upstream body is
// returned to the browser with the tokens stripped.
func (s *Server) LoginHandler() http.HandlerFunc {
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

		resp, err := s.upstream.Login(r.Context(), body)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		if !resp.OK() {
			s.writeUpstreamError(w, resp)
			return
		}

		s.issueSession(w, r, resp, http.StatusOK)
	}
}

// issueSession sets the cookie pair from a login-shaped upstream response and
// writes the rest of the body.
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, resp *upstream.Response, status int) {
	pair, rest, err := upstream.LoginTokens(resp)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.cookies.SetPair(w, pair.Access, pair.Refresh)
	writeJSON(w, status, rest)
}

// LogoutHandler clears the cookie pair first, then tells the upstream. The
// browser is logged out even when the upstream call fails.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := session.FromRequest(r)
		s.cookies.ClearPair(w)

		out := map[string]any{"message": "Logged out successfully"}
		if tok.AccessToken == "" && tok.RefreshToken == "" {
			writeJSON(w, http.StatusOK, out)
			return
		}

		var upstreamErr string
		resp, err := s.upstream.Logout(r.Context(), tok)
		switch {
		case err != nil:
			upstreamErr = err.Error()
		case !resp.OK():
			upstreamErr = resp.Message("upstream logout failed")
		}

		if upstreamErr != "" {
			log.Warn().Str("error", upstreamErr).Msg("upstream logout failed")
			if s.config.GetExposeUpstreamErrors() {
				out["upstreamError"] = upstreamErr
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// RefreshHandler rotates the access cookie using the refresh cookie. A
// rejected refresh token ends the session.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := session.FromRequest(r)
		if tok.RefreshToken == "" {
			log.Debug().Err(bfferrors.ErrNoRefreshToken).Msg("refresh: no refresh cookie")
			writeAuthRequired(w, "No refresh token", "Refresh token missing")
			return
		}

		resp, err := s.upstream.Refresh(r.Context(), tok.RefreshToken)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		if !resp.OK() {
			logRefreshRejected(r, resp)
			s.cookies.ClearPair(w)
			s.writeUpstreamError(w, resp)
			return
		}

		pair, err := upstream.RefreshTokens(resp)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}

		s.cookies.SetAccess(w, pair.Access)
		if pair.Refresh != "" {
			s.cookies.SetRefresh(w, pair.Refresh)
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Token refreshed"})
	}
}

// logRefreshRejected records an upstream refusal of a refresh token. The
// session ends either way.
func logRefreshRejected(r *http.Request, resp *upstream.Response) {
	log.Info().
		Err(bfferrors.Wrapf(bfferrors.ErrRefreshRejected, "upstream status %d", resp.Status)).
		Str("request_id", upstream.RequestIDFrom(r.Context())).
		Str("path", r.URL.Path).
		Msg("session ended")
}

type acceptInvitationRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// AcceptInvitationHandler creates the invited account and signs it in.
func (s *Server) AcceptInvitationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req acceptInvitationRequest
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}

		bag := newValidationBag()
		bag.Required("token", req.Token)
		if bag.Password("password", req.Password) {
			bag.Confirm("confirm_password", req.Password, req.ConfirmPassword)
		}
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}

		resp, err := s.upstream.Do(r.Context(), upstream.Request{
			Method: http.MethodPost,
			Path:   upstream.PathAcceptInvitation,
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

		s.issueSession(w, r, resp, resp.Status)
	}
}
