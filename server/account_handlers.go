package server

import (
	"net/http"

	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"golang.org/x/oauth2"
)

var inviteRoles = []string{"admin", "manager", "staff"}

// forward sends a validated body to the upstream and relays the outcome.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, path string, body []byte, tok *oauth2.Token) {
	req := upstream.Request{Method: http.MethodPost, Path: path, Body: body}
	if tok != nil {
		req.Authorize = upstream.Bearer(tok.AccessToken)
	}
	resp, err := s.upstream.Do(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !resp.OK() {
		s.writeUpstreamError(w, resp)
		return
	}
	writeRelay(w, resp)
}

// bearer resolves the access cookie or answers 401.
func (s *Server) bearer(w http.ResponseWriter, r *http.Request) (*oauth2.Token, bool) {
	tok, err := session.BearerFromRequest(r)
	if err != nil {
		writeAuthRequired(w, "Authentication required", "Session expired or missing. Please log in again.")
		return nil, false
	}
	return tok, true
}

func (s *Server) PasswordResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}
		bag := newValidationBag()
		bag.Email("email", req.Email)
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}
		s.forward(w, r, upstream.PathPasswordReset, body, nil)
	}
}

func (s *Server) PasswordResetConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UID             string `json:"uid"`
			Token           string `json:"token"`
			NewPassword     string `json:"new_password"`
			ConfirmPassword string `json:"confirm_password"`
		}
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}
		bag := newValidationBag()
		bag.Required("uid", req.UID)
		bag.Required("token", req.Token)
		if bag.Password("new_password", req.NewPassword) {
			bag.Confirm("confirm_password", req.NewPassword, req.ConfirmPassword)
		}
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}
		s.forward(w, r, upstream.PathPasswordResetConfirm, body, nil)
	}
}

func (s *Server) ChangePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := s.bearer(w, r)
		if !ok {
			return
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}
		bag := newValidationBag()
		bag.Required("old_password", req.OldPassword)
		if bag.Password("new_password", req.NewPassword) && req.NewPassword == req.OldPassword {
			bag.Add("new_password", "New password must differ from the current password")
		}
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}
		s.forward(w, r, upstream.PathChangePassword, body, tok)
	}
}

func (s *Server) InviteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := s.bearer(w, r)
		if !ok {
			return
		}
		var req struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		}
		body, ok := decodeJSONBody(w, r, &req)
		if !ok {
			return
		}
		bag := newValidationBag()
		bag.Email("email", req.Email)
		bag.OneOf("role", req.Role, inviteRoles...)
		if !bag.Valid() {
			writeError(w, http.StatusBadRequest, "Validation failed", bag.Errors)
			return
		}
		s.forward(w, r, upstream.PathInviteUser, body, tok)
	}
}
