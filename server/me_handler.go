package server

import (
	"net/http"

	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
)

// MeHandler returns the current profile, refreshing an expired or rejected
// access token inline so callers never orchestrate the refresh themselves.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := session.FromRequest(r)
		state := session.Classify(tok)

		if state == session.AccessValid {
			resp, err := s.upstream.Me(r.Context(), tok.AccessToken)
			if err != nil {
				s.writeFailure(w, r, err)
				return
			}
			if resp.OK() {
				writeRelay(w, resp)
				return
			}
			if resp.Status != http.StatusUnauthorized {
				s.writeUpstreamError(w, resp)
				return
			}
			state = session.AfterRejection(tok)
		}

		log.Debug().Str("state", state.String()).Msg("me: session state")

		switch state {
		case session.Unauthenticated:
			writeAuthRequired(w, "Not authenticated", "Authentication credentials were not provided")
			return
		case session.Invalid:
			s.cookies.ClearAccess(w)
			writeAuthRequired(w, "Session expired", "Access token is invalid and no refresh token is available")
			return
		}

		s.refreshAndRetryMe(w, r, tok.RefreshToken)
	}
}

func (s *Server) refreshAndRetryMe(w http.ResponseWriter, r *http.Request, refreshToken string) {
	resp, err := s.upstream.Refresh(r.Context(), refreshToken)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !resp.OK() {
		logRefreshRejected(r, resp)
		s.cookies.ClearPair(w)
		writeAuthRequired(w, "Session expired", "Refresh token is invalid or expired")
		return
	}

	pair, err := upstream.RefreshTokens(resp)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	me, err := s.upstream.Me(r.Context(), pair.Access)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !me.OK() {
		s.writeUpstreamError(w, me)
		return
	}

	s.cookies.SetAccess(w, pair.Access)
	if pair.Refresh != "" {
		s.cookies.SetRefresh(w, pair.Refresh)
	}
	writeRelay(w, me)
}
