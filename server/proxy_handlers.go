package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-staff-bff/upstream"
)

// ResourceProxyHandler forwards a resource route to the same upstream path
// with the caller's bearer token.
func (s *Server) ResourceProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := s.bearer(w, r)
		if !ok {
			return
		}
		s.proxy(w, r, r.URL.EscapedPath(), upstream.Bearer(tok.AccessToken))
	}
}

// TenantSettingsHandler unwraps the upstream {tenant:{...}} envelope so the
// browser sees a flat settings object.
func (s *Server) TenantSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, ok := s.bearer(w, r)
		if !ok {
			return
		}
		resp, ok := s.proxyRequest(w, r, RouteTenantSettings, upstream.Bearer(tok.AccessToken))
		if !ok {
			return
		}
		if !resp.OK() {
			s.writeUpstreamError(w, resp)
			return
		}
		if obj, isObj := resp.Object(); isObj {
			if tenant, wrapped := obj["tenant"].(map[string]any); wrapped {
				writeJSON(w, resp.Status, tenant)
				return
			}
		}
		writeRelay(w, resp)
	}
}

// proxy forwards r to the escaped upstream path and relays the response.
func (s *Server) proxy(w http.ResponseWriter, r *http.Request, path string, authorize func(*http.Request)) {
	resp, ok := s.proxyRequest(w, r, path, authorize)
	if !ok {
		return
	}
	s.relay(w, r, resp)
}

func (s *Server) proxyRequest(w http.ResponseWriter, r *http.Request, path string, authorize func(*http.Request)) (*upstream.Response, bool) {
	body, ok := readBody(w, r, maxProxyBody)
	if !ok {
		return nil, false
	}
	if len(body) == 0 {
		body = nil
	}

	resp, err := s.upstream.Do(r.Context(), upstream.Request{
		Method:      r.Method,
		Path:        djangoPath(path),
		RawQuery:    r.URL.RawQuery,
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Accept:      r.Header.Get("Accept"),
		Authorize:   authorize,
	})
	if err != nil {
		s.writeFailure(w, r, err)
		return nil, false
	}
	return resp, true
}

// relay writes any upstream response back: errors through the envelope,
// spreadsheets and CSV as downloads, everything else through writeRelay.
func (s *Server) relay(w http.ResponseWriter, r *http.Request, resp *upstream.Response) {
	if !resp.OK() {
		s.writeUpstreamError(w, resp)
		return
	}
	if _, isAttachment := attachmentTypes[resp.MediaType()]; isAttachment {
		if err := relayAttachment(w, resp); err != nil {
			s.writeFailure(w, r, err)
		}
		return
	}
	writeRelay(w, resp)
}

// djangoPath appends the trailing slash Django routes expect.
func djangoPath(p string) string {
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}
