// Package server is the backend-for-frontend HTTP surface. It owns the
// session cookies and forwards everything else to the upstream API.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-staff-bff/internal/config"
	"github.com/jrsteele09/go-staff-bff/session"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env      string // Environment (e.g., "development", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	upstream *upstream.Client
	cookies  *session.CookieWriter
}

// New builds the server. A nil upstream client gets one built from config.
func New(config config.Config, upstreamClient *upstream.Client) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("[Server New] config is required")
	}
	if upstreamClient == nil {
		upstreamClient = upstream.NewClient(config, nil)
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		upstream: upstreamClient,
		cookies:  session.NewCookieWriter(config),
	}

	if _, err := config.GetUpstreamURL(); err != nil {
		// Routes still come up; each proxying route answers with a
		// misconfiguration error until the variable is set.
		log.Warn().Err(err).Msg("DJANGO_API_URL is not set")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) isDevelopment() bool {
	return s.env == config.EnvDevelopment
}

func (s *Server) logRoutes() {
	if !s.isDevelopment() {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("ANY", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%s] %s", colourMethod(method), path)
}
