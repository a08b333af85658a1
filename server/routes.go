package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// SESSION
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthTokenRefresh, ChainMiddleware(s.RefreshHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.SameOriginMiddleware()...))

	// ACCOUNT
	s.RegisterRouteHandler("POST "+RouteAuthPasswordReset, ChainMiddleware(s.PasswordResetHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthPasswordResetConfirm, ChainMiddleware(s.PasswordResetConfirmHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthInviteUser, ChainMiddleware(s.InviteUserHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthAcceptInvitation, ChainMiddleware(s.AcceptInvitationHandler(), s.SameOriginMiddleware()...))

	// CLOCK PORTAL
	s.RegisterRouteHandler("POST "+RouteClockLogin, ChainMiddleware(s.ClockLoginHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteClockLogout, ChainMiddleware(s.ClockLogoutHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteClockSession, ChainMiddleware(s.ClockSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler(RouteClockProxy, ChainMiddleware(s.ClockProxyHandler(), s.SameOriginMiddleware()...))

	// RESOURCES
	s.RegisterRouteHandler("GET "+RouteTenantSettings, ChainMiddleware(s.TenantSettingsHandler(), s.SameOriginMiddleware()...))
	s.RegisterRouteHandler("PATCH "+RouteTenantSettings, ChainMiddleware(s.TenantSettingsHandler(), s.SameOriginMiddleware()...))
	for _, resource := range proxiedResources {
		s.RegisterRouteHandler(resource, ChainMiddleware(s.ResourceProxyHandler(), s.SameOriginMiddleware()...))
		s.RegisterRouteHandler(resource+"/{path...}", ChainMiddleware(s.ResourceProxyHandler(), s.SameOriginMiddleware()...))
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := s.config.GetUpstreamURL()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":             "ok",
			"upstreamConfigured": err == nil,
		})
	}
}
