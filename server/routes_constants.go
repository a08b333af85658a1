package server

// Route path constants
// All BFF routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Session
	RouteAuthLogin        = "/api/auth/login"
	RouteAuthLogout       = "/api/auth/logout"
	RouteAuthMe           = "/api/auth/me"
	RouteAuthTokenRefresh = "/api/auth/token/refresh"

	// Auth Routes - Account
	RouteAuthPasswordReset        = "/api/auth/password-reset"
	RouteAuthPasswordResetConfirm = "/api/auth/password-reset/confirm"
	RouteAuthChangePassword       = "/api/auth/change-password"
	RouteAuthInviteUser           = "/api/auth/invite-user"
	RouteAuthAcceptInvitation     = "/api/auth/accept-invitation-1"

	// Clock Portal Routes
	RouteClockLogin   = "/api/clock/login"
	RouteClockLogout  = "/api/clock/logout"
	RouteClockSession = "/api/clock/session"
	RouteClockProxy   = "/api/clock/{path...}"

	// Tenant Routes
	RouteTenantSettings = "/api/tenant/settings"

	RouteHealth = "/healthz"
)

// proxiedResources are forwarded to the upstream with the caller's bearer
// token, both at the collection root and every sub path.
var proxiedResources = []string{
	"/api/staff",
	"/api/events",
	"/api/vendors",
	"/api/contracts",
	"/api/attendance",
	"/api/audit-logs",
	"/api/payroll",
	"/api/locations",
}
