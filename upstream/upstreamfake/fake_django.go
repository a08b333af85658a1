// Package upstreamfake is an in-process stand-in for the Django REST API. It
// issues JWT access tokens and rotating refresh tokens, counts calls per path
// and lets tests inject behaviour around refresh.
package upstreamfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-staff-bff/upstream"
	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`

	passwordHash []byte
}

type ClockAdmin struct {
	Email      string
	Password   string
	Name       string
	TenantName string
	// TenantID is written as-is, so a number reproduces Django's integer keys.
	TenantID any
	Token    string
}

type Server struct {
	*httptest.Server

	// RotateRefresh makes every refresh issue a new refresh token and
	// invalidate the one presented.
	RotateRefresh bool
	// OmitRefreshAccess makes refresh succeed without an access token.
	OmitRefreshAccess bool
	// LogoutStatus overrides the logout response status when non-zero.
	LogoutStatus int
	// BeforeRefresh runs inside the refresh handler before tokens are issued.
	BeforeRefresh func()

	mux    *http.ServeMux
	tokens *tokenStore

	mu       sync.Mutex
	calls    map[string]int
	users    map[string]*User
	clock    map[string]ClockAdmin
	lastAuth map[string]string // path -> Authorization header
}

func New() *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		tokens:   newTokenStore(),
		calls:    make(map[string]int),
		users:    make(map[string]*User),
		clock:    make(map[string]ClockAdmin),
		lastAuth: make(map[string]string),
	}

	s.mux.HandleFunc("POST "+upstream.PathLogin, s.login)
	s.mux.HandleFunc("POST "+upstream.PathTokenRefresh, s.tokenRefresh)
	s.mux.HandleFunc("GET "+upstream.PathMe, s.me)
	s.mux.HandleFunc("POST "+upstream.PathLogout, s.logout)
	s.mux.HandleFunc("POST "+upstream.PathAcceptInvitation, s.acceptInvitation)
	s.mux.HandleFunc("POST "+upstream.PathClockLogin, s.clockLogin)

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.lastAuth[r.URL.Path] = r.Header.Get("Authorization")
	s.mu.Unlock()
	s.mux.ServeHTTP(w, r)
}

// Handle registers an extra upstream endpoint.
func (s *Server) Handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, h)
}

// AddUser registers a login and returns the stored user.
func (s *Server) AddUser(email, password string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &User{ID: uuid.NewString(), Email: email, FirstName: "Test", LastName: "User", Role: "admin"}
	u.passwordHash, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.users[strings.ToLower(email)] = u
	return u
}

func (s *Server) AddClockAdmin(admin ClockAdmin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock[strings.ToLower(admin.Email)] = admin
}

// IssueTokens mints a session for the user as if they had logged in.
func (s *Server) IssueTokens(u *User) upstream.TokenPair {
	return s.tokens.issue(u.ID)
}

// RevokeAccess makes every issued access token fail authentication.
func (s *Server) RevokeAccess() {
	s.tokens.revokeAllAccess()
}

func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *Server) LastAuthorization(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth[path]
}

// Authenticated resolves the bearer token on r to a user id.
func (s *Server) Authenticated(r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return "", false
	}
	return s.tokens.authenticate(raw)
}

// RejectToken writes the DRF SimpleJWT response for a bad access token.
func RejectToken(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"detail": "Given token not valid for any token type",
		"code":   "token_not_valid",
	})
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"detail": "Malformed JSON"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(body.Email)]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(body.Password)) != nil {
		s.mu.Unlock()
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid email or password"})
		return
	}
	s.mu.Unlock()
	pair := s.tokens.issue(u.ID)

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    u,
		"tokens":  map[string]string{"access": pair.Access, "refresh": pair.Refresh},
	})
}

func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"token": []string{"Invalid invitation."}})
		return
	}
	u := s.AddUser(body.Token+"@invited.test", body.Password)
	pair := s.tokens.issue(u.ID)

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user":   u,
		"tokens": map[string]string{"access": pair.Access, "refresh": pair.Refresh},
	})
}

func (s *Server) tokenRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	if s.BeforeRefresh != nil {
		s.BeforeRefresh()
	}

	pair, ok := s.tokens.exchange(body.Refresh, s.RotateRefresh)
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	if s.OmitRefreshAccess {
		WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}

	resp := map[string]string{"access": pair.Access}
	if pair.Refresh != "" {
		resp["refresh"] = pair.Refresh
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.Authenticated(r)
	if !ok {
		RejectToken(w)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == userID {
			WriteJSON(w, http.StatusOK, u)
			return
		}
	}
	WriteJSON(w, http.StatusNotFound, map[string]any{"detail": "User not found"})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if s.LogoutStatus != 0 {
		WriteJSON(w, s.LogoutStatus, map[string]any{"detail": "logout failed"})
		return
	}
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.tokens.revokeRefresh(body.Refresh)
	WriteJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (s *Server) clockLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	admin, ok := s.clock[strings.ToLower(body.Email)]
	s.mu.Unlock()
	if !ok || admin.Password != body.Password {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid email or password"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"token":       admin.Token,
		"admin_name":  admin.Name,
		"tenant_name": admin.TenantName,
		"tenant_id":   admin.TenantID,
	})
}
