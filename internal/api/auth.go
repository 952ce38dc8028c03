package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nerrad567/homepanel-core/internal/auth"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
	"github.com/nerrad567/homepanel-core/internal/user"
)

// defaultTicketTTL is used when websocket.ticket_ttl is not configured.
const defaultTicketTTL = 60 * time.Second

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /auth/login and /auth/register.
type loginResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresIn   int        `json:"expires_in"`
	User        *user.User `json:"user"`
}

// ticketStore holds pending WebSocket tickets. Each ticket is bound to the
// principal that requested it and can be redeemed once before it expires.
type ticketStore struct {
	cache *cache.Cache
	ttl   time.Duration
	mu    sync.Mutex
}

func newTicketStore(ttl time.Duration) *ticketStore {
	if ttl <= 0 {
		ttl = defaultTicketTTL
	}
	return &ticketStore{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Issue stores a new ticket for p and returns it.
func (t *ticketStore) Issue(p *tenancy.Principal) string {
	ticket := generateTicket()
	bound := *p
	t.cache.Set(ticket, &bound, cache.DefaultExpiration)
	return ticket
}

// Redeem consumes a ticket and returns the principal it was issued to.
func (t *ticketStore) Redeem(ticket string) (*tenancy.Principal, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.cache.Get(ticket)
	if !ok {
		return nil, false
	}
	t.cache.Delete(ticket)
	p, ok := v.(*tenancy.Principal)
	return p, ok
}

// Flush drops every outstanding ticket.
func (t *ticketStore) Flush() {
	t.cache.Flush()
}

// handleRegister creates a house and its admin account and logs the admin in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	u, err := s.users.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeToken(w, http.StatusCreated, u)
}

// handleLogin authenticates an account and returns a JWT access token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeToken(w, http.StatusOK, u)
}

func (s *Server) writeToken(w http.ResponseWriter, status int, u *user.User) {
	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	token, expires, err := auth.GenerateAccessToken(u.Principal(), s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("generating access token failed", "user", u.ID, "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, status, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expires).Round(time.Second).Seconds()),
		User:        u,
	})
}

// handleMe returns the resolved principal of the caller.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, principal(r))
}

// handleWSTicket issues a single-use WebSocket ticket bound to the caller.
// The client passes it as a query parameter so the JWT never appears in a URL.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := s.tickets.Issue(principal(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(s.tickets.ttl.Seconds()),
	})
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
