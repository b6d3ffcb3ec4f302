package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/ledtube-core/internal/auth"
)

const (
	tokenIssuer = "ledtube"

	// defaultTokenTTL applies when security.jwt.access_token_ttl is unset.
	defaultTokenTTL = 60 * time.Minute

	// ticketTTL bounds the gap between POST /auth/ws-ticket and the
	// socket dial.
	ticketTTL = 60 * time.Second
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// handleLogin exchanges the operator account's credentials for a bearer
// token. There is a single account, configured in security.auth.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.secCfg.Auth.Enabled {
		writeBadRequest(w, "authentication is disabled")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !s.checkCredentials(req.Username, req.Password) {
		s.logger.Warn("login rejected", "username", req.Username, "remote", r.RemoteAddr)
		writeUnauthorized(w, "invalid credentials")
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	signed, err := s.issueToken(req.Username, ttl)
	if err != nil {
		s.logger.Error("signing access token", "error", err)
		writeInternalError(w, "failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

// checkCredentials compares in constant time. security.auth.password may
// hold plaintext or an Argon2id hash from "ledtube hash-password".
func (s *Server) checkCredentials(username, password string) bool {
	acct := s.secCfg.Auth
	if acct.Username == "" || acct.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(acct.Username)) == 1
	return auth.Matches(acct.Password, password) && userOK
}

func (s *Server) signingKey() []byte {
	return []byte(s.secCfg.JWT.Secret)
}

// issueToken signs an HS256 token for subject that expires after ttl.
func (s *Server) issueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(s.signingKey())
}

// parseToken returns the subject of a valid, unexpired token from this
// issuer. Only HS256 is accepted.
func (s *Server) parseToken(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return s.signingKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ticketStore holds single-use WebSocket tickets and their deadlines.
// Browsers cannot attach a bearer header to a socket dial, and a JWT in the
// URL would end up in proxy logs.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]time.Time)}
}

func generateTicket() string {
	return rand.Text()
}

func (t *ticketStore) issue(now time.Time) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = now.Add(ticketTTL)
	t.mu.Unlock()
	return ticket
}

// consume removes ticket and reports whether it was still valid at now.
func (t *ticketStore) consume(ticket string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	deadline, ok := t.tickets[ticket]
	delete(t.tickets, ticket)
	return ok && now.Before(deadline)
}

func (t *ticketStore) cleanExpired(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ticket, deadline := range t.tickets {
		if now.After(deadline) {
			delete(t.tickets, ticket)
		}
	}
}

func (s *Server) handleWSTicket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     s.tickets.issue(time.Now()),
		"expires_in": int(ticketTTL.Seconds()),
	})
}

func (s *Server) validateTicket(ticket string) bool {
	return s.tickets.consume(ticket, time.Now())
}

// cleanTicketsLoop drops tickets that were issued but never used.
func (s *Server) cleanTicketsLoop(ctx context.Context) {
	tick := time.NewTicker(ticketTTL)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			s.tickets.cleanExpired(now)
		}
	}
}
