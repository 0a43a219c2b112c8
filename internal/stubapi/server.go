package stubapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/authclient/jwt"
)

// Response messages. The bad-credentials message is the discriminator the
// client's default classifier matches.
const (
	MessageInvalidCredentials = "Invalid credentials"
	MessageSessionExpired     = "Session expired"
	MessageRefreshInvalid     = "Refresh token invalid"

	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	refreshCookiePath = "/api/auth"
)

// Config configures a [Server].
type Config struct {
	Username string
	Password string
	// AccessTTL is the access-token lifetime. Zero selects 15 minutes.
	AccessTTL time.Duration
	// Secret signs access tokens (HS256). Empty generates a random one.
	Secret []byte
}

// Item is an inventory item.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Tokens is the body returned by login and refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type sessionRecord struct {
	subject     string
	refreshHash [32]byte
}

// Server is an in-process inventory API with rotating session tokens. It
// backs tests, the load-test CLI and the example.
type Server struct {
	username string
	password string
	jwt      *jwt.Manager

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionRecord
	liveJTI  map[string]struct{}
	items    []Item

	refreshCalls   atomic.Int64
	refreshFailure atomic.Int32
	refreshDelay   atomic.Int64

	mux *http.ServeMux
}

// New creates a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("stubapi: username and password are required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	secret := cfg.Secret
	if len(secret) == 0 {
		s, err := newRefreshSecret()
		if err != nil {
			return nil, err
		}
		secret = s[:]
	}
	manager, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "stubapi",
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		username: cfg.Username,
		password: cfg.Password,
		jwt:      manager,
		sessions: make(map[uuid.UUID]*sessionRecord),
		liveJTI:  make(map[string]struct{}),
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	s.mux.Handle("GET /api/items", s.Guard(http.HandlerFunc(s.handleListItems)))
	s.mux.Handle("POST /api/items", s.Guard(http.HandlerFunc(s.handleCreateItem)))
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Login creates a session for the configured user without an HTTP call.
func (s *Server) Login() (Tokens, error) {
	return s.openSession(s.username)
}

// ExpireAccess invalidates every access token issued so far. Refresh tokens
// stay valid.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	s.liveJTI = make(map[string]struct{})
	s.mu.Unlock()
}

// RevokeSessions invalidates every session, so refreshes fail.
func (s *Server) RevokeSessions() {
	s.mu.Lock()
	s.sessions = make(map[uuid.UUID]*sessionRecord)
	s.liveJTI = make(map[string]struct{})
	s.mu.Unlock()
}

// SetRefreshFailure makes the refresh endpoint answer with status. Zero
// restores normal behaviour.
func (s *Server) SetRefreshFailure(status int) {
	s.refreshFailure.Store(int32(status))
}

// SetRefreshDelay stalls the refresh endpoint, widening the window in which
// concurrent requests queue behind one refresh.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.refreshDelay.Store(int64(d))
}

// RefreshCalls returns the number of refresh requests received.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// Items returns a copy of the inventory.
func (s *Server) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Item(nil), s.items...)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Malformed request")
		return
	}
	if req.Username != s.username || req.Password != s.password {
		writeMessage(w, http.StatusUnauthorized, MessageInvalidCredentials)
		return
	}
	tokens, err := s.openSession(req.Username)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	s.writeTokens(w, tokens)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if status := int(s.refreshFailure.Load()); status != 0 {
		writeMessage(w, status, MessageRefreshInvalid)
		return
	}

	token := refreshTokenFrom(r)
	sid, secret, err := decodeRefreshToken(token)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, MessageRefreshInvalid)
		return
	}

	s.mu.Lock()
	rec, ok := s.sessions[sid]
	if !ok || !secret.matches(rec.refreshHash) {
		s.mu.Unlock()
		writeMessage(w, http.StatusUnauthorized, MessageRefreshInvalid)
		return
	}
	next, err := newRefreshSecret()
	if err != nil {
		s.mu.Unlock()
		writeMessage(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	rec.refreshHash = next.hash()
	subject := rec.subject
	s.mu.Unlock()

	tokens, err := s.issue(subject, sid, next)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Session unavailable")
		return
	}
	s.writeTokens(w, tokens)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sid, _, err := decodeRefreshToken(refreshTokenFrom(r)); err == nil {
		s.mu.Lock()
		delete(s.sessions, sid)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Path: refreshCookiePath, MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.Items()})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || strings.TrimSpace(item.Name) == "" {
		writeMessage(w, http.StatusBadRequest, "Item name is required")
		return
	}
	item.ID = uuid.NewString()
	s.mu.Lock()
	s.items = append(s.items, item)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) openSession(subject string) (Tokens, error) {
	sid := uuid.New()
	secret, err := newRefreshSecret()
	if err != nil {
		return Tokens{}, err
	}
	s.mu.Lock()
	s.sessions[sid] = &sessionRecord{subject: subject, refreshHash: secret.hash()}
	s.mu.Unlock()
	return s.issue(subject, sid, secret)
}

func (s *Server) issue(subject string, sid uuid.UUID, secret refreshSecret) (Tokens, error) {
	access, claims, err := s.jwt.Issue(subject, sid.String())
	if err != nil {
		return Tokens{}, err
	}
	s.mu.Lock()
	s.liveJTI[claims.ID] = struct{}{}
	s.mu.Unlock()
	return Tokens{
		AccessToken:  access,
		RefreshToken: encodeRefreshToken(sid, secret),
		ExpiresIn:    int64(s.jwt.TTL() / time.Second),
		TokenType:    "Bearer",
	}, nil
}

func (s *Server) writeTokens(w http.ResponseWriter, t Tokens) {
	http.SetCookie(w, &http.Cookie{Name: AccessCookie, Value: t.AccessToken, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: t.RefreshToken, Path: refreshCookiePath, HttpOnly: true})
	writeJSON(w, http.StatusOK, t)
}

func refreshTokenFrom(r *http.Request) string {
	if r.Body != nil && r.ContentLength != 0 {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
			return body.RefreshToken
		}
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type subjectContextKey struct{}

// SubjectFromContext returns the subject authenticated by [Server.Guard].
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(string)
	return sub, ok
}
