package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoTokens is returned by [TokenStore.Load] when no session is stored.
var ErrNoTokens = errors.New("no session tokens")

// ErrStoreUnavailable wraps backend failures.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is the minimal capability required by the refresh coordinator.
// Clear on an empty store succeeds.
type Store interface {
	Clear(ctx context.Context) error
}

// TokenStore persists bearer tokens.
type TokenStore interface {
	Store
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
}

// Tokens is a bearer session. ExpiresAt is the access-token expiry and may be
// zero when unknown.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Empty reports whether t carries no credentials.
func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type clearedCallbacks struct {
	mu  sync.Mutex
	fns []func()
}

func (c *clearedCallbacks) add(fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

func (c *clearedCallbacks) run() {
	c.mu.Lock()
	fns := append([]func(){}, c.fns...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// MemoryStore is an in-process [TokenStore]. The zero value is ready to use.
type MemoryStore struct {
	mu        sync.RWMutex
	tokens    Tokens
	onCleared clearedCallbacks
}

// NewMemoryStore returns a store seeded with t.
func NewMemoryStore(t Tokens) *MemoryStore {
	return &MemoryStore{tokens: t}
}

// Load returns the stored tokens or [ErrNoTokens].
func (s *MemoryStore) Load(ctx context.Context) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens.Empty() {
		return Tokens{}, ErrNoTokens
	}
	return s.tokens, nil
}

// Save replaces the stored tokens.
func (s *MemoryStore) Save(ctx context.Context, t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	return nil
}

// Clear drops the stored tokens and runs OnCleared callbacks.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
	s.onCleared.run()
	return nil
}

// OnCleared registers fn to run after every Clear.
func (s *MemoryStore) OnCleared(fn func()) {
	s.onCleared.add(fn)
}
