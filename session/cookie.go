package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// CookieStore is an http.CookieJar whose Clear discards every cookie.
type CookieStore struct {
	mu        sync.RWMutex
	jar       *cookiejar.Jar
	options   *cookiejar.Options
	onCleared clearedCallbacks
}

// NewCookieStore returns an empty cookie store. opts may be nil.
func NewCookieStore(opts *cookiejar.Options) (*CookieStore, error) {
	jar, err := cookiejar.New(opts)
	if err != nil {
		return nil, err
	}
	return &CookieStore{jar: jar, options: opts}, nil
}

// SetCookies implements http.CookieJar.
func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.RLock()
	jar := s.jar
	s.mu.RUnlock()
	return jar.Cookies(u)
}

// Clear swaps in a fresh jar and runs OnCleared callbacks.
func (s *CookieStore) Clear(ctx context.Context) error {
	jar, err := cookiejar.New(s.options)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.jar = jar
	s.mu.Unlock()
	s.onCleared.run()
	return nil
}

// OnCleared registers fn to run after every Clear.
func (s *CookieStore) OnCleared(fn func()) {
	s.onCleared.add(fn)
}
