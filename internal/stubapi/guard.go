package stubapi

import (
	"context"
	"net/http"
	"strings"
)

// Guard rejects requests without a live access token. The token is read from
// the Authorization header, then the access cookie. Every rejection is a 401
// with [MessageSessionExpired].
func (s *Server) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := accessToken(r)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, MessageSessionExpired)
			return
		}

		claims, err := s.jwt.Parse(token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, MessageSessionExpired)
			return
		}

		s.mu.Lock()
		_, live := s.liveJTI[claims.ID]
		s.mu.Unlock()
		if !live {
			writeMessage(w, http.StatusUnauthorized, MessageSessionExpired)
			return
		}

		ctx := context.WithValue(r.Context(), subjectContextKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessToken(r *http.Request) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	token := value[len(bearer):]
	if token == "" {
		return "", false
	}
	return token, true
}
