package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authclient/jwt"
	"github.com/redis/go-redis/v9"
)

const (
	fieldAccess  = "access_token"
	fieldRefresh = "refresh_token"
	fieldExpires = "expires_at"
)

// DefaultRefreshWindow keeps a stored session alive past access-token expiry
// so the refresh token can still be presented.
const DefaultRefreshWindow = 7 * 24 * time.Hour

// RedisStoreConfig configures a [RedisStore].
type RedisStoreConfig struct {
	// Prefix namespaces every key. Defaults to "authclient".
	Prefix string
	// SessionKey identifies the session shared by cooperating processes.
	SessionKey string
	// RefreshWindow is added to the access-token expiry to form the key TTL.
	// Zero selects DefaultRefreshWindow; negative disables expiry.
	RefreshWindow time.Duration
}

// RedisStore is a [TokenStore] shared through Redis. Tokens live in a hash at
// <prefix>:tokens:<sessionKey>; Clear publishes the session key on
// <prefix>:cleared.
type RedisStore struct {
	redis         redis.UniversalClient
	prefix        string
	sessionKey    string
	refreshWindow time.Duration
	now           func() time.Time
	onCleared     clearedCallbacks
}

// NewRedisStore creates a store over rdb.
func NewRedisStore(rdb redis.UniversalClient, cfg RedisStoreConfig) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.SessionKey == "" {
		return nil, errors.New("session key is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "authclient"
	}
	if cfg.RefreshWindow == 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	return &RedisStore{
		redis:         rdb,
		prefix:        cfg.Prefix,
		sessionKey:    cfg.SessionKey,
		refreshWindow: cfg.RefreshWindow,
		now:           time.Now,
	}, nil
}

func (s *RedisStore) key() string {
	return s.prefix + ":tokens:" + s.sessionKey
}

func (s *RedisStore) clearedChannel() string {
	return s.prefix + ":cleared"
}

// Load reads the stored tokens.
func (s *RedisStore) Load(ctx context.Context) (Tokens, error) {
	fields, err := s.redis.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return Tokens{}, ErrNoTokens
	}

	t := Tokens{
		AccessToken:  fields[fieldAccess],
		RefreshToken: fields[fieldRefresh],
	}
	if raw := fields[fieldExpires]; raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err == nil && unix > 0 {
			t.ExpiresAt = time.Unix(unix, 0)
		}
	}
	if t.Empty() {
		return Tokens{}, ErrNoTokens
	}
	return t, nil
}

// Save replaces the stored tokens. A zero ExpiresAt is filled from the access
// token's exp claim when it has one.
func (s *RedisStore) Save(ctx context.Context, t Tokens) error {
	if t.ExpiresAt.IsZero() && t.AccessToken != "" {
		if exp, err := jwt.ExpiresAt(t.AccessToken); err == nil {
			t.ExpiresAt = exp
		}
	}

	values := map[string]any{
		fieldAccess:  t.AccessToken,
		fieldRefresh: t.RefreshToken,
	}
	if !t.ExpiresAt.IsZero() {
		values[fieldExpires] = t.ExpiresAt.Unix()
	}
	ttl := s.ttl(t.ExpiresAt)

	key := s.key()
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ttl(expiresAt time.Time) time.Duration {
	if s.refreshWindow < 0 || expiresAt.IsZero() {
		return 0
	}
	remaining := expiresAt.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining + s.refreshWindow
}

// Clear deletes the session and notifies subscribers.
func (s *RedisStore) Clear(ctx context.Context) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key())
		pipe.Publish(ctx, s.clearedChannel(), s.sessionKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.onCleared.run()
	return nil
}

// OnCleared registers fn to run after every local Clear.
func (s *RedisStore) OnCleared(fn func()) {
	s.onCleared.add(fn)
}

// Subscribe delivers one value each time any process clears this session.
// The channel closes when ctx is done.
func (s *RedisStore) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	pubsub := s.redis.Subscribe(ctx, s.clearedChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload != s.sessionKey {
					continue
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
