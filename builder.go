package authclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	internalaudit "github.com/MrEthical07/authclient/internal/audit"
	"github.com/MrEthical07/authclient/internal/flows"
	"github.com/MrEthical07/authclient/refresh"
	"github.com/MrEthical07/authclient/session"
	"github.com/MrEthical07/authclient/transport"
)

// Builder constructs a [Client]. Each Builder builds at most one client.
type Builder struct {
	config    Config
	transport Transport
	store     CredentialStore
	redis     redis.UniversalClient
	logger    logrus.FieldLogger
	sink      EventSink
	built     bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTransport injects the transport used for every call, including the
// refresh call. The default is [transport.HTTP] over Transport.BaseURL.
func (b *Builder) WithTransport(t Transport) *Builder {
	b.transport = t
	return b
}

// WithCredentialStore injects the store cleared on refresh failure. In
// bearer mode it must also implement [session.TokenStore].
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.store = s
	return b
}

// WithRedis supplies the Redis client for a bearer-mode shared session. The
// caller keeps ownership of rdb.
func (b *Builder) WithRedis(rdb redis.UniversalClient) *Builder {
	b.redis = rdb
	return b
}

// WithLogger injects a logger. Without one, a logger is built from
// Config.Logging.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithEventSink sets the event sink and enables event dispatch.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	b.config.Events.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("authclient: builder already used")
	}
	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("authclient: %w", err)
	}

	logger := b.logger
	if logger == nil {
		l, err := NewLogger(cfg.Logging, nil)
		if err != nil {
			return nil, fmt.Errorf("authclient: logging: %w", err)
		}
		logger = l
	}

	c := &Client{
		config:     cfg,
		classifier: newClassifier(cfg.Auth),
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger.WithField("component", "authclient"),
	}

	store, err := b.buildStore(c)
	if err != nil {
		c.runClosers()
		return nil, err
	}
	c.store = store

	var tokens session.TokenStore
	if cfg.Session.Mode == SessionBearer {
		ts, ok := store.(session.TokenStore)
		if !ok {
			c.runClosers()
			return nil, errors.New("authclient: bearer mode requires a session.TokenStore")
		}
		tokens = ts
	}

	c.transport = b.transport
	if c.transport == nil {
		t, err := defaultTransport(cfg.Transport, store, tokens)
		if err != nil {
			c.runClosers()
			return nil, fmt.Errorf("authclient: transport: %w", err)
		}
		c.transport = t
	}

	invoker := &sessionRefresher{
		transport: c.transport,
		method:    cfg.Refresh.Method,
		path:      cfg.Refresh.Path,
		tokens:    tokens,
	}
	coordinator, err := refresh.New(invoker, store, refresh.Config{
		Timeout: cfg.Refresh.Timeout,
		Hooks:   c.refreshHooks(),
	})
	if err != nil {
		c.runClosers()
		return nil, fmt.Errorf("authclient: %w", err)
	}
	c.coordinator = coordinator

	if cfg.Events.Enabled {
		c.events = internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    true,
			BufferSize: cfg.Events.BufferSize,
			DropIfFull: cfg.Events.DropIfFull,
			OnSinkPanic: func(recovered any, event Event) {
				c.logger.WithFields(logrus.Fields{
					"event_type": event.EventType,
					"panic":      recovered,
				}).Error("event sink panicked")
			},
		}, b.sink)
	}

	c.flows = flows.New(flows.Deps{
		Dispatch: c.dispatchDeps(),
		Logout:   c.logoutDeps(),
	})

	b.built = true
	return c, nil
}

func (b *Builder) buildStore(c *Client) (CredentialStore, error) {
	if b.store != nil {
		return b.store, nil
	}
	sc := c.config.Session
	if sc.Mode == SessionCookie {
		return session.NewCookieStore(nil)
	}

	rdb := b.redis
	if rdb == nil && sc.RedisAddr != "" {
		owned := redis.NewClient(&redis.Options{Addr: sc.RedisAddr})
		c.closers = append(c.closers, owned.Close)
		rdb = owned
	}
	if rdb == nil {
		return &session.MemoryStore{}, nil
	}
	store, err := session.NewRedisStore(rdb, session.RedisStoreConfig{
		Prefix:        sc.RedisPrefix,
		SessionKey:    sc.SessionKey,
		RefreshWindow: sc.RefreshWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("authclient: session store: %w", err)
	}
	return store, nil
}

func defaultTransport(cfg TransportConfig, store CredentialStore, tokens session.TokenStore) (Transport, error) {
	tc := transport.Config{
		BaseURL:          cfg.BaseURL,
		Timeout:          cfg.Timeout,
		MaxRPS:           cfg.MaxRPS,
		Burst:            cfg.Burst,
		UserAgent:        cfg.UserAgent,
		MaxResponseBytes: cfg.MaxResponseBytes,
	}
	if jar, ok := store.(http.CookieJar); ok {
		tc.Jar = jar
	}
	if tokens != nil {
		tc.Authorizer = session.BearerAuthorizer{Store: tokens}
	}
	return transport.NewHTTP(tc)
}

func (c *Client) runClosers() {
	for _, fn := range c.closers {
		_ = fn()
	}
	c.closers = nil
}
