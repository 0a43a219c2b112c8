package authclient

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the full client configuration. Obtain defaults from
// [DefaultConfig], adjust, and pass to [Builder.WithConfig]. The builder
// clones it, so later mutation has no effect on a built client.
type Config struct {
	Transport TransportConfig
	Auth      AuthConfig
	Refresh   RefreshConfig
	Session   SessionConfig
	Events    EventsConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
}

// TransportConfig configures the default HTTP transport. It is ignored when
// [Builder.WithTransport] supplies one.
type TransportConfig struct {
	BaseURL          string        `env:"AUTHCLIENT_BASE_URL"`
	Timeout          time.Duration `env:"AUTHCLIENT_TIMEOUT"`
	MaxRPS           float64       `env:"AUTHCLIENT_MAX_RPS"`
	Burst            int           `env:"AUTHCLIENT_BURST"`
	UserAgent        string        `env:"AUTHCLIENT_USER_AGENT"`
	MaxResponseBytes int64         `env:"AUTHCLIENT_MAX_RESPONSE_BYTES"`
}

// AuthConfig describes how auth expiry is told apart from bad credentials.
// Both arrive with ExpiredStatus; a bad-credentials response additionally
// carries BadCredentialsMessage at MessageField (case-insensitive), or
// BadCredentialsCode at CodeField when CodeField is set. Fields are gjson
// paths into the JSON body.
type AuthConfig struct {
	ExpiredStatus         int    `env:"AUTHCLIENT_AUTH_EXPIRED_STATUS"`
	MessageField          string `env:"AUTHCLIENT_AUTH_MESSAGE_FIELD"`
	BadCredentialsMessage string `env:"AUTHCLIENT_AUTH_BAD_CREDENTIALS_MESSAGE"`
	CodeField             string `env:"AUTHCLIENT_AUTH_CODE_FIELD"`
	BadCredentialsCode    string `env:"AUTHCLIENT_AUTH_BAD_CREDENTIALS_CODE"`
}

// RefreshConfig locates the refresh endpoint. An empty LogoutPath makes
// [Client.Logout] clear local credentials only.
type RefreshConfig struct {
	Method     string        `env:"AUTHCLIENT_REFRESH_METHOD"`
	Path       string        `env:"AUTHCLIENT_REFRESH_PATH"`
	Timeout    time.Duration `env:"AUTHCLIENT_REFRESH_TIMEOUT"`
	LogoutPath string        `env:"AUTHCLIENT_LOGOUT_PATH"`
}

// SessionMode selects how session artifacts travel.
type SessionMode string

const (
	// SessionCookie relies on server-set cookies kept in a cookie jar.
	SessionCookie SessionMode = "cookie"
	// SessionBearer sends an Authorization header from a token store and
	// posts the refresh token to the refresh endpoint.
	SessionBearer SessionMode = "bearer"
)

// SessionConfig configures the default credential store. It is ignored when
// [Builder.WithCredentialStore] supplies one. In bearer mode a non-empty
// RedisAddr selects a Redis-backed store shared under SessionKey.
type SessionConfig struct {
	Mode          SessionMode   `env:"AUTHCLIENT_SESSION_MODE"`
	RedisAddr     string        `env:"AUTHCLIENT_REDIS_ADDR"`
	RedisPrefix   string        `env:"AUTHCLIENT_REDIS_PREFIX"`
	SessionKey    string        `env:"AUTHCLIENT_SESSION_KEY"`
	RefreshWindow time.Duration `env:"AUTHCLIENT_REFRESH_WINDOW"`
}

// EventsConfig controls the async event dispatcher.
type EventsConfig struct {
	Enabled    bool `env:"AUTHCLIENT_EVENTS_ENABLED"`
	BufferSize int  `env:"AUTHCLIENT_EVENTS_BUFFER"`
	DropIfFull bool `env:"AUTHCLIENT_EVENTS_DROP_IF_FULL"`
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `env:"AUTHCLIENT_METRICS_ENABLED"`
	EnableLatencyHistograms bool `env:"AUTHCLIENT_METRICS_LATENCY"`
}

// LoggingConfig configures the logger built when none is injected.
type LoggingConfig struct {
	Level  string `env:"AUTHCLIENT_LOG_LEVEL"`
	Format string `env:"AUTHCLIENT_LOG_FORMAT"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			Timeout:          30 * time.Second,
			UserAgent:        "authclient/1",
			MaxResponseBytes: 8 << 20,
		},
		Auth: AuthConfig{
			ExpiredStatus:         http.StatusUnauthorized,
			MessageField:          "message",
			BadCredentialsMessage: "Invalid credentials",
		},
		Refresh: RefreshConfig{
			Method:     http.MethodPost,
			Path:       "/api/auth/refresh",
			Timeout:    10 * time.Second,
			LogoutPath: "/api/auth/logout",
		},
		Session: SessionConfig{
			Mode:        SessionCookie,
			RedisPrefix: "authclient",
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if c.Transport.Timeout < 0 {
		return errors.New("Transport Timeout must be >= 0")
	}
	if c.Transport.MaxRPS < 0 {
		return errors.New("Transport MaxRPS must be >= 0")
	}
	if c.Transport.Burst < 0 {
		return errors.New("Transport Burst must be >= 0")
	}
	if c.Transport.MaxResponseBytes < 0 {
		return errors.New("Transport MaxResponseBytes must be >= 0")
	}

	if c.Auth.ExpiredStatus < 400 || c.Auth.ExpiredStatus > 599 {
		return errors.New("Auth ExpiredStatus must be a 4xx or 5xx status")
	}
	if strings.TrimSpace(c.Auth.MessageField) == "" && strings.TrimSpace(c.Auth.CodeField) == "" {
		return errors.New("Auth requires MessageField or CodeField")
	}
	if c.Auth.CodeField != "" && c.Auth.BadCredentialsCode == "" {
		return errors.New("Auth BadCredentialsCode is required when CodeField is set")
	}

	if strings.TrimSpace(c.Refresh.Path) == "" {
		return errors.New("Refresh Path must be set")
	}
	if c.Refresh.Method == "" {
		return errors.New("Refresh Method must be set")
	}
	if c.Refresh.Timeout < 0 {
		return errors.New("Refresh Timeout must be >= 0")
	}

	switch c.Session.Mode {
	case SessionCookie, SessionBearer:
	default:
		return errors.New("Session Mode must be 'cookie' or 'bearer'")
	}
	if c.Session.RedisAddr != "" {
		if c.Session.Mode != SessionBearer {
			return errors.New("Session RedisAddr requires bearer mode")
		}
		if c.Session.SessionKey == "" {
			return errors.New("Session SessionKey is required with RedisAddr")
		}
	}

	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when enabled")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.New("Logging Format must be 'text' or 'json'")
	}
	return nil
}
