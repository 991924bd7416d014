package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milan604/buffer-go/pkg/apperr"
	"github.com/milan604/buffer-go/pkg/validator"
	"github.com/spf13/pflag"
)

// ErrInvalidSettings is returned by LoadClientSettings when validation fails.
var ErrInvalidSettings = errors.New("invalid buffer settings")

// Token store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ClientSettings configures the Buffer client and its token store.
type ClientSettings struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	CallbackURL  string `mapstructure:"callback_url" validate:"required,url"`

	BaseURL      string `mapstructure:"base_url" validate:"required,url"`
	TokenURL     string `mapstructure:"token_url" validate:"required,url"`
	AuthorizeURL string `mapstructure:"authorize_url" validate:"required,url"`

	Timeout        time.Duration `mapstructure:"timeout" validate:"gte=0"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int           `mapstructure:"rate_burst" validate:"gte=0"`
	CircuitBreaker bool          `mapstructure:"circuit_breaker"`

	TokenStore string           `mapstructure:"token_store" validate:"oneof=memory redis postgres"`
	Redis      RedisSettings    `mapstructure:"redis"`
	Postgres   PostgresSettings `mapstructure:"postgres"`

	Audit AuditSettings `mapstructure:"audit"`
	Log   LogSettings   `mapstructure:"log"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Key      string `mapstructure:"key"`
}

type PostgresSettings struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port" validate:"omitempty,numeric"`
	Name           string `mapstructure:"name"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MigrationsPath string `mapstructure:"migrations_path"`
	Account        string `mapstructure:"account"`
}

// AuditSettings enables publishing call events to Kafka.
type AuditSettings struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type LogSettings struct {
	Level    string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Encoding string `mapstructure:"encoding" validate:"omitempty,oneof=console json"`
}

// ClientDefaults returns the default value of every client key. Registering every
// key is what lets environment variables reach Unmarshal.
func ClientDefaults() map[string]any {
	return map[string]any{
		"client_id":                "",
		"client_secret":            "",
		"callback_url":             "",
		"base_url":                 "https://api.bufferapp.com/1",
		"token_url":                "https://api.bufferapp.com/1/oauth2/token.json",
		"authorize_url":            "https://bufferapp.com/oauth2/authorize",
		"timeout":                  30 * time.Second,
		"rate_limit":               1.0,
		"rate_burst":               5,
		"circuit_breaker":          true,
		"token_store":              StoreMemory,
		"redis.addr":               "",
		"redis.password":           "",
		"redis.db":                 0,
		"redis.key":                "buffer:access_token",
		"postgres.host":            "",
		"postgres.port":            "5432",
		"postgres.name":            "",
		"postgres.username":        "",
		"postgres.password":        "",
		"postgres.sslmode":         "disable",
		"postgres.migrations_path": "migrations",
		"postgres.account":         "default",
		"audit.enabled":            false,
		"audit.brokers":            []string{},
		"audit.topic":              "buffer.calls",
		"log.level":                "info",
		"log.encoding":             "console",
	}
}

// SensitiveKeys lists the client keys that must never be printed.
func SensitiveKeys() []string {
	return []string{"client_secret", "redis.password", "postgres.password"}
}

// clientFlags maps flag names to config keys.
var clientFlags = map[string]string{
	"client-id":     "client_id",
	"client-secret": "client_secret",
	"callback-url":  "callback_url",
	"base-url":      "base_url",
	"token-store":   "token_store",
	"redis-addr":    "redis.addr",
	"log-level":     "log.level",
}

// AddClientFlags defines the client flags on fs.
func AddClientFlags(fs *pflag.FlagSet) {
	fs.String("client-id", "", "Buffer application client id")
	fs.String("client-secret", "", "Buffer application client secret")
	fs.String("callback-url", "", "OAuth redirect URI registered for the application")
	fs.String("base-url", "", "Buffer API base URL")
	fs.String("token-store", "", "token store backend (memory, redis, postgres)")
	fs.String("redis-addr", "", "redis address for the redis token store")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
}

// WithClientFlags binds the flags defined by AddClientFlags to their keys.
// Only flags the user actually set override other sources.
func WithClientFlags(fs *pflag.FlagSet) Option {
	return func(c *Config) error {
		for name, key := range clientFlags {
			f := fs.Lookup(name)
			if f == nil {
				continue
			}
			if err := c.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
		return nil
	}
}

// LoadClientSettings registers defaults, decodes and validates the client settings.
func LoadClientSettings(c *Config) (*ClientSettings, error) {
	for k, v := range ClientDefaults() {
		c.SetDefault(k, v)
	}

	var s ClientSettings
	if err := c.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	s.TokenStore = strings.ToLower(strings.TrimSpace(s.TokenStore))

	appErr := validator.New().ValidateStruct(&s)
	appErr = s.checkBackends(appErr)
	if appErr.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettings, describe(appErr))
	}
	return &s, nil
}

// checkBackends validates the settings required by the selected backends.
func (s *ClientSettings) checkBackends(appErr *apperr.AppError) *apperr.AppError {
	add := func(field, msg string) {
		if appErr == nil {
			appErr = apperr.New(apperr.ErrorCodeValidationFail)
		}
		appErr.AddSuggestion(field, msg)
	}
	switch s.TokenStore {
	case StoreRedis:
		if s.Redis.Addr == "" {
			add("redis.addr", "required when token_store is redis")
		}
	case StorePostgres:
		if s.Postgres.Host == "" {
			add("postgres.host", "required when token_store is postgres")
		}
		if s.Postgres.Name == "" {
			add("postgres.name", "required when token_store is postgres")
		}
	}
	if s.Audit.Enabled {
		if len(s.Audit.Brokers) == 0 {
			add("audit.brokers", "required when audit is enabled")
		}
		if s.Audit.Topic == "" {
			add("audit.topic", "required when audit is enabled")
		}
	}
	return appErr
}

func describe(appErr *apperr.AppError) string {
	if len(appErr.Suggestions) == 0 {
		return appErr.Message
	}
	parts := make([]string, 0, len(appErr.Suggestions))
	for _, sg := range appErr.Suggestions {
		parts = append(parts, sg.Field+": "+sg.Message)
	}
	return strings.Join(parts, "; ")
}
