package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix used by the buffer programs: BUFFER_CLIENT_ID
// overrides client_id.
const EnvPrefix = "BUFFER"

const redacted = "***REDACTED***"

// Config is the wrapper around viper with extra helpers.
type Config struct {
	*viper.Viper

	sensitiveKeys map[string]struct{}
	searchFile    bool
	onChange      []func()
}

// Option is a functional option for New.
type Option func(*Config) error

// New creates a Config. Options are applied in order; later sources override earlier ones
// following viper precedence (flags > env > file > defaults).
//
//	cfg, err := config.New(
//	  config.WithDefaults(config.ClientDefaults()),
//	  config.WithFile(path),
//	  config.WithEnv(config.EnvPrefix),
//	  config.WithPFlags(cmd.Flags()),
//	)
func New(opts ...Option) (*Config, error) {
	cfg := &Config{
		Viper:         viper.New(),
		sensitiveKeys: map[string]struct{}{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := cfg.readConfigIfPossible(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// MustNew is like New but exits on error.
func MustNew(opts ...Option) *Config {
	cfg, err := New(opts...)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// readConfigIfPossible reads the explicit file if one was set. A file searched by
// name is optional and its absence is not an error.
func (c *Config) readConfigIfPossible() error {
	if c.ConfigFileUsed() != "" {
		return c.ReadInConfig()
	}
	if !c.searchFile {
		return nil
	}
	err := c.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// WithDefaults sets default values.
func WithDefaults(defaults map[string]any) Option {
	return func(c *Config) error {
		for k, v := range defaults {
			c.SetDefault(k, v)
		}
		return nil
	}
}

// WithFile sets an exact config file; the extension determines its format.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		c.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
			c.SetConfigType(ext)
		}
		return nil
	}
}

// WithConfigNamePaths searches for name (without extension) in paths.
func WithConfigNamePaths(name string, paths ...string) Option {
	return func(c *Config) error {
		if name != "" {
			c.SetConfigName(name)
		}
		if len(paths) == 0 {
			paths = defaultSearchPaths()
		}
		for _, p := range paths {
			c.AddConfigPath(p)
		}
		c.searchFile = true
		return nil
	}
}

func defaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "buffer"))
	}
	return append(paths, "/etc/buffer")
}

// WithEnv enables environment overrides. Dots and hyphens in keys map to underscores.
func WithEnv(prefix string) Option {
	return func(c *Config) error {
		if prefix != "" {
			c.SetEnvPrefix(prefix)
		}
		c.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		c.AutomaticEnv()
		return nil
	}
}

// WithPFlags binds a flag set. Flags must be defined by the caller.
func WithPFlags(flags *pflag.FlagSet) Option {
	return func(c *Config) error {
		if flags == nil {
			flags = pflag.CommandLine
		}
		return c.BindPFlags(flags)
	}
}

// WithDotEnv merges key=value lines from a .env file. A missing file is ignored.
func WithDotEnv(path string) Option {
	return func(c *Config) error {
		if path == "" {
			path = ".env"
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
		envV := viper.New()
		envV.SetConfigFile(path)
		envV.SetConfigType("env")
		if err := envV.ReadInConfig(); err != nil {
			return err
		}
		for _, k := range envV.AllKeys() {
			key := strings.TrimPrefix(k, strings.ToLower(EnvPrefix)+"_")
			c.Set(key, envV.Get(k))
		}
		return nil
	}
}

// WithWatch reloads the file on change and runs onChange afterwards.
func WithWatch(onChange func()) Option {
	return func(c *Config) error {
		if onChange != nil {
			c.onChange = append(c.onChange, onChange)
		}
		c.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			for _, fn := range c.onChange {
				fn()
			}
		})
		c.WatchConfig()
		return nil
	}
}

// WithSensitiveKeys registers keys redacted by MaskedSettings.
func WithSensitiveKeys(keys ...string) Option {
	return func(c *Config) error {
		for _, k := range keys {
			c.sensitiveKeys[strings.ToLower(k)] = struct{}{}
		}
		return nil
	}
}

// GetStringD returns string or def
func (c *Config) GetStringD(key, def string) string {
	if val := c.GetString(key); val != "" {
		return val
	}
	return def
}

// GetIntD returns int or def
func (c *Config) GetIntD(key string, def int) int {
	if c.IsSet(key) {
		return c.GetInt(key)
	}
	return def
}

// GetBoolD returns bool or def
func (c *Config) GetBoolD(key string, def bool) bool {
	if c.IsSet(key) {
		return c.GetBool(key)
	}
	return def
}

// GetDurationD returns time.Duration or def
func (c *Config) GetDurationD(key string, def time.Duration) time.Duration {
	if c.IsSet(key) {
		return c.GetDuration(key)
	}
	return def
}

// ValidateRequired ensures keys exist and are non-empty.
func (c *Config) ValidateRequired(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if c.GetString(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MaskedSettings returns all settings, flattened to dotted keys, with sensitive
// keys redacted.
func (c *Config) MaskedSettings() map[string]any {
	out := make(map[string]any)
	for _, k := range c.AllKeys() {
		if _, ok := c.sensitiveKeys[k]; ok && c.GetString(k) != "" {
			out[k] = redacted
			continue
		}
		out[k] = c.Get(k)
	}
	return out
}
