// Command bufferd is a small web front for the Buffer API: it runs the OAuth
// login flow for a browser user and proxies API calls on their behalf.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/milan604/buffer-go/pkg/audit"
	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/config"
	bufhttp "github.com/milan604/buffer-go/pkg/http"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/observability"
	"github.com/milan604/buffer-go/pkg/postgres"
	"github.com/milan604/buffer-go/pkg/server"
	middleware "github.com/milan604/buffer-go/pkg/server/middleware"
	"github.com/milan604/buffer-go/pkg/tokenstore/cookiestore"
	"github.com/milan604/buffer-go/pkg/tokenstore/pgstore"
	"github.com/milan604/buffer-go/pkg/tokenstore/redisstore"
	"github.com/milan604/buffer-go/pkg/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/pflag"
)

const serviceName = "bufferd"

func serverDefaults() map[string]any {
	d := config.ClientDefaults()
	d["service_name"] = serviceName
	d["server.host"] = "0.0.0.0"
	d["server.port"] = 8080
	d["server.session_secret"] = ""
	d["server.secure_cookies"] = false
	d["server.cors_origins"] = []string{}
	d["server.rate_limit"] = 10.0
	d["server.rate_burst"] = 20
	d["server.tls_cert"] = ""
	d["server.tls_key"] = ""
	d["telemetry.enabled"] = false
	return d
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bufferd:", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	config.AddClientFlags(fs)
	configFile := fs.String("config", "", "config file (default: bufferd.yaml in ., $XDG_CONFIG_HOME/buffer, /etc/buffer)")
	fs.Int("port", 8080, "listen port")
	listen := fs.String("listen", "", "listen address host:port, overrides server.host and server.port")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	log := logger.MustNewDefaultLogger()
	defer log.Sync() //nolint:errcheck

	var cfg *config.Config
	fileOpt := config.WithConfigNamePaths(serviceName)
	if *configFile != "" {
		fileOpt = config.WithFile(*configFile)
	}
	cfg, err := config.New(
		config.WithDefaults(serverDefaults()),
		fileOpt,
		config.WithDotEnv(""),
		config.WithEnv(config.EnvPrefix),
		config.WithClientFlags(fs),
		func(c *config.Config) error { return c.BindPFlag("server.port", fs.Lookup("port")) },
		config.WithSensitiveKeys(append(config.SensitiveKeys(), "server.session_secret")...),
		config.WithWatch(func() {
			if err := log.SetLogLevel(cfg.GetString("log.level")); err != nil {
				log.WarnF("config reload: %v", err)
				return
			}
			log.InfoF("config reloaded, log level %s", log.Level())
		}),
	)
	if err != nil {
		return err
	}

	settings, err := config.LoadClientSettings(cfg)
	if err != nil {
		return err
	}
	if err := log.SetLogLevel(settings.Log.Level); err != nil {
		return err
	}
	log.With("settings", cfg.MaskedSettings()).DebugF("configuration loaded")

	ctx := context.Background()

	obs, err := observability.New(log, cfg)
	if err != nil {
		return err
	}
	defer obs.Shutdown(context.Background()) //nolint:errcheck

	backend, closeBackend, err := openBackend(ctx, settings, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	reg := prometheus.NewRegistry()
	clientOpts := []buffer.ClientOption{
		buffer.WithBaseURL(settings.BaseURL),
		buffer.WithTokenURL(settings.TokenURL),
		buffer.WithLogger(log.With("component", "buffer")),
		buffer.WithTracer(obs.GetTracer()),
		buffer.WithMetrics(observability.Fanout{
			observability.NewPromMetrics(reg, serviceName),
			observability.MustNewMetrics(serviceName),
		}),
		buffer.WithDoer(newDoer(settings, log)),
	}
	if settings.Audit.Enabled {
		sink := audit.NewKafkaSink(settings.Audit.Brokers, settings.Audit.Topic, audit.WithLogger(log))
		defer sink.Close()
		clientOpts = append(clientOpts, buffer.WithCallObserver(sink))
	}

	a := &app{
		oauth: buffer.OAuthConfig{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			CallbackURL:  settings.CallbackURL,
			AuthorizeURL: settings.AuthorizeURL,
		},
		cookies:    cookiestore.NewCookieStore(cfg.GetBool("server.secure_cookies"), sessionKey(cfg, log)),
		backend:    backend,
		storeName:  settings.TokenStore,
		clientOpts: clientOpts,
		obs:        obs,
	}

	rl := middleware.NewRateLimitConfig(true, cfg.GetFloat64("server.rate_limit"), cfg.GetInt("server.rate_burst"), 5*time.Minute)
	defer rl.Stop()

	engineOpts := []server.EngineOption{
		server.WithLogger(log),
		server.WithRecovery(true),
		server.WithTracing(serviceName),
		server.WithPrometheus(reg),
		server.WithRateLimit(rl),
		server.WithValidator(validator.New()),
	}
	if origins := cfg.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		cors := middleware.DefaultCorsConfig()
		cors.AllowOrigins = origins
		cors.AllowCredentials = true
		engineOpts = append(engineOpts, server.WithCors(cors))
	}

	engine := server.NewEngine(engineOpts...)
	a.routes(engine)

	startOpts := []server.StartOption{server.StartWithConfig(cfg), server.StartWithLogger(log)}
	if *listen != "" {
		startOpts = append(startOpts, server.StartWithAddr(*listen))
	}
	if cert, key := cfg.GetString("server.tls_cert"), cfg.GetString("server.tls_key"); cert != "" && key != "" {
		startOpts = append(startOpts, server.StartWithTLS(cert, key))
	}
	return server.Start(ctx, engine, startOpts...)
}

// openBackend opens the configured shared token store. The memory store has
// no backend since each user's token already lives in their cookie.
func openBackend(ctx context.Context, s *config.ClientSettings, log logger.LogManager) (buffer.TokenStore, func(), error) {
	switch s.TokenStore {
	case config.StoreRedis:
		store, err := redisstore.Dial(ctx, s.Redis.Addr, s.Redis.Password, s.Redis.DB, redisstore.WithKey(s.Redis.Key))
		if err != nil {
			return nil, nil, err
		}
		log.InfoF("token store: redis %s", s.Redis.Addr)
		return store, func() { _ = store.Close() }, nil

	case config.StorePostgres:
		db, err := postgres.New(ctx, postgres.Config{
			Host:     s.Postgres.Host,
			Port:     s.Postgres.Port,
			Name:     s.Postgres.Name,
			Username: s.Postgres.Username,
			Password: s.Postgres.Password,
			SSLMode:  s.Postgres.SSLMode,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		if err := pgstore.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.InfoF("token store: postgres %s/%s", s.Postgres.Host, s.Postgres.Name)
		return pgstore.New(db.Client, s.Postgres.Account), func() { _ = db.Close() }, nil
	}
	return nil, func() {}, nil
}

func newDoer(s *config.ClientSettings, log logger.LogManager) *bufhttp.Client {
	opts := []bufhttp.ClientOption{
		bufhttp.WithTimeout(s.Timeout),
		bufhttp.WithLogger(log.With("component", "http")),
		bufhttp.WithRateLimit(s.RateLimit, s.RateBurst),
		bufhttp.WithTracing(),
	}
	if s.CircuitBreaker {
		opts = append(opts, bufhttp.WithCircuitBreaker(gobreaker.Settings{
			Name:    "buffer-api",
			Timeout: 30 * time.Second,
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WarnF("circuit breaker %s: %s -> %s", name, from, to)
			},
		}))
	}
	return bufhttp.NewClient(opts...)
}

// sessionKey returns the cookie signing key. Without a configured secret a
// random key is used, so sessions do not survive a restart.
func sessionKey(cfg *config.Config, log logger.LogManager) []byte {
	if secret := cfg.GetString("server.session_secret"); secret != "" {
		return []byte(secret)
	}
	log.WarnF("server.session_secret is not set; using a random key")
	return securecookie.GenerateRandomKey(32)
}
