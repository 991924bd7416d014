package main

import (
	"context"
	"fmt"
	"time"

	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/config"
	bufhttp "github.com/milan604/buffer-go/pkg/http"
	"github.com/milan604/buffer-go/pkg/logger"
	"github.com/milan604/buffer-go/pkg/postgres"
	"github.com/milan604/buffer-go/pkg/tokenstore/pgstore"
	"github.com/milan604/buffer-go/pkg/tokenstore/redisstore"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/cobra"
)

// cli carries what the subcommands share. It is filled in by the root
// PersistentPreRunE and torn down by run.
type cli struct {
	configFile string
	token      string

	cfg      *config.Config
	settings *config.ClientSettings
	log      logger.LogManager
	store    buffer.TokenStore
	db       *postgres.DB
	closers  []func()
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "bufferctl",
		Short:         "Command line client for the Buffer API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["skipSetup"] == "true" {
				return nil
			}
			return c.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	config.AddClientFlags(pf)
	pf.StringVar(&c.configFile, "config", "", "config file (default: bufferctl.yaml in ., $XDG_CONFIG_HOME/buffer, /etc/buffer)")
	pf.StringVar(&c.token, "token", "", "access token to use instead of the token store")

	root.AddCommand(
		newLoginURLCmd(c),
		newExchangeCmd(c),
		newCallCmd(c),
		newEndpointsCmd(),
		newMigrateCmd(c),
		newVersionCmd(),
	)
	return root, c
}

// run executes root and releases what setup opened. Cobra skips post-run
// hooks when a command fails, so teardown cannot live there.
func (c *cli) run(root *cobra.Command) error {
	defer c.teardown()
	return root.Execute()
}

func (c *cli) setup(cmd *cobra.Command) error {
	fileOpt := config.WithConfigNamePaths("bufferctl")
	if c.configFile != "" {
		fileOpt = config.WithFile(c.configFile)
	}
	cfg, err := config.New(
		config.WithDefaults(config.ClientDefaults()),
		fileOpt,
		config.WithEnv(config.EnvPrefix),
		config.WithClientFlags(cmd.Flags()),
		config.WithSensitiveKeys(config.SensitiveKeys()...),
	)
	if err != nil {
		return err
	}
	settings, err := config.LoadClientSettings(cfg)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(logger.LoggerOptions{
		Level:       settings.Log.Level,
		Encoding:    settings.Log.Encoding,
		OutputPaths: []string{"stderr"},
		Name:        "bufferctl",
	})
	if err != nil {
		return err
	}

	c.cfg, c.settings, c.log = cfg, settings, log
	c.closers = append(c.closers, func() { _ = log.Sync() })
	return c.openStore(cmd.Context())
}

func (c *cli) openStore(ctx context.Context) error {
	s := c.settings
	switch s.TokenStore {
	case config.StoreRedis:
		store, err := redisstore.Dial(ctx, s.Redis.Addr, s.Redis.Password, s.Redis.DB, redisstore.WithKey(s.Redis.Key))
		if err != nil {
			return err
		}
		c.store = store
		c.closers = append(c.closers, func() { _ = store.Close() })
	case config.StorePostgres:
		db, err := postgres.New(ctx, postgres.Config{
			Host:     s.Postgres.Host,
			Port:     s.Postgres.Port,
			Name:     s.Postgres.Name,
			Username: s.Postgres.Username,
			Password: s.Postgres.Password,
			SSLMode:  s.Postgres.SSLMode,
		}, c.log)
		if err != nil {
			return err
		}
		c.db = db
		c.store = pgstore.New(db.Client, s.Postgres.Account)
		c.closers = append(c.closers, func() { _ = db.Close() })
	default:
		c.store = buffer.NewMemoryStore()
	}
	return nil
}

func (c *cli) teardown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// client returns a Buffer client whose session is restored from --token or
// the token store.
func (c *cli) client(ctx context.Context) (*buffer.Client, error) {
	s := c.settings
	sess := buffer.NewSession(buffer.OAuthConfig{
		ClientID:     s.ClientID,
		ClientSecret: s.ClientSecret,
		CallbackURL:  s.CallbackURL,
		AuthorizeURL: s.AuthorizeURL,
	}, c.store)

	if c.token != "" {
		sess.SetAccessToken(c.token)
	} else if _, err := sess.Restore(ctx); err != nil {
		return nil, err
	}

	httpOpts := []bufhttp.ClientOption{
		bufhttp.WithTimeout(s.Timeout),
		bufhttp.WithLogger(c.log),
		bufhttp.WithRateLimit(s.RateLimit, s.RateBurst),
	}
	if s.CircuitBreaker {
		httpOpts = append(httpOpts, bufhttp.WithCircuitBreaker(gobreaker.Settings{Timeout: 30 * time.Second}))
	}

	return buffer.NewClient(sess,
		buffer.WithBaseURL(s.BaseURL),
		buffer.WithTokenURL(s.TokenURL),
		buffer.WithLogger(c.log),
		buffer.WithDoer(bufhttp.NewClient(httpOpts...)),
	), nil
}

func (c *cli) requireToken(client *buffer.Client) error {
	if client.Session().Ready() {
		return nil
	}
	return fmt.Errorf("no access token: run `bufferctl exchange --code ...` or pass --token")
}
