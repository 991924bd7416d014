package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/milan604/buffer-go/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	SSLMode  string
}

// DSN returns the connection URL understood by both gorm and golang-migrate.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := c.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + port,
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

type DB struct {
	Client *gorm.DB
	SQL    *sql.DB
	DSN    string
	log    logger.LogManager
}

// New opens and pings a connection.
func New(ctx context.Context, cfg Config, log logger.LogManager) (*DB, error) {
	return Open(ctx, cfg.DSN(), log)
}

// Open connects using a DSN directly.
func Open(ctx context.Context, dsn string, log logger.LogManager) (*DB, error) {
	if log == nil {
		log = logger.NewNop()
	}
	client, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               gormlogger.Discard,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := client.DB()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres %s: %w", maskDSN(dsn), err)
	}

	log.InfoF("postgres connected: %s", maskDSN(dsn))
	return &DB{Client: client, SQL: sqlDB, DSN: dsn, log: log}, nil
}

func (db *DB) Close() error {
	return db.SQL.Close()
}

// maskDSN hides the password of a URL-form DSN.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
