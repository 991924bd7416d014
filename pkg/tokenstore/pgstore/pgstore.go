// Package pgstore keeps access tokens in Postgres, one row per account.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed migrations/*.sql
var migrations embed.FS

const DefaultAccount = "default"

// AccessToken is the row stored per account.
type AccessToken struct {
	Account   string `gorm:"primaryKey"`
	Token     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccessToken) TableName() string { return "buffer_access_tokens" }

type Store struct {
	db      *gorm.DB
	account string
}

// New returns a store for account. An empty account uses DefaultAccount.
func New(db *gorm.DB, account string) *Store {
	if account == "" {
		account = DefaultAccount
	}
	return &Store{db: db, account: account}
}

// Migrate creates the token table.
func Migrate(db *postgres.DB) error {
	return db.MigrateUp(migrations, "migrations")
}

// Rollback drops the token table.
func Rollback(db *postgres.DB) error {
	return db.MigrateDown(migrations, "migrations")
}

func (s *Store) SaveToken(ctx context.Context, token string) error {
	row := AccessToken{Account: s.account, Token: token}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save token for %s: %w", s.account, err)
	}
	return nil
}

func (s *Store) LoadToken(ctx context.Context) (string, bool, error) {
	var row AccessToken
	err := s.db.WithContext(ctx).Where("account = ?", s.account).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load token for %s: %w", s.account, err)
	}
	return row.Token, row.Token != "", nil
}

// Clear deletes the account's token.
func (s *Store) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("account = ?", s.account).Delete(&AccessToken{}).Error
}

var _ buffer.TokenStore = (*Store)(nil)
