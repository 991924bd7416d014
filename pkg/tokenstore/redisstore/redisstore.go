package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "buffer:access_token"

// Store keeps the access token under a single Redis key.
type Store struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithTTL expires the saved token after d. Zero keeps it forever.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

func (s *Store) SaveToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) LoadToken(ctx context.Context) (string, bool, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return token, token != "", nil
}

// Clear removes the saved token.
func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ buffer.TokenStore = (*Store)(nil)
