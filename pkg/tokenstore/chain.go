package tokenstore

import (
	"context"
	"errors"

	"github.com/milan604/buffer-go/pkg/buffer"
)

// Chain layers token stores. LoadToken returns the first token found, in order;
// SaveToken writes to every store and joins their errors. Nil entries are skipped.
type Chain []buffer.TokenStore

func (ch Chain) SaveToken(ctx context.Context, token string) error {
	var errs []error
	for _, s := range ch {
		if s == nil {
			continue
		}
		if err := s.SaveToken(ctx, token); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadToken stops at the first store that fails.
func (ch Chain) LoadToken(ctx context.Context) (string, bool, error) {
	for _, s := range ch {
		if s == nil {
			continue
		}
		token, ok, err := s.LoadToken(ctx)
		if err != nil {
			return "", false, err
		}
		if ok && token != "" {
			return token, true, nil
		}
	}
	return "", false, nil
}

var _ buffer.TokenStore = Chain(nil)
