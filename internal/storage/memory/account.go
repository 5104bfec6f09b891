package memory

import (
	"context"

	"github.com/songstudio/studio-api/internal/domain/account"
)

// Accounts returns the account.Store view.
func (s *Store) Accounts() account.Store { return &accountView{s} }

type accountView struct{ *Store }

func (v *accountView) Atomic(ctx context.Context, fn func(ctx context.Context, tx account.Tx) error) error {
	return v.atomic(ctx, func(tx *txn) error { return fn(ctx, tx) })
}
