package workflow

import (
	"context"

	"kigurumi/api/internal/store"
)

// pgStore adapts the concrete postgres store to the workflow Store
// interface, re-wrapping transaction-scoped stores so the callback sees the
// interface type.
type pgStore struct {
	*store.PostgresStore
}

// NewStore wraps a postgres store for use by the workflow engine.
func NewStore(s *store.PostgresStore) Store {
	return pgStore{s}
}

func (p pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return p.PostgresStore.WithTx(ctx, func(tx *store.PostgresStore) error {
		return fn(pgStore{tx})
	})
}
