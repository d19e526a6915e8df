package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notifier/internal/domain"
)

// StoreRegistry binds all store implementations to one database handle. It
// implements domain.Stores for both pooled and transactional handles.
type StoreRegistry struct {
	notifications *NotificationStore
	templates     *TemplateStore
	attempts      *AttemptStore
}

// NewStoreRegistry creates a registry whose stores all share the given
// handle.
func NewStoreRegistry(db DBTX) *StoreRegistry {
	return &StoreRegistry{
		notifications: NewNotificationStore(db),
		templates:     NewTemplateStore(db),
		attempts:      NewAttemptStore(db),
	}
}

// Notifications returns the notification store.
func (r *StoreRegistry) Notifications() domain.NotificationStore { return r.notifications }

// Templates returns the template store.
func (r *StoreRegistry) Templates() domain.TemplateStore { return r.templates }

// Attempts returns the delivery attempt store.
func (r *StoreRegistry) Attempts() domain.AttemptStore { return r.attempts }

// TxManager implements the domain commit boundary on a pgx pool. Each
// RunInTx call opens a transaction, hands fn a registry bound to it, and
// commits iff fn returns nil. Domain events stay buffered on the entities
// until the caller observes a nil return and drains them, so a rollback
// never leaves events published for unpersisted state.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a TxManager on the given pool.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx executes fn inside a database transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return dbError("failed to begin transaction", err)
	}
	defer func() {
		// No-op if the transaction committed.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, NewStoreRegistry(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return dbError("failed to commit transaction", err)
	}
	return nil
}

// compile-time conformance checks
var (
	_ domain.Stores    = (*StoreRegistry)(nil)
	_ domain.TxManager = (*TxManager)(nil)
	_ DBTX             = (pgx.Tx)(nil)
)
