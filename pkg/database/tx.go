package database

import (
	"context"
	"fmt"
)

// WithTx runs fn inside a transaction on the request's scoped connection.
// Repository calls made through the same scope inside fn share the
// transaction's session. On error the transaction rolls back and the error
// is returned unchanged, so sentinel checks with errors.Is still work.
func WithTx(ctx context.Context, fn func(context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
