package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// SQLTx is the TxManager backed by a sqlx database handle.
type SQLTx struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *SQLTx {
	return &SQLTx{db: db}
}

var _ TxManager = (*SQLTx)(nil)

// WithTransaction commits when fn returns nil and rolls back otherwise. A call
// nested inside another transaction joins the outer one.
func (m *SQLTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// conn returns the transaction carried by ctx, or db outside one.
func conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
