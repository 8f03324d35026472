package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
)

// TxBeginner is the part of *sqlx.DB the transactor needs.
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Transactor runs functions inside a database transaction carried in the
// context.  Repository methods called with that context join the
// transaction.
type Transactor struct {
	logger *zap.Logger
	db     TxBeginner
	opts   *sql.TxOptions
}

// NewTransactor returns a Transactor using READ COMMITTED so that reads
// taken after a row lock see rows committed by the previous lock holder.
func NewTransactor(logger *zap.Logger, db TxBeginner) *Transactor {
	return &Transactor{
		logger: logger,
		db:     db,
		opts:   &sql.TxOptions{Isolation: sql.LevelReadCommitted},
	}
}

// WithTx runs fn in a transaction.  The transaction commits only when fn
// returns nil and ctx is still live; any error, a panic, or a cancelled
// context rolls it back.  A context already carrying a transaction is
// reused as is.
func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := extractTx(ctx); err == nil {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, t.opts)
	if err != nil {
		return storageErr("begin tx", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.CheckError(rbErr, t.logger, "failed rollback of tx", zap.Error(rbErr))
		}
	}()

	if err := fn(injectTx(ctx, tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		logger.CheckError(err, t.logger, "failed commit of tx", zap.Error(err))
		return storageErr("commit tx", err)
	}
	committed = true
	return nil
}

type txInjector struct{}

// ErrTxNotFound is returned by locking reads issued outside WithTx.
var ErrTxNotFound = errors.New("tx not found in context")

func injectTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txInjector{}, tx)
}

func extractTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, ok := ctx.Value(txInjector{}).(*sqlx.Tx)
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

// conn returns the transaction in ctx, or db when there is none.
func conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, err := extractTx(ctx); err == nil {
		return tx
	}
	return db
}
