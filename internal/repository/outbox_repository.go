package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type Status uint

const (
	Created Status = iota
	InProgress
	Success
	Abandoned
)

func (s Status) String() string {
	switch s {
	case Created:
		return "CREATED"
	case InProgress:
		return "IN_PROGRESS"
	case Success:
		return "SUCCESS"
	case Abandoned:
		return "ABANDONED"
	}
	panic("unreachable")
}

// OutboxData is one pending message.
type OutboxData struct {
	IdempotencyKey string `db:"idempotency_key"`
	Kind           string `db:"kind"`
	RawData        []byte `db:"data"`
}

// OutboxRepo stores messages in the same transaction as the state change
// they describe, for later relay to the broker.
type OutboxRepo struct {
	db          *sqlx.DB
	maxAttempts int
}

func NewOutboxRepo(db *sqlx.DB, maxAttempts int) *OutboxRepo {
	return &OutboxRepo{db: db, maxAttempts: maxAttempts}
}

// SendMessage enqueues a message.  A repeated idempotency key is ignored.
func (o *OutboxRepo) SendMessage(ctx context.Context, idempotencyKey string, kind string, message []byte) error {
	const query = `
INSERT INTO outbox (idempotency_key, kind, data, status, attempts)
VALUES (?, ?, ?, 'CREATED', 0)
ON DUPLICATE KEY UPDATE idempotency_key = idempotency_key`

	_, err := conn(ctx, o.db).ExecContext(ctx, query, idempotencyKey, kind, message)
	return storageErr("outbox send", err)
}

// GetMessages claims up to batchSize messages that are new, or in progress
// for longer than inProgressTTL.  Rows claimed by another worker are
// skipped.  It must run inside a transaction.
func (o *OutboxRepo) GetMessages(ctx context.Context, batchSize int, inProgressTTL time.Duration) ([]OutboxData, error) {
	tx, err := extractTx(ctx)
	if err != nil {
		return nil, err
	}

	const selectQuery = `
SELECT idempotency_key, kind, data
FROM outbox
WHERE status = 'CREATED'
   OR (status = 'IN_PROGRESS' AND updated_at < NOW(6) - INTERVAL ? MICROSECOND)
ORDER BY created_at
LIMIT ?
FOR UPDATE SKIP LOCKED`

	messages := make([]OutboxData, 0, batchSize)
	if err := sqlx.SelectContext(ctx, tx, &messages, selectQuery, inProgressTTL.Microseconds(), batchSize); err != nil {
		return nil, storageErr("outbox select", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	keys := make([]string, 0, len(messages))
	for _, m := range messages {
		keys = append(keys, m.IdempotencyKey)
	}
	query, args, err := sqlx.In("UPDATE outbox SET status = 'IN_PROGRESS' WHERE idempotency_key IN (?)", keys)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return nil, storageErr("outbox claim", err)
	}
	return messages, nil
}

// MarkAs records the outcome of a relay attempt.  Success is final.
// Created puts the messages back in the queue, or abandons those that have
// used up their attempts.
func (o *OutboxRepo) MarkAs(ctx context.Context, idempotencyKeys []string, s Status) error {
	if len(idempotencyKeys) == 0 {
		return nil
	}

	var (
		query string
		args  []any
		err   error
	)
	switch s {
	case Created:
		query, args, err = sqlx.In(`
UPDATE outbox
SET status = IF(attempts + 1 >= ?, 'ABANDONED', 'CREATED'),
    attempts = attempts + 1
WHERE idempotency_key IN (?)`, o.maxAttempts, idempotencyKeys)
	default:
		query, args, err = sqlx.In(`
UPDATE outbox
SET status = ?,
    attempts = attempts + 1
WHERE idempotency_key IN (?)`, s.String(), idempotencyKeys)
	}
	if err != nil {
		return err
	}

	db := conn(ctx, o.db)
	_, err = db.ExecContext(ctx, db.Rebind(query), args...)
	return storageErr("outbox mark", err)
}
