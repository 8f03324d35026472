package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
)

const maxReconnectBackoff = 30 * time.Second

// StartLendingConsumer consumes LendingQueueName and writes one audit line
// per event to audit.  It reconnects with doubling backoff until ctx is
// done, then returns ctx.Err().  Undecodable messages are rejected without
// requeue.
func StartLendingConsumer(ctx context.Context, url string, l, audit *zap.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.MakeWarn(l, "lending-consumer: failed to dial broker",
				zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxReconnectBackoff)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, audit)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.MakeWarn(l, "lending-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, audit *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if _, err := ch.QueueDeclare(LendingQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, LendingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(d.Body, audit); err != nil {
			logger.MakeWarn(audit, "lending-consumer: rejected message", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes one delivery and writes its audit line.
func HandleMessage(body []byte, audit *zap.Logger) error {
	ev, err := Decode(body)
	if err != nil {
		return err
	}
	fields := []zap.Field{
		zap.String("event_id", ev.EventID),
		zap.String("kind", ev.Kind),
		zap.Uint64("issue_id", ev.IssueID),
		zap.Uint64("user_id", ev.UserID),
		zap.Uint64("book_id", ev.BookID),
		zap.String("issue_date", ev.IssueDate),
		zap.String("expected_return_date", ev.ExpectedReturnDate),
		zap.String("occurred_at", ev.OccurredAt),
	}
	switch ev.Kind {
	case KindBookIssued:
		fields = append(fields, zap.Int("available_copies", ev.AvailableCopies))
		logger.MakeInfo(audit, "book issued", fields...)
	case KindBookReturned:
		fields = append(fields, zap.String("return_date", ev.ReturnDate), zap.Int("available_copies", ev.AvailableCopies))
		logger.MakeInfo(audit, "book returned", fields...)
	case KindBookOverdue:
		fields = append(fields, zap.String("as_of", ev.AsOf))
		logger.MakeWarn(audit, "book overdue", fields...)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
