// Package outbox relays messages stored by the lending workflow to the
// message broker.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/metrics"
	"github.com/D191001/libra/internal/queue"
	"github.com/D191001/libra/internal/repository"
)

//go:generate mockgen -source=outbox.go -destination=mocks/outbox.go -package=mocks
type (
	GlobalHandler = func(kind string) (KindHandler, error)
	KindHandler   = func(ctx context.Context, data []byte) error

	Repository interface {
		GetMessages(ctx context.Context, batchSize int, inProgressTTL time.Duration) ([]repository.OutboxData, error)
		MarkAs(ctx context.Context, idempotencyKeys []string, s repository.Status) error
	}

	Transactor interface {
		WithTx(ctx context.Context, function func(ctx context.Context) error) error
	}

	Publisher interface {
		Publish(ctx context.Context, queueName string, body []byte) error
	}
)

var ErrUnknownKind = errors.New("unknown outbox kind")

// PublishHandler routes every lending event kind to queueName.
func PublishHandler(p Publisher, queueName string) GlobalHandler {
	return func(kind string) (KindHandler, error) {
		if !queue.KnownKind(kind) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		return func(ctx context.Context, data []byte) error {
			return p.Publish(ctx, queueName, data)
		}, nil
	}
}

type Outbox struct {
	logger        *zap.Logger
	repository    Repository
	globalHandler GlobalHandler
	transactor    Transactor
	wg            sync.WaitGroup
}

func New(l *zap.Logger, repo Repository, globalHandler GlobalHandler, transactor Transactor) *Outbox {
	return &Outbox{
		logger:        l,
		repository:    repo,
		globalHandler: globalHandler,
		transactor:    transactor,
	}
}

// Start launches workers that each relay one batch every waitTime until
// ctx is done.
func (o *Outbox) Start(ctx context.Context, workers, batchSize int, waitTime, inProgressTTL time.Duration) {
	for workerID := 1; workerID <= workers; workerID++ {
		o.wg.Add(1)
		go o.worker(ctx, batchSize, waitTime, inProgressTTL)
	}
}

// Wait blocks until every worker has stopped.
func (o *Outbox) Wait() { o.wg.Wait() }

func (o *Outbox) worker(ctx context.Context, batchSize int, waitTime, inProgressTTL time.Duration) {
	defer o.wg.Done()

	ticker := time.NewTicker(waitTime)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := o.Relay(ctx, batchSize, inProgressTTL)
			logger.CheckError(err, o.logger, "worker stage error", zap.Error(err))
		}
	}
}

// Relay claims one batch, hands each message to its kind handler and
// records the outcome, all in one transaction.
func (o *Outbox) Relay(ctx context.Context, batchSize int, inProgressTTL time.Duration) error {
	return o.transactor.WithTx(ctx, func(ctx context.Context) error {
		messages, err := o.repository.GetMessages(ctx, batchSize, inProgressTTL)
		if logger.CheckError(err, o.logger, "can not fetch messages from outbox", zap.Error(err)) {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		logger.MakeInfo(o.logger, "messages fetched", zap.Int("size", len(messages)))

		// A failed message goes back to Created and is picked up by a later batch.
		failed := make(map[string]bool, len(messages))
		for _, message := range messages {
			kindHandler, taskErr := o.globalHandler(message.Kind)
			if taskErr == nil {
				taskErr = kindHandler(ctx, message.RawData)
			}
			if logger.CheckError(taskErr, o.logger, "relay outbox message",
				zap.String("idempotency_key", message.IdempotencyKey),
				zap.String("kind", message.Kind),
				zap.Error(taskErr)) {
				failed[message.IdempotencyKey] = true
				metrics.OutboxRelayed.WithLabelValues(message.Kind, "failed").Inc()
				continue
			}
			metrics.OutboxRelayed.WithLabelValues(message.Kind, "sent").Inc()
		}

		successKeys, failKeys := lo.FilterReject(
			lo.Map(messages, func(m repository.OutboxData, _ int) string { return m.IdempotencyKey }),
			func(key string, _ int) bool { return !failed[key] },
		)
		err = o.repository.MarkAs(ctx, successKeys, repository.Success)
		if logger.CheckError(err, o.logger, "Mark as 'Success' outbox error", zap.Error(err)) {
			return err
		}
		err = o.repository.MarkAs(ctx, failKeys, repository.Created)
		if logger.CheckError(err, o.logger, "Mark as 'Created' for fail task outbox error", zap.Error(err)) {
			return err
		}
		return nil
	})
}
