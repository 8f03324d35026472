package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/metrics"
	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/queue"
)

// DefaultOverdueBatch is the page size of the overdue scan.
const DefaultOverdueBatch = 1000

// OverdueSweeper reports open issues past their due date as book.overdue
// events.  Each issue is reported at most once per day however often the
// sweep runs.
type OverdueSweeper struct {
	logger *zap.Logger
	store  LendingStore
	outbox OutboxWriter
	batch  int
	today  func() model.Date
}

func NewOverdueSweeper(l *zap.Logger, store LendingStore, outbox OutboxWriter, batch int) *OverdueSweeper {
	if batch <= 0 {
		batch = DefaultOverdueBatch
	}
	return &OverdueSweeper{logger: l, store: store, outbox: outbox, batch: batch, today: model.Today}
}

// Sweep records one event per overdue issue and returns how many it found.
func (o *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	day := o.today()

	// Page through the overdue issues by id until a short page.
	var afterID uint64
	total := 0
	for {
		issues, err := o.store.ListOverdueIssues(ctx, day, afterID, o.batch)
		if logger.CheckError(err, o.logger, "list overdue issues failed", zap.Error(err), zap.String("action", logger.OverdueSweep)) {
			metrics.ObserveLending(logger.OverdueSweep, outcomeError, start)
			return total, err
		}

		for _, issue := range issues {
			if err := o.report(ctx, issue, day); err != nil {
				metrics.ObserveLending(logger.OverdueSweep, outcomeError, start)
				return total, err
			}
			afterID = issue.ID
			total++
		}
		if len(issues) < o.batch {
			break
		}
	}

	logger.MakeInfo(o.logger, "overdue sweep finished",
		zap.String("day", day.String()), zap.Int("overdue", total), zap.String("action", logger.OverdueSweep))
	metrics.ObserveLending(logger.OverdueSweep, outcomeOK, start)
	return total, nil
}

// report records the book.overdue event of issue for day.  The outbox
// ignores a key it already holds, so repeated sweeps on one day are no-ops.
func (o *OverdueSweeper) report(ctx context.Context, issue model.BookIssue, day model.Date) error {
	ev := queue.NewOverdueEvent(issue, day)
	data, err := queue.Encode(ev)
	if err == nil {
		err = o.outbox.SendMessage(ctx, ev.IdempotencyKey(), ev.Kind, data)
	}
	logger.CheckError(err, o.logger, "record overdue event failed",
		zap.Uint64("issue_id", issue.ID), zap.Error(err), zap.String("action", logger.OverdueSweep))
	return err
}

// Schedule registers the sweep on c under the cron expression schedule.
func (o *OverdueSweeper) Schedule(ctx context.Context, c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		_, _ = o.Sweep(ctx)
	})
}
