package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/metrics"
	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/queue"
)

const (
	tracerName            = "github.com/D191001/libra/internal/service"
	defaultLockRetryDelay = 50 * time.Millisecond

	outcomeOK     = "ok"
	outcomeDenied = "denied"
	outcomeError  = "error"
)

// LendingService is the only writer of available copies and of issue rows.
// Every mutating call runs as one transaction; a lock wait timeout aborts
// it and the whole call is retried once with the same inputs.
type LendingService struct {
	logger         *zap.Logger
	policy         lending.Policy
	store          LendingStore
	transactor     Transactor
	outbox         OutboxWriter
	tracer         trace.Tracer
	lockRetryDelay time.Duration
}

type Option func(*LendingService)

// WithLockRetryDelay sets the pause before the lock timeout retry.
func WithLockRetryDelay(d time.Duration) Option {
	return func(s *LendingService) {
		if d > 0 {
			s.lockRetryDelay = d
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *LendingService) { s.tracer = t }
}

// NewLendingService wires the workflow.  outbox may be nil, in which case
// no lending events are recorded.
func NewLendingService(
	l *zap.Logger,
	policy lending.Policy,
	store LendingStore,
	transactor Transactor,
	outbox OutboxWriter,
	opts ...Option,
) *LendingService {
	s := &LendingService{
		logger:         l,
		policy:         policy,
		store:          store,
		transactor:     transactor,
		outbox:         outbox,
		tracer:         otel.Tracer(tracerName),
		lockRetryDelay: defaultLockRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueBook lends one copy of req.BookID to req.UserID.  A zero UserID
// means the caller.
func (s *LendingService) IssueBook(ctx context.Context, caller model.Caller, req model.IssueRequest) (model.BookIssue, error) {
	start := time.Now()
	if req.UserID == 0 {
		req.UserID = caller.UserID
	}
	ctx, span := s.tracer.Start(ctx, "LendingService.IssueBook", trace.WithAttributes(
		attribute.Int64("caller_id", int64(caller.UserID)),
		attribute.Int64("user_id", int64(req.UserID)),
		attribute.Int64("book_id", int64(req.BookID)),
	))
	defer span.End()

	var issue model.BookIssue
	err := s.issue(ctx, caller, req, &issue)
	s.finish(span, logger.IssueBook, start, err)
	if logger.ErrorIssueBook(s.logger, unexpected(err), "issue book failed", caller.UserID, req.UserID, req.BookID) {
		return model.BookIssue{}, err
	}
	if err != nil {
		return model.BookIssue{}, err
	}
	logger.InfoIssueBook(s.logger, "book issued", caller.UserID, req.UserID, req.BookID, issue.ID)
	return issue, nil
}

func (s *LendingService) issue(ctx context.Context, caller model.Caller, req model.IssueRequest, out *model.BookIssue) error {
	if err := authorize(caller, req.UserID); err != nil {
		return err
	}
	if req.BookID == 0 {
		return fmt.Errorf("%w: book_id is required", model.ErrInvalidInput)
	}
	if req.IssueDate.IsZero() || req.ExpectedReturnDate.IsZero() {
		return fmt.Errorf("%w: issue_date and expected_return_date are required", model.ErrInvalidInput)
	}
	if req.ExpectedReturnDate.Before(req.IssueDate) {
		return fmt.Errorf("%w: expected_return_date is before issue_date", model.ErrInvalidInput)
	}

	return s.withLockRetry(ctx, logger.IssueBook, func(ctx context.Context) error {
		// Lock the borrower first, then the book, so two issues for the
		// same user cannot both pass the limit check.
		if _, err := s.store.LockUser(ctx, req.UserID); err != nil {
			return err
		}
		book, err := s.store.GetBookForUpdate(ctx, req.BookID)
		if err != nil {
			return err
		}
		count, err := s.store.CountOpenIssues(ctx, req.UserID)
		if err != nil {
			return err
		}

		decision := s.policy.EvaluateIssue(count, book.AvailableCopies)
		if !decision.Allowed() {
			logger.WarnDenied(s.logger, logger.IssueBook, string(decision.Reason),
				zap.Uint64("user_id", req.UserID), zap.Uint64("book_id", req.BookID),
				zap.Int("open_issues", count), zap.Int("available_copies", book.AvailableCopies))
			return decision.Err()
		}

		// Record the issue and take the copy off the shelf.
		issue, err := s.store.InsertIssue(ctx, model.BookIssue{
			UserID:             req.UserID,
			BookID:             req.BookID,
			IssueDate:          req.IssueDate,
			ExpectedReturnDate: req.ExpectedReturnDate,
		})
		if err != nil {
			return err
		}
		available := book.AvailableCopies + decision.Mutation.CopiesDelta
		if err := s.store.UpdateBookCopies(ctx, book.ID, available); err != nil {
			return err
		}
		// The event commits or rolls back together with the issue.
		if err := s.emit(ctx, queue.NewLendingEvent(queue.KindBookIssued, issue, available)); err != nil {
			return err
		}
		*out = issue
		return nil
	})
}

// ReturnBook closes an open issue on returnDate.  A second return of the
// same issue is denied with AlreadyReturned and changes nothing.
func (s *LendingService) ReturnBook(ctx context.Context, caller model.Caller, issueID uint64, returnDate model.Date) (model.BookIssue, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "LendingService.ReturnBook", trace.WithAttributes(
		attribute.Int64("caller_id", int64(caller.UserID)),
		attribute.Int64("issue_id", int64(issueID)),
	))
	defer span.End()

	var issue model.BookIssue
	err := s.giveBack(ctx, caller, issueID, returnDate, &issue)
	s.finish(span, logger.ReturnBook, start, err)
	if logger.ErrorReturnBook(s.logger, unexpected(err), "return book failed", caller.UserID, issueID) {
		return model.BookIssue{}, err
	}
	if err != nil {
		return model.BookIssue{}, err
	}
	logger.InfoReturnBook(s.logger, "book returned", caller.UserID, issueID, issue.BookID)
	return issue, nil
}

func (s *LendingService) giveBack(ctx context.Context, caller model.Caller, issueID uint64, returnDate model.Date, out *model.BookIssue) error {
	if !caller.IsActive {
		if caller.UserID == 0 {
			return model.ErrUnauthorized
		}
		return model.ErrInactiveUser
	}
	if returnDate.IsZero() {
		return fmt.Errorf("%w: return_date is required", model.ErrInvalidInput)
	}

	return s.withLockRetry(ctx, logger.ReturnBook, func(ctx context.Context) error {
		// Load the issue under lock before checking who owns it.
		issue, err := s.store.GetIssueForUpdate(ctx, issueID)
		if err != nil {
			return err
		}
		if err := authorize(caller, issue.UserID); err != nil {
			return err
		}

		decision := s.policy.EvaluateReturn(issue)
		if !decision.Allowed() {
			logger.WarnDenied(s.logger, logger.ReturnBook, string(decision.Reason),
				zap.Uint64("issue_id", issueID))
			return decision.Err()
		}
		if returnDate.Before(issue.IssueDate) {
			return fmt.Errorf("%w: return_date is before issue_date", model.ErrInvalidInput)
		}

		// Put the copy back on the shelf.
		book, err := s.store.GetBookForUpdate(ctx, issue.BookID)
		if err != nil {
			return err
		}
		if err := s.store.CloseIssue(ctx, issue.ID, returnDate); err != nil {
			return err
		}
		available := book.AvailableCopies + decision.Mutation.CopiesDelta
		if err := s.store.UpdateBookCopies(ctx, book.ID, available); err != nil {
			return err
		}

		rd := returnDate
		issue.ReturnDate = &rd
		if err := s.emit(ctx, queue.NewLendingEvent(queue.KindBookReturned, issue, available)); err != nil {
			return err
		}
		*out = issue
		return nil
	})
}

// ListActiveIssues returns the open issues of userID, oldest first.
func (s *LendingService) ListActiveIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "LendingService.ListActiveIssues",
		trace.WithAttributes(attribute.Int64("user_id", int64(userID))))
	defer span.End()

	issues, err := s.store.ListOpenIssues(ctx, userID)
	s.finish(span, logger.ListActiveIssues, start, err)
	if logger.CheckError(err, s.logger, "list active issues failed",
		zap.Uint64("user_id", userID), zap.Error(err), zap.String("action", logger.ListActiveIssues)) {
		return nil, err
	}
	return issues, nil
}

// ListIssues returns every issue of userID, open and closed, oldest first.
func (s *LendingService) ListIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error) {
	ctx, span := s.tracer.Start(ctx, "LendingService.ListIssues",
		trace.WithAttributes(attribute.Int64("user_id", int64(userID))))
	defer span.End()

	issues, err := s.store.ListIssues(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return issues, nil
}

// AdjustStock adds delta copies to a book, or removes -delta copies that
// are on the shelf.  Only admins may change stock.
func (s *LendingService) AdjustStock(ctx context.Context, caller model.Caller, bookID uint64, delta int) (model.Book, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "LendingService.AdjustStock", trace.WithAttributes(
		attribute.Int64("caller_id", int64(caller.UserID)),
		attribute.Int64("book_id", int64(bookID)),
		attribute.Int("delta", delta),
	))
	defer span.End()

	var book model.Book
	err := s.adjust(ctx, caller, bookID, delta, &book)
	s.finish(span, logger.AdjustStock, start, err)
	if logger.CheckError(unexpected(err), s.logger, "adjust stock failed",
		zap.Uint64("book_id", bookID), zap.Int("delta", delta), zap.Error(err), zap.String("action", logger.AdjustStock)) {
		return model.Book{}, err
	}
	if err != nil {
		return model.Book{}, err
	}
	logger.MakeInfo(s.logger, "stock adjusted",
		zap.Uint64("book_id", bookID), zap.Int("delta", delta),
		zap.Int("total_copies", book.TotalCopies), zap.String("action", logger.AdjustStock))
	return book, nil
}

func (s *LendingService) adjust(ctx context.Context, caller model.Caller, bookID uint64, delta int, out *model.Book) error {
	if !caller.IsActive {
		return model.ErrInactiveUser
	}
	if !caller.IsAdmin {
		return model.ErrForbidden
	}
	return s.withLockRetry(ctx, logger.AdjustStock, func(ctx context.Context) error {
		book, err := s.store.GetBookForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		decision := s.policy.EvaluateStockChange(book, delta)
		if !decision.Allowed() {
			logger.WarnDenied(s.logger, logger.AdjustStock, string(decision.Reason),
				zap.Uint64("book_id", bookID), zap.Int("delta", delta))
			return decision.Err()
		}
		// Removed copies come off both counts; lent copies are untouched.
		book.TotalCopies += decision.Mutation.TotalDelta
		book.AvailableCopies += decision.Mutation.CopiesDelta
		if err := s.store.UpdateBookStock(ctx, book.ID, book.TotalCopies, book.AvailableCopies); err != nil {
			return err
		}
		*out = book
		return nil
	})
}

// withLockRetry runs fn in a transaction and runs it once more when the
// first attempt hit a lock wait timeout.
func (s *LendingService) withLockRetry(ctx context.Context, action logger.Action, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(1, retry.NewConstant(s.lockRetryDelay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.transactor.WithTx(ctx, fn)
		if errors.Is(err, model.ErrLockWaitTimeout) {
			logger.WarnLockRetry(s.logger, action, err)
			metrics.LockRetries.WithLabelValues(action).Inc()
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *LendingService) emit(ctx context.Context, ev queue.LendingEvent) error {
	if s.outbox == nil {
		return nil
	}
	data, err := queue.Encode(ev)
	if err != nil {
		return err
	}
	return s.outbox.SendMessage(ctx, ev.IdempotencyKey(), ev.Kind, data)
}

func (s *LendingService) finish(span trace.Span, action logger.Action, start time.Time, err error) {
	outcome := outcomeOK
	switch {
	case err == nil:
	case errors.Is(err, lending.ErrPolicyViolation):
		outcome = outcomeDenied
		if reason, ok := lending.ReasonOf(err); ok {
			span.SetAttributes(attribute.String("denial_reason", string(reason)))
		}
	default:
		outcome = outcomeError
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.ObserveLending(action, outcome, start)
}

// authorize lets an active caller act for itself, and an active admin act
// for anyone.
func authorize(caller model.Caller, userID uint64) error {
	if caller.UserID == 0 {
		return model.ErrUnauthorized
	}
	if !caller.IsActive {
		return model.ErrInactiveUser
	}
	if caller.UserID != userID && !caller.IsAdmin {
		return model.ErrForbidden
	}
	return nil
}

// unexpected drops the errors that are a normal answer to a client, so only
// failures reach the error log.
func unexpected(err error) error {
	if err == nil ||
		errors.Is(err, lending.ErrPolicyViolation) ||
		errors.Is(err, model.ErrInvalidInput) ||
		errors.Is(err, model.ErrUnauthorized) ||
		errors.Is(err, model.ErrForbidden) ||
		errors.Is(err, model.ErrInactiveUser) ||
		errors.Is(err, model.ErrBookNotFound) ||
		errors.Is(err, model.ErrIssueNotFound) ||
		errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	return err
}
