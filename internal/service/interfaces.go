// Package service implements the lending workflow: it runs the lending
// policy against locked storage state inside one transaction per request.
package service

import (
	"context"

	"github.com/D191001/libra/internal/model"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/interfaces.go -package=mocks
type (
	// LendingStore is the persistence side of the workflow.  Locking reads
	// need a transaction started by Transactor.
	LendingStore interface {
		LockUser(ctx context.Context, userID uint64) (model.User, error)
		GetBookForUpdate(ctx context.Context, bookID uint64) (model.Book, error)
		CountOpenIssues(ctx context.Context, userID uint64) (int, error)
		InsertIssue(ctx context.Context, issue model.BookIssue) (model.BookIssue, error)
		GetIssueForUpdate(ctx context.Context, issueID uint64) (model.BookIssue, error)
		UpdateBookCopies(ctx context.Context, bookID uint64, available int) error
		UpdateBookStock(ctx context.Context, bookID uint64, total, available int) error
		CloseIssue(ctx context.Context, issueID uint64, returnDate model.Date) error
		ListOpenIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error)
		ListIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error)
		ListOverdueIssues(ctx context.Context, day model.Date, afterID uint64, limit int) ([]model.BookIssue, error)
	}

	Transactor interface {
		WithTx(ctx context.Context, function func(ctx context.Context) error) error
	}

	// OutboxWriter stores an event in the caller's transaction.
	OutboxWriter interface {
		SendMessage(ctx context.Context, idempotencyKey string, kind string, message []byte) error
	}

	UserStore interface {
		GetByUsername(ctx context.Context, username string) (model.User, error)
		Create(ctx context.Context, username, password string, isAdmin bool, cost int) (model.User, error)
		SetFlags(ctx context.Context, id uint64, isAdmin, isActive bool) error
	}
)
