// Package handler implements the HTTP endpoints.  Handlers decode and
// validate requests, call a store or the lending service, and render the
// result or a stable error code.
package handler

import (
	"context"
	"time"

	"github.com/D191001/libra/internal/model"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/interfaces.go -package=mocks
type (
	// Lender is the lending workflow.  It is the only path that changes
	// available copies.
	Lender interface {
		IssueBook(ctx context.Context, caller model.Caller, req model.IssueRequest) (model.BookIssue, error)
		ReturnBook(ctx context.Context, caller model.Caller, issueID uint64, returnDate model.Date) (model.BookIssue, error)
		ListActiveIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error)
		ListIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error)
		AdjustStock(ctx context.Context, caller model.Caller, bookID uint64, delta int) (model.Book, error)
	}

	UserStore interface {
		Create(ctx context.Context, username, password string, isAdmin bool, cost int) (model.User, error)
		GetByUsername(ctx context.Context, username string) (model.User, error)
		GetByID(ctx context.Context, id uint64) (model.User, error)
		UpdateProfile(ctx context.Context, id uint64, username, password string, cost int) (model.User, error)
	}

	TokenStore interface {
		StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
		ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
		RevokeByHash(ctx context.Context, tokenHash string) error
		RevokeAllForUser(ctx context.Context, userID uint64) error
	}

	AuthorStore interface {
		Create(ctx context.Context, a model.Author) (model.Author, error)
		GetByID(ctx context.Context, id uint64) (model.Author, error)
		Update(ctx context.Context, a model.Author) (model.Author, error)
		Delete(ctx context.Context, id uint64) error
	}

	// BookStore covers the descriptive fields of books.  Copies are
	// changed through Lender only.
	BookStore interface {
		Create(ctx context.Context, b model.Book) (model.Book, error)
		GetByID(ctx context.Context, id uint64) (model.Book, error)
		Update(ctx context.Context, b model.Book) (model.Book, error)
		Delete(ctx context.Context, id uint64) error
	}

	GenreStore interface {
		Create(ctx context.Context, name string) (model.Genre, error)
		GetByID(ctx context.Context, id uint64) (model.Genre, error)
		Delete(ctx context.Context, id uint64) error
	}

	Pinger interface {
		PingContext(ctx context.Context) error
	}
)
