package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/D191001/libra/internal/model"
)

const (
	bookColumns  = "id, title, description, publication_date, total_copies, available_copies, author_id"
	issueColumns = "id, user_id, book_id, issue_date, expected_return_date, return_date"
	userColumns  = "id, username, hashed_password, is_active, is_admin, created_at, updated_at"
)

// LendingRepo is the persistence side of the lending workflow.  Methods
// named ...ForUpdate and LockUser take row locks and must run inside
// Transactor.WithTx; the locks are held until the transaction ends.
type LendingRepo struct {
	db *sqlx.DB
}

func NewLendingRepo(db *sqlx.DB) *LendingRepo { return &LendingRepo{db: db} }

// LockUser locks the users row so that concurrent issues for the same user
// are serialized and the open-issue count stays accurate.
func (r *LendingRepo) LockUser(ctx context.Context, userID uint64) (model.User, error) {
	tx, err := extractTx(ctx)
	if err != nil {
		return model.User{}, err
	}
	var u model.User
	err = sqlx.GetContext(ctx, tx, &u,
		"SELECT "+userColumns+" FROM users WHERE id = ? FOR UPDATE", userID)
	if err != nil {
		return model.User{}, notFoundOr("lock user", err, model.ErrUserNotFound)
	}
	return u, nil
}

// GetBookForUpdate reads and locks a books row.
func (r *LendingRepo) GetBookForUpdate(ctx context.Context, bookID uint64) (model.Book, error) {
	tx, err := extractTx(ctx)
	if err != nil {
		return model.Book{}, err
	}
	var b model.Book
	err = sqlx.GetContext(ctx, tx, &b,
		"SELECT "+bookColumns+" FROM books WHERE id = ? FOR UPDATE", bookID)
	if err != nil {
		return model.Book{}, notFoundOr("lock book", err, model.ErrBookNotFound)
	}
	return b, nil
}

// CountOpenIssues counts issues of userID with no return date.
func (r *LendingRepo) CountOpenIssues(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &n,
		"SELECT COUNT(*) FROM book_issues WHERE user_id = ? AND return_date IS NULL", userID)
	if err != nil {
		return 0, storageErr("count open issues", err)
	}
	return n, nil
}

// InsertIssue stores a new open issue and returns it with its id.
func (r *LendingRepo) InsertIssue(ctx context.Context, issue model.BookIssue) (model.BookIssue, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO book_issues (user_id, book_id, issue_date, expected_return_date) VALUES (?, ?, ?, ?)",
		issue.UserID, issue.BookID, issue.IssueDate, issue.ExpectedReturnDate)
	if err != nil {
		return model.BookIssue{}, storageErr("insert issue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.BookIssue{}, storageErr("insert issue id", err)
	}
	issue.ID = uint64(id)
	issue.ReturnDate = nil
	return issue, nil
}

// GetIssueForUpdate reads and locks a book_issues row.
func (r *LendingRepo) GetIssueForUpdate(ctx context.Context, issueID uint64) (model.BookIssue, error) {
	tx, err := extractTx(ctx)
	if err != nil {
		return model.BookIssue{}, err
	}
	var i model.BookIssue
	err = sqlx.GetContext(ctx, tx, &i,
		"SELECT "+issueColumns+" FROM book_issues WHERE id = ? FOR UPDATE", issueID)
	if err != nil {
		return model.BookIssue{}, notFoundOr("lock issue", err, model.ErrIssueNotFound)
	}
	return i, nil
}

// UpdateBookCopies writes the new available copy count of a locked book.
func (r *LendingRepo) UpdateBookCopies(ctx context.Context, bookID uint64, available int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE books SET available_copies = ? WHERE id = ?", available, bookID)
	return storageErr("update book copies", err)
}

// UpdateBookStock writes both copy counters of a locked book.
func (r *LendingRepo) UpdateBookStock(ctx context.Context, bookID uint64, total, available int) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE books SET total_copies = ?, available_copies = ? WHERE id = ?", total, available, bookID)
	return storageErr("update book stock", err)
}

// CloseIssue sets the return date of a locked, open issue.
func (r *LendingRepo) CloseIssue(ctx context.Context, issueID uint64, returnDate model.Date) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE book_issues SET return_date = ? WHERE id = ? AND return_date IS NULL", returnDate, issueID)
	return storageErr("close issue", err)
}

// ListOpenIssues returns the open issues of userID, oldest first.
func (r *LendingRepo) ListOpenIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error) {
	issues := make([]model.BookIssue, 0)
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &issues,
		"SELECT "+issueColumns+" FROM book_issues WHERE user_id = ? AND return_date IS NULL ORDER BY issue_date ASC, id ASC",
		userID)
	if err != nil {
		return nil, storageErr("list open issues", err)
	}
	return issues, nil
}

// ListIssues returns every issue of userID, oldest first.
func (r *LendingRepo) ListIssues(ctx context.Context, userID uint64) ([]model.BookIssue, error) {
	issues := make([]model.BookIssue, 0)
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &issues,
		"SELECT "+issueColumns+" FROM book_issues WHERE user_id = ? ORDER BY issue_date ASC, id ASC",
		userID)
	if err != nil {
		return nil, storageErr("list issues", err)
	}
	return issues, nil
}

// ListOverdueIssues returns at most limit open issues due before day with
// an id greater than afterID, in id order.  Passing the last id of a page
// as afterID yields the next page.
func (r *LendingRepo) ListOverdueIssues(ctx context.Context, day model.Date, afterID uint64, limit int) ([]model.BookIssue, error) {
	issues := make([]model.BookIssue, 0)
	err := sqlx.SelectContext(ctx, conn(ctx, r.db), &issues,
		"SELECT "+issueColumns+" FROM book_issues WHERE return_date IS NULL AND expected_return_date < ? AND id > ? ORDER BY id ASC LIMIT ?",
		day, afterID, limit)
	if err != nil {
		return nil, storageErr("list overdue issues", err)
	}
	return issues, nil
}
