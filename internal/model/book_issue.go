package model

// BookIssue records one loan of one copy of a book to one user.  An issue
// is open while ReturnDate is nil.  It is closed exactly once and is never
// reopened or deleted.
//
// Fields:
//  ID                 - primary key identifier.
//  UserID             - borrower.
//  BookID             - borrowed title.
//  IssueDate          - day the copy left the shelf.
//  ExpectedReturnDate - due date.
//  ReturnDate         - day the copy came back (nil while open).
type BookIssue struct {
	ID                 uint64 `db:"id" json:"id"`                                     // book_issues.id
	UserID             uint64 `db:"user_id" json:"user_id"`                           // book_issues.user_id
	BookID             uint64 `db:"book_id" json:"book_id"`                           // book_issues.book_id
	IssueDate          Date   `db:"issue_date" json:"issue_date"`                     // book_issues.issue_date
	ExpectedReturnDate Date   `db:"expected_return_date" json:"expected_return_date"` // book_issues.expected_return_date
	ReturnDate         *Date  `db:"return_date" json:"return_date"`                   // book_issues.return_date (nullable)
}

// IsOpen reports whether the copy is still on loan.
func (i BookIssue) IsOpen() bool { return i.ReturnDate == nil }

// IsOverdue reports whether an open issue is past its due date on day.
func (i BookIssue) IsOverdue(day Date) bool {
	return i.IsOpen() && i.ExpectedReturnDate.Before(day)
}

// IssueRequest carries the inputs of a lending request.  A zero UserID
// means "the caller".
type IssueRequest struct {
	UserID             uint64
	BookID             uint64
	IssueDate          Date
	ExpectedReturnDate Date
}
