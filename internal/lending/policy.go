package lending

import "github.com/D191001/libra/internal/model"

// MaxActiveIssuesPerUser is the default cap on open issues per user.
const MaxActiveIssuesPerUser = 5

// Policy evaluates lending rules.  The zero value is not useful; use
// DefaultPolicy or NewPolicy.
type Policy struct {
	MaxActiveIssues int
}

// DefaultPolicy caps users at MaxActiveIssuesPerUser open issues.
var DefaultPolicy = Policy{MaxActiveIssues: MaxActiveIssuesPerUser}

// NewPolicy returns a policy with the given cap.  Non-positive values fall
// back to the default cap.
func NewPolicy(maxActiveIssues int) Policy {
	if maxActiveIssues <= 0 {
		maxActiveIssues = MaxActiveIssuesPerUser
	}
	return Policy{MaxActiveIssues: maxActiveIssues}
}

// EvaluateIssue decides whether a user holding userActiveIssueCount open
// issues may borrow a copy of a book with bookAvailableCopies on the shelf.
//
// Rules, in order:
//
//	DENY  UserIssueLimitExceeded  when the user is at the cap
//	DENY  NoAvailableCopies       when no copy is on the shelf
//	ALLOW create an issue and take one copy off the shelf
//
// The cap is checked first, so a user at the cap asking for an
// out-of-stock book is told about the cap.
func (p Policy) EvaluateIssue(userActiveIssueCount, bookAvailableCopies int) Decision {
	if userActiveIssueCount >= p.MaxActiveIssues {
		return Deny(ReasonUserIssueLimitExceeded)
	}
	if bookAvailableCopies <= 0 {
		return Deny(ReasonNoAvailableCopies)
	}
	return Allow(Mutation{CreateIssue: true, CopiesDelta: -1})
}

// EvaluateReturn decides whether issue may be closed.  A second return of
// the same issue is denied rather than treated as a no-op so that the copy
// count is incremented exactly once per issue.
func (p Policy) EvaluateReturn(issue model.BookIssue) Decision {
	if !issue.IsOpen() {
		return Deny(ReasonAlreadyReturned)
	}
	return Allow(Mutation{CloseIssue: true, CopiesDelta: +1})
}

// EvaluateStockChange decides whether delta copies may be added to
// (positive) or withdrawn from (negative) book.  Copies on loan cannot be
// withdrawn.
func (p Policy) EvaluateStockChange(book model.Book, delta int) Decision {
	if delta == 0 {
		return Deny(ReasonInvalidStockChange)
	}
	if book.AvailableCopies+delta < 0 || book.TotalCopies+delta < 0 {
		return Deny(ReasonCopiesOnLoan)
	}
	return Allow(Mutation{CopiesDelta: delta, TotalDelta: delta})
}

// EvaluateIssue applies DefaultPolicy.
func EvaluateIssue(userActiveIssueCount, bookAvailableCopies int) Decision {
	return DefaultPolicy.EvaluateIssue(userActiveIssueCount, bookAvailableCopies)
}

// EvaluateReturn applies DefaultPolicy.
func EvaluateReturn(issue model.BookIssue) Decision {
	return DefaultPolicy.EvaluateReturn(issue)
}
