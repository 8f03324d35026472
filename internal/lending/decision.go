// Package lending holds the pure lending rules: whether a copy may be
// issued or returned and which mutations follow.  It performs no I/O; the
// workflow in package service supplies the inputs under row locks and
// applies the resulting mutation inside the same transaction.
package lending

import (
	"errors"
	"fmt"
)

// Reason is a stable, client-facing code explaining a denial.
type Reason string

const (
	ReasonUserIssueLimitExceeded Reason = "UserIssueLimitExceeded"
	ReasonNoAvailableCopies      Reason = "NoAvailableCopies"
	ReasonAlreadyReturned        Reason = "AlreadyReturned"
	ReasonCopiesOnLoan           Reason = "CopiesOnLoan"
	ReasonInvalidStockChange     Reason = "InvalidStockChange"
)

// ErrPolicyViolation matches every *PolicyViolation through errors.Is.
var ErrPolicyViolation = errors.New("lending policy violation")

// PolicyViolation is the error form of a denied Decision.
type PolicyViolation struct {
	Reason Reason
}

func (v *PolicyViolation) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyViolation, v.Reason)
}

func (v *PolicyViolation) Is(target error) bool { return target == ErrPolicyViolation }

// ReasonOf extracts the denial reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var v *PolicyViolation
	if errors.As(err, &v) {
		return v.Reason, true
	}
	return "", false
}

// Mutation is the state change an allowed decision asks for.
type Mutation struct {
	CreateIssue bool
	CloseIssue  bool
	// CopiesDelta is added to the book's available copies.
	CopiesDelta int
	// TotalDelta is added to the book's total copies.
	TotalDelta int
}

type outcome string

const (
	allowOutcome outcome = "allow"
	denyOutcome  outcome = "deny"
)

// Decision is the result of evaluating a lending rule.  Build it with
// Allow or Deny only.
type Decision struct {
	outcome  outcome
	Reason   Reason
	Mutation Mutation
}

// Allow creates a Decision that permits the operation with mutation m.
func Allow(m Mutation) Decision {
	return Decision{outcome: allowOutcome, Mutation: m}
}

// Deny creates a Decision that rejects the operation for reason r.
func Deny(r Reason) Decision {
	return Decision{outcome: denyOutcome, Reason: r}
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool { return d.outcome == allowOutcome }

// Err returns a *PolicyViolation for denials and nil otherwise.
func (d Decision) Err() error {
	if d.outcome == denyOutcome {
		return &PolicyViolation{Reason: d.Reason}
	}
	return nil
}
