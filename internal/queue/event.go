// Package queue defines the lending events exchanged over the message
// broker, the publisher used by the outbox relay and the consumer that
// writes them to the lending audit log.
package queue

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/D191001/libra/internal/model"
)

// LendingQueueName is the durable queue lending events are routed to.
const LendingQueueName = "lending.events"

const (
	KindBookIssued   = "book.issued"
	KindBookReturned = "book.returned"
	KindBookOverdue  = "book.overdue"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KnownKind reports whether kind is a lending event kind.
func KnownKind(kind string) bool {
	switch kind {
	case KindBookIssued, KindBookReturned, KindBookOverdue:
		return true
	}
	return false
}

// LendingEvent is published after a lending state change commits.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type LendingEvent struct {
	EventID            string `json:"event_id"`
	Kind               string `json:"kind"`
	IssueID            uint64 `json:"issue_id"`
	UserID             uint64 `json:"user_id"`
	BookID             uint64 `json:"book_id"`
	IssueDate          string `json:"issue_date"`
	ExpectedReturnDate string `json:"expected_return_date"`
	ReturnDate         string `json:"return_date,omitempty"`
	AsOf               string `json:"as_of,omitempty"`
	AvailableCopies    int    `json:"available_copies"`
	OccurredAt         string `json:"occurred_at"`
}

// NewLendingEvent describes issue after a change of the given kind.
// available is the book's available copies after the change.
func NewLendingEvent(kind string, issue model.BookIssue, available int) LendingEvent {
	ev := LendingEvent{
		EventID:            uuid.NewString(),
		Kind:               kind,
		IssueID:            issue.ID,
		UserID:             issue.UserID,
		BookID:             issue.BookID,
		IssueDate:          issue.IssueDate.String(),
		ExpectedReturnDate: issue.ExpectedReturnDate.String(),
		AvailableCopies:    available,
		OccurredAt:         time.Now().UTC().Format(time.RFC3339),
	}
	if issue.ReturnDate != nil {
		ev.ReturnDate = issue.ReturnDate.String()
	}
	return ev
}

// NewOverdueEvent reports that issue was still open past its due date on day.
func NewOverdueEvent(issue model.BookIssue, day model.Date) LendingEvent {
	ev := NewLendingEvent(KindBookOverdue, issue, 0)
	ev.AsOf = day.String()
	return ev
}

// IdempotencyKey identifies the state change, not the event instance, so a
// repeated write of the same change is stored once.  An issue is issued and
// returned once; overdue is reported once per day.
func (e LendingEvent) IdempotencyKey() string {
	key := e.Kind + ":" + strconv.FormatUint(e.IssueID, 10)
	if e.AsOf != "" {
		key += ":" + e.AsOf
	}
	return key
}

func Encode(e LendingEvent) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode lending event: %w", err)
	}
	return b, nil
}

func Decode(b []byte) (LendingEvent, error) {
	var e LendingEvent
	if err := json.Unmarshal(b, &e); err != nil {
		return LendingEvent{}, fmt.Errorf("decode lending event: %w", err)
	}
	if !KnownKind(e.Kind) {
		return LendingEvent{}, fmt.Errorf("decode lending event: unknown kind %q", e.Kind)
	}
	return e, nil
}
