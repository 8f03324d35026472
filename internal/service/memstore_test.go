package service

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"

	"github.com/D191001/libra/internal/model"
)

type txKey struct{}

var errNoTx = errors.New("locking read outside transaction")

// memStore serializes whole transactions on one mutex, the strongest form
// of the row locks the MySQL store takes, and restores a snapshot on
// rollback.
type memStore struct {
	mu     sync.Mutex
	users  map[uint64]model.User
	books  map[uint64]model.Book
	issues map[uint64]model.BookIssue
	events map[string]string
	nextID uint64
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uint64]model.User),
		books:  make(map[uint64]model.Book),
		issues: make(map[uint64]model.BookIssue),
		events: make(map[string]string),
	}
}

func (m *memStore) addUser(id uint64, active, admin bool) {
	m.users[id] = model.User{ID: id, IsActive: active, IsAdmin: admin}
}

func (m *memStore) addBook(id uint64, copies int) {
	m.books[id] = model.Book{ID: id, TotalCopies: copies, AvailableCopies: copies}
}

func (m *memStore) book(id uint64) model.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id]
}

func (m *memStore) openIssues(bookID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, i := range m.issues {
		if i.BookID == bookID && i.IsOpen() {
			n++
		}
	}
	return n
}

func (m *memStore) eventKinds() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.events)
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	books, issues, events, nextID := maps.Clone(m.books), maps.Clone(m.issues), maps.Clone(m.events), m.nextID
	err := fn(context.WithValue(ctx, txKey{}, true))
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		m.books, m.issues, m.events, m.nextID = books, issues, events, nextID
	}
	return err
}

func inTx(ctx context.Context) error {
	if ctx.Value(txKey{}) == nil {
		return errNoTx
	}
	return nil
}

func (m *memStore) LockUser(ctx context.Context, userID uint64) (model.User, error) {
	if err := inTx(ctx); err != nil {
		return model.User{}, err
	}
	u, ok := m.users[userID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) GetBookForUpdate(ctx context.Context, bookID uint64) (model.Book, error) {
	if err := inTx(ctx); err != nil {
		return model.Book{}, err
	}
	b, ok := m.books[bookID]
	if !ok {
		return model.Book{}, model.ErrBookNotFound
	}
	return b, nil
}

func (m *memStore) CountOpenIssues(ctx context.Context, userID uint64) (int, error) {
	if err := inTx(ctx); err != nil {
		return 0, err
	}
	n := 0
	for _, i := range m.issues {
		if i.UserID == userID && i.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertIssue(ctx context.Context, issue model.BookIssue) (model.BookIssue, error) {
	if err := inTx(ctx); err != nil {
		return model.BookIssue{}, err
	}
	m.nextID++
	issue.ID = m.nextID
	issue.ReturnDate = nil
	m.issues[issue.ID] = issue
	return issue, nil
}

func (m *memStore) GetIssueForUpdate(ctx context.Context, issueID uint64) (model.BookIssue, error) {
	if err := inTx(ctx); err != nil {
		return model.BookIssue{}, err
	}
	i, ok := m.issues[issueID]
	if !ok {
		return model.BookIssue{}, model.ErrIssueNotFound
	}
	return i, nil
}

func (m *memStore) UpdateBookCopies(ctx context.Context, bookID uint64, available int) error {
	if err := inTx(ctx); err != nil {
		return err
	}
	if available < 0 {
		return errors.New("available copies would go negative")
	}
	b := m.books[bookID]
	b.AvailableCopies = available
	m.books[bookID] = b
	return nil
}

func (m *memStore) UpdateBookStock(ctx context.Context, bookID uint64, total, available int) error {
	if err := inTx(ctx); err != nil {
		return err
	}
	b := m.books[bookID]
	b.TotalCopies, b.AvailableCopies = total, available
	m.books[bookID] = b
	return nil
}

func (m *memStore) CloseIssue(ctx context.Context, issueID uint64, returnDate model.Date) error {
	if err := inTx(ctx); err != nil {
		return err
	}
	i := m.issues[issueID]
	if !i.IsOpen() {
		return nil
	}
	i.ReturnDate = &returnDate
	m.issues[issueID] = i
	return nil
}

func (m *memStore) list(keep func(model.BookIssue) bool) []model.BookIssue {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BookIssue, 0)
	for _, i := range m.issues {
		if keep(i) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].IssueDate.Equal(out[b].IssueDate) {
			return out[a].IssueDate.Before(out[b].IssueDate)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

func (m *memStore) ListOpenIssues(_ context.Context, userID uint64) ([]model.BookIssue, error) {
	return m.list(func(i model.BookIssue) bool { return i.UserID == userID && i.IsOpen() }), nil
}

func (m *memStore) ListIssues(_ context.Context, userID uint64) ([]model.BookIssue, error) {
	return m.list(func(i model.BookIssue) bool { return i.UserID == userID }), nil
}

func (m *memStore) ListOverdueIssues(_ context.Context, day model.Date, afterID uint64, limit int) ([]model.BookIssue, error) {
	out := m.list(func(i model.BookIssue) bool { return i.ID > afterID && i.IsOverdue(day) })
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SendMessage(ctx context.Context, idempotencyKey string, kind string, _ []byte) error {
	if inTx(ctx) != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
	}
	if _, ok := m.events[idempotencyKey]; !ok {
		m.events[idempotencyKey] = kind
	}
	return nil
}
