package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/service/mocks"
)

var errInternal = errors.New("internal error")

type lendingMocks struct {
	store      *mocks.MockLendingStore
	transactor *mocks.MockTransactor
	outbox     *mocks.MockOutboxWriter
}

func initLendingTest(t *testing.T) (context.Context, lendingMocks, *LendingService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := lendingMocks{
		store:      mocks.NewMockLendingStore(ctrl),
		transactor: mocks.NewMockTransactor(ctrl),
		outbox:     mocks.NewMockOutboxWriter(ctrl),
	}
	s := NewLendingService(zap.NewNop(), lending.DefaultPolicy, m.store, m.transactor, m.outbox,
		WithLockRetryDelay(time.Millisecond))
	return context.Background(), m, s
}

func runTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestIssueBook_Authorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		caller  model.Caller
		userID  uint64
		wantErr error
	}{
		{name: "anonymous", caller: model.Caller{}, userID: 1, wantErr: model.ErrUnauthorized},
		{name: "inactive self", caller: model.Caller{UserID: 1}, userID: 1, wantErr: model.ErrInactiveUser},
		{name: "for another user", caller: active(1), userID: 2, wantErr: model.ErrForbidden},
		{name: "inactive admin", caller: model.Caller{UserID: 1, IsAdmin: true}, userID: 2, wantErr: model.ErrInactiveUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, _, s := initLendingTest(t)
			_, err := s.IssueBook(ctx, tt.caller, issueReq(tt.userID, 7))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIssueBook_InvalidInput(t *testing.T) {
	t.Parallel()

	backwards := issueReq(1, 7)
	backwards.ExpectedReturnDate = model.MustDate("2023-12-31")
	noDue := issueReq(1, 7)
	noDue.ExpectedReturnDate = model.Date{}
	noBook := issueReq(1, 0)

	for name, req := range map[string]model.IssueRequest{
		"due before issue": backwards,
		"missing due date": noDue,
		"missing book":     noBook,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, _, s := initLendingTest(t)
			_, err := s.IssueBook(ctx, active(1), req)
			require.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}

func TestIssueBook_LocksUserThenBook(t *testing.T) {
	t.Parallel()

	ctx, m, s := initLendingTest(t)
	m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx)
	gomock.InOrder(
		m.store.EXPECT().LockUser(gomock.Any(), uint64(3)).Return(model.User{ID: 3, IsActive: true}, nil),
		m.store.EXPECT().GetBookForUpdate(gomock.Any(), uint64(7)).Return(model.Book{ID: 7, TotalCopies: 2, AvailableCopies: 2}, nil),
		m.store.EXPECT().CountOpenIssues(gomock.Any(), uint64(3)).Return(4, nil),
		m.store.EXPECT().InsertIssue(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, issue model.BookIssue) (model.BookIssue, error) {
				issue.ID = 42
				return issue, nil
			}),
		m.store.EXPECT().UpdateBookCopies(gomock.Any(), uint64(7), 1).Return(nil),
		m.outbox.EXPECT().SendMessage(gomock.Any(), "book.issued:42", "book.issued", gomock.Any()).Return(nil),
	)

	// Admin acting for user 3 with the user id taken from the request.
	issue, err := s.IssueBook(ctx, model.Caller{UserID: 1, IsActive: true, IsAdmin: true}, issueReq(3, 7))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), issue.ID)
	assert.Equal(t, uint64(3), issue.UserID)
	assert.Nil(t, issue.ReturnDate)
}

func TestIssueBook_DefaultsToCaller(t *testing.T) {
	t.Parallel()

	ctx, m, s := initLendingTest(t)
	m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx)
	m.store.EXPECT().LockUser(gomock.Any(), uint64(5)).Return(model.User{ID: 5}, nil)
	m.store.EXPECT().GetBookForUpdate(gomock.Any(), uint64(7)).Return(model.Book{ID: 7}, nil)
	m.store.EXPECT().CountOpenIssues(gomock.Any(), uint64(5)).Return(0, nil)

	_, err := s.IssueBook(ctx, active(5), issueReq(0, 7))
	reason, ok := lending.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, lending.ReasonNoAvailableCopies, reason)
}

func TestIssueBook_MissingBookBeforePolicy(t *testing.T) {
	t.Parallel()

	ctx, m, s := initLendingTest(t)
	m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx)
	m.store.EXPECT().LockUser(gomock.Any(), uint64(1)).Return(model.User{ID: 1}, nil)
	m.store.EXPECT().GetBookForUpdate(gomock.Any(), uint64(7)).Return(model.Book{}, model.ErrBookNotFound)

	_, err := s.IssueBook(ctx, active(1), issueReq(1, 7))
	require.ErrorIs(t, err, model.ErrBookNotFound)
}

func TestIssueBook_LockTimeoutRetriedOnce(t *testing.T) {
	t.Parallel()

	timeout := fmt.Errorf("lock book: %w", model.ErrLockWaitTimeout)

	tests := []struct {
		name      string
		failures  int
		wantErr   error
		wantCalls int
	}{
		{name: "second attempt succeeds", failures: 1, wantCalls: 2},
		{name: "both attempts time out", failures: 2, wantErr: model.ErrLockWaitTimeout, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, m, s := initLendingTest(t)
			calls := 0
			m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, fn func(context.Context) error) error {
					calls++
					if calls <= tt.failures {
						return timeout
					}
					return fn(ctx)
				}).Times(tt.wantCalls)
			if tt.failures < tt.wantCalls {
				m.store.EXPECT().LockUser(gomock.Any(), uint64(1)).Return(model.User{ID: 1}, nil)
				m.store.EXPECT().GetBookForUpdate(gomock.Any(), uint64(7)).Return(model.Book{ID: 7, AvailableCopies: 1}, nil)
				m.store.EXPECT().CountOpenIssues(gomock.Any(), uint64(1)).Return(0, nil)
				m.store.EXPECT().InsertIssue(gomock.Any(), gomock.Any()).Return(model.BookIssue{ID: 9, UserID: 1, BookID: 7}, nil)
				m.store.EXPECT().UpdateBookCopies(gomock.Any(), uint64(7), 0).Return(nil)
				m.outbox.EXPECT().SendMessage(gomock.Any(), "book.issued:9", "book.issued", gomock.Any()).Return(nil)
			}

			_, err := s.IssueBook(ctx, active(1), issueReq(1, 7))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestIssueBook_StorageFailureNotRetried(t *testing.T) {
	t.Parallel()

	ctx, m, s := initLendingTest(t)
	m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("commit: %w: %w", model.ErrStorage, errInternal)).Times(1)

	_, err := s.IssueBook(ctx, active(1), issueReq(1, 7))
	require.ErrorIs(t, err, model.ErrStorage)
}

func TestReturnBook(t *testing.T) {
	t.Parallel()

	open := model.BookIssue{
		ID:                 42,
		UserID:             3,
		BookID:             7,
		IssueDate:          model.MustDate("2024-01-01"),
		ExpectedReturnDate: model.MustDate("2024-02-01"),
	}
	returnedOn := model.MustDate("2024-01-10")
	closed := open
	closed.ReturnDate = &returnedOn

	tests := []struct {
		name       string
		caller     model.Caller
		issue      model.BookIssue
		issueErr   error
		returnDate model.Date
		mutates    bool
		wantErr    error
		wantReason lending.Reason
	}{
		{name: "owner returns", caller: active(3), issue: open, returnDate: model.MustDate("2024-01-15"), mutates: true},
		{name: "admin returns for owner", caller: model.Caller{UserID: 1, IsActive: true, IsAdmin: true}, issue: open, returnDate: model.MustDate("2024-01-15"), mutates: true},
		{name: "missing issue", caller: active(3), issueErr: model.ErrIssueNotFound, returnDate: model.MustDate("2024-01-15"), wantErr: model.ErrIssueNotFound},
		{name: "someone else's issue", caller: active(4), issue: open, returnDate: model.MustDate("2024-01-15"), wantErr: model.ErrForbidden},
		{name: "already returned", caller: active(3), issue: closed, returnDate: model.MustDate("2024-01-15"), wantErr: lending.ErrPolicyViolation, wantReason: lending.ReasonAlreadyReturned},
		{name: "returned before issued", caller: active(3), issue: open, returnDate: model.MustDate("2023-12-31"), wantErr: model.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, m, s := initLendingTest(t)
			m.transactor.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(runTx)
			m.store.EXPECT().GetIssueForUpdate(gomock.Any(), uint64(42)).Return(tt.issue, tt.issueErr)
			if tt.mutates {
				gomock.InOrder(
					m.store.EXPECT().GetBookForUpdate(gomock.Any(), uint64(7)).Return(model.Book{ID: 7, TotalCopies: 2, AvailableCopies: 1}, nil),
					m.store.EXPECT().CloseIssue(gomock.Any(), uint64(42), tt.returnDate).Return(nil),
					m.store.EXPECT().UpdateBookCopies(gomock.Any(), uint64(7), 2).Return(nil),
					m.outbox.EXPECT().SendMessage(gomock.Any(), "book.returned:42", "book.returned", gomock.Any()).Return(nil),
				)
			}

			got, err := s.ReturnBook(ctx, tt.caller, 42, tt.returnDate)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.wantReason != "" {
					reason, _ := lending.ReasonOf(err)
					assert.Equal(t, tt.wantReason, reason)
				}
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got.ReturnDate)
			assert.True(t, got.ReturnDate.Equal(tt.returnDate))
		})
	}
}

func TestReturnBook_InactiveCallerNeverOpensTx(t *testing.T) {
	t.Parallel()

	ctx, _, s := initLendingTest(t)
	_, err := s.ReturnBook(ctx, model.Caller{UserID: 3}, 42, model.MustDate("2024-01-15"))
	require.ErrorIs(t, err, model.ErrInactiveUser)
}

func TestListActiveIssues(t *testing.T) {
	t.Parallel()

	ctx, m, s := initLendingTest(t)
	want := []model.BookIssue{{ID: 1, UserID: 3}, {ID: 2, UserID: 3}}
	m.store.EXPECT().ListOpenIssues(gomock.Any(), uint64(3)).Return(want, nil)
	m.store.EXPECT().ListOpenIssues(gomock.Any(), uint64(4)).Return(nil, errInternal)

	got, err := s.ListActiveIssues(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.ListActiveIssues(ctx, 4)
	require.ErrorIs(t, err, errInternal)
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()

	t.Run("creates missing admin", func(t *testing.T) {
		t.Parallel()

		users := mocks.NewMockUserStore(gomock.NewController(t))
		users.EXPECT().GetByUsername(gomock.Any(), "root").Return(model.User{}, model.ErrUserNotFound)
		users.EXPECT().Create(gomock.Any(), "root", "secret", true, 4).Return(model.User{ID: 1, Username: "root", IsAdmin: true, IsActive: true}, nil)

		require.NoError(t, EnsureAdmin(context.Background(), nil, users, "root", "secret", 4))
	})

	t.Run("restores flags", func(t *testing.T) {
		t.Parallel()

		users := mocks.NewMockUserStore(gomock.NewController(t))
		users.EXPECT().GetByUsername(gomock.Any(), "root").Return(model.User{ID: 1, Username: "root"}, nil)
		users.EXPECT().SetFlags(gomock.Any(), uint64(1), true, true).Return(nil)

		require.NoError(t, EnsureAdmin(context.Background(), nil, users, "root", "secret", 4))
	})

	t.Run("already admin", func(t *testing.T) {
		t.Parallel()

		users := mocks.NewMockUserStore(gomock.NewController(t))
		users.EXPECT().GetByUsername(gomock.Any(), "root").Return(model.User{ID: 1, IsAdmin: true, IsActive: true}, nil)

		require.NoError(t, EnsureAdmin(context.Background(), nil, users, "root", "secret", 4))
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		users := mocks.NewMockUserStore(gomock.NewController(t))
		require.NoError(t, EnsureAdmin(context.Background(), nil, users, "", "", 4))
	})

	t.Run("storage failure", func(t *testing.T) {
		t.Parallel()

		users := mocks.NewMockUserStore(gomock.NewController(t))
		users.EXPECT().GetByUsername(gomock.Any(), "root").Return(model.User{}, errInternal)

		require.ErrorIs(t, EnsureAdmin(context.Background(), nil, users, "root", "secret", 4), errInternal)
	})
}
