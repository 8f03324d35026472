package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/D191001/libra/internal/model"
)

func TestBookRepo_Create(t *testing.T) {
	t.Parallel()

	t.Run("available copies start at total", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
			WithArgs("Dune", "", nil, 3, 3, 1).
			WillReturnResult(sqlmock.NewResult(7, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO book_genres")).
			WithArgs(7, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO book_genres")).
			WithArgs(7, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewBookRepo(db, NewTransactor(nil, db))
		book, err := repo.Create(context.Background(), model.Book{
			Title:       "Dune",
			TotalCopies: 3,
			AuthorID:    1,
			GenreIDs:    []uint64{2, 5, 2},
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(7), book.ID)
		assert.Equal(t, 3, book.AvailableCopies)
		assert.Equal(t, []uint64{2, 5}, book.GenreIDs)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown author", func(t *testing.T) {
		t.Parallel()

		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO books")).
			WillReturnError(&mysql.MySQLError{Number: 1452})
		mock.ExpectRollback()

		repo := NewBookRepo(db, NewTransactor(nil, db))
		_, err := repo.Create(context.Background(), model.Book{Title: "Dune", TotalCopies: 1, AuthorID: 9})
		require.ErrorIs(t, err, model.ErrAuthorNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookRepo_Delete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		prepare func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "never lent",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM books WHERE id = ? FOR UPDATE")).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM book_issues WHERE book_id = ?")).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM books WHERE id = ?")).
					WithArgs(7).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "has lending history",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM books WHERE id = ? FOR UPDATE")).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM book_issues WHERE book_id = ?")).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
				mock.ExpectRollback()
			},
			wantErr: model.ErrBookHasIssues,
		},
		{
			name: "missing",
			prepare: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM books WHERE id = ? FOR UPDATE")).
					WithArgs(7).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
				mock.ExpectRollback()
			},
			wantErr: model.ErrBookNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			mock.ExpectBegin()
			tt.prepare(mock)

			err := NewBookRepo(db, NewTransactor(nil, db)).Delete(context.Background(), 7)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAuthorRepo_Delete(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authors WHERE id = ?")).
		WithArgs(1).
		WillReturnError(&mysql.MySQLError{Number: 1451})
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM authors WHERE id = ?")).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAuthorRepo(db)
	require.ErrorIs(t, repo.Delete(context.Background(), 1), model.ErrAuthorHasBooks)
	require.ErrorIs(t, repo.Delete(context.Background(), 2), model.ErrAuthorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenreRepo_Create_Duplicate(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO genres (name) VALUES (?)")).
		WithArgs("Sci-Fi").
		WillReturnError(&mysql.MySQLError{Number: 1062})

	_, err := NewGenreRepo(db).Create(context.Background(), "Sci-Fi")
	require.ErrorIs(t, err, model.ErrGenreExists)
	require.NoError(t, mock.ExpectationsWereMet())
}
