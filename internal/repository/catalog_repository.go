package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/D191001/libra/internal/model"
)

// AuthorRepo manages the authors table.
type AuthorRepo struct{ db *sqlx.DB }

func NewAuthorRepo(db *sqlx.DB) *AuthorRepo { return &AuthorRepo{db: db} }

func (r *AuthorRepo) Create(ctx context.Context, a model.Author) (model.Author, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO authors (name, biography, birth_date) VALUES (?, ?, ?)",
		a.Name, a.Biography, a.BirthDate)
	if err != nil {
		return model.Author{}, storageErr("create author", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Author{}, storageErr("create author id", err)
	}
	a.ID = uint64(id)
	return a, nil
}

func (r *AuthorRepo) GetByID(ctx context.Context, id uint64) (model.Author, error) {
	var a model.Author
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &a,
		"SELECT id, name, biography, birth_date FROM authors WHERE id = ?", id)
	if err != nil {
		return model.Author{}, notFoundOr("get author", err, model.ErrAuthorNotFound)
	}
	return a, nil
}

func (r *AuthorRepo) Update(ctx context.Context, a model.Author) (model.Author, error) {
	if _, err := r.GetByID(ctx, a.ID); err != nil {
		return model.Author{}, err
	}
	_, err := conn(ctx, r.db).ExecContext(ctx,
		"UPDATE authors SET name = ?, biography = ?, birth_date = ? WHERE id = ?",
		a.Name, a.Biography, a.BirthDate, a.ID)
	if err != nil {
		return model.Author{}, storageErr("update author", err)
	}
	return a, nil
}

// Delete removes an author without books.
func (r *AuthorRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM authors WHERE id = ?", id)
	if err != nil {
		if mysqlCode(err) == mysqlRowIsReferenced {
			return model.ErrAuthorHasBooks
		}
		return storageErr("delete author", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrAuthorNotFound
	}
	return nil
}

// GenreRepo manages the genres table.
type GenreRepo struct{ db *sqlx.DB }

func NewGenreRepo(db *sqlx.DB) *GenreRepo { return &GenreRepo{db: db} }

func (r *GenreRepo) Create(ctx context.Context, name string) (model.Genre, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, "INSERT INTO genres (name) VALUES (?)", name)
	if err != nil {
		if mysqlCode(err) == mysqlDuplicateEntry {
			return model.Genre{}, model.ErrGenreExists
		}
		return model.Genre{}, storageErr("create genre", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Genre{}, storageErr("create genre id", err)
	}
	return model.Genre{ID: uint64(id), Name: name}, nil
}

func (r *GenreRepo) GetByID(ctx context.Context, id uint64) (model.Genre, error) {
	var g model.Genre
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &g, "SELECT id, name FROM genres WHERE id = ?", id)
	if err != nil {
		return model.Genre{}, notFoundOr("get genre", err, model.ErrGenreNotFound)
	}
	return g, nil
}

func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM genres WHERE id = ?", id)
	if err != nil {
		if mysqlCode(err) == mysqlRowIsReferenced {
			return model.ErrGenreInUse
		}
		return storageErr("delete genre", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrGenreNotFound
	}
	return nil
}

// BookRepo manages catalog data of books.  It never writes
// available_copies after creation; those changes go through LendingRepo
// under the lending workflow.
type BookRepo struct {
	db         *sqlx.DB
	transactor *Transactor
}

func NewBookRepo(db *sqlx.DB, transactor *Transactor) *BookRepo {
	return &BookRepo{db: db, transactor: transactor}
}

// Create inserts a book whose available copies equal its total copies.
func (r *BookRepo) Create(ctx context.Context, b model.Book) (model.Book, error) {
	b.GenreIDs = lo.Uniq(b.GenreIDs)
	b.AvailableCopies = b.TotalCopies
	err := r.transactor.WithTx(ctx, func(ctx context.Context) error {
		res, err := conn(ctx, r.db).ExecContext(ctx,
			"INSERT INTO books (title, description, publication_date, total_copies, available_copies, author_id) VALUES (?, ?, ?, ?, ?, ?)",
			b.Title, b.Description, b.PublicationDate, b.TotalCopies, b.AvailableCopies, b.AuthorID)
		if err != nil {
			if mysqlCode(err) == mysqlNoReferencedRow {
				return model.ErrAuthorNotFound
			}
			return storageErr("create book", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return storageErr("create book id", err)
		}
		b.ID = uint64(id)
		return r.insertGenres(ctx, b.ID, b.GenreIDs)
	})
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, conn(ctx, r.db), &b,
		"SELECT "+bookColumns+" FROM books WHERE id = ?", id)
	if err != nil {
		return model.Book{}, notFoundOr("get book", err, model.ErrBookNotFound)
	}
	b.GenreIDs = make([]uint64, 0)
	err = sqlx.SelectContext(ctx, conn(ctx, r.db), &b.GenreIDs,
		"SELECT genre_id FROM book_genres WHERE book_id = ? ORDER BY genre_id", id)
	if err != nil {
		return model.Book{}, storageErr("get book genres", err)
	}
	return b, nil
}

// Update replaces the descriptive fields and genres of a book.
func (r *BookRepo) Update(ctx context.Context, b model.Book) (model.Book, error) {
	b.GenreIDs = lo.Uniq(b.GenreIDs)
	err := r.transactor.WithTx(ctx, func(ctx context.Context) error {
		var current model.Book
		err := sqlx.GetContext(ctx, conn(ctx, r.db), &current,
			"SELECT "+bookColumns+" FROM books WHERE id = ? FOR UPDATE", b.ID)
		if err != nil {
			return notFoundOr("lock book", err, model.ErrBookNotFound)
		}
		_, err = conn(ctx, r.db).ExecContext(ctx,
			"UPDATE books SET title = ?, description = ?, publication_date = ?, author_id = ? WHERE id = ?",
			b.Title, b.Description, b.PublicationDate, b.AuthorID, b.ID)
		if err != nil {
			if mysqlCode(err) == mysqlNoReferencedRow {
				return model.ErrAuthorNotFound
			}
			return storageErr("update book", err)
		}
		if _, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM book_genres WHERE book_id = ?", b.ID); err != nil {
			return storageErr("clear book genres", err)
		}
		b.TotalCopies = current.TotalCopies
		b.AvailableCopies = current.AvailableCopies
		return r.insertGenres(ctx, b.ID, b.GenreIDs)
	})
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

// Delete removes a book that has never been lent.  Issues are never
// deleted, so a book with lending history stays.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	return r.transactor.WithTx(ctx, func(ctx context.Context) error {
		var bookID uint64
		err := sqlx.GetContext(ctx, conn(ctx, r.db), &bookID,
			"SELECT id FROM books WHERE id = ? FOR UPDATE", id)
		if err != nil {
			return notFoundOr("lock book", err, model.ErrBookNotFound)
		}
		var issues int
		err = sqlx.GetContext(ctx, conn(ctx, r.db), &issues,
			"SELECT COUNT(*) FROM book_issues WHERE book_id = ?", id)
		if err != nil {
			return storageErr("count book issues", err)
		}
		if issues > 0 {
			return model.ErrBookHasIssues
		}
		if _, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM books WHERE id = ?", id); err != nil {
			if mysqlCode(err) == mysqlRowIsReferenced {
				return model.ErrBookHasIssues
			}
			return storageErr("delete book", err)
		}
		return nil
	})
}

func (r *BookRepo) insertGenres(ctx context.Context, bookID uint64, genreIDs []uint64) error {
	for _, gid := range genreIDs {
		_, err := conn(ctx, r.db).ExecContext(ctx,
			"INSERT INTO book_genres (book_id, genre_id) VALUES (?, ?)", bookID, gid)
		if err != nil {
			if mysqlCode(err) == mysqlNoReferencedRow {
				return model.ErrGenreNotFound
			}
			return storageErr("insert book genre", err)
		}
	}
	return nil
}
