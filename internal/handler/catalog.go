package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/model"
)

// CatalogHandler serves authors, books and genres.  Book copies are only
// changed through AdjustStock, which goes through the lending workflow.
type CatalogHandler struct {
	authors AuthorStore
	books   BookStore
	genres  GenreStore
	lender  Lender
	timeout time.Duration
	logger  *zap.Logger
}

func NewCatalogHandler(
	authors AuthorStore,
	books BookStore,
	genres GenreStore,
	lender Lender,
	timeout time.Duration,
	l *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{authors: authors, books: books, genres: genres, lender: lender, timeout: timeout, logger: l}
}

type authorReq struct {
	Name      string      `json:"name"`
	Biography string      `json:"biography"`
	BirthDate *model.Date `json:"birth_date"`
}

func (r *authorReq) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (r *authorReq) author(id uint64) model.Author {
	return model.Author{ID: id, Name: r.Name, Biography: r.Biography, BirthDate: nonZero(r.BirthDate)}
}

type bookReq struct {
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	PublicationDate *model.Date `json:"publication_date"`
	AuthorID        uint64      `json:"author_id"`
	GenreIDs        []uint64    `json:"genre_ids"`
	TotalCopies     *int        `json:"total_copies"`
	// AvailableCopies is accepted on creation as the initial stock.
	AvailableCopies *int `json:"available_copies"`
}

func (r *bookReq) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.AuthorID, validation.Required),
		validation.Field(&r.GenreIDs, validation.Each(validation.Required)),
		validation.Field(&r.TotalCopies, validation.Min(0)),
		validation.Field(&r.AvailableCopies, validation.Min(0)),
	)
}

func (r *bookReq) book(id uint64) model.Book {
	b := model.Book{
		ID:              id,
		Title:           r.Title,
		Description:     r.Description,
		PublicationDate: nonZero(r.PublicationDate),
		AuthorID:        r.AuthorID,
		GenreIDs:        r.GenreIDs,
	}
	switch {
	case r.TotalCopies != nil:
		b.TotalCopies = *r.TotalCopies
	case r.AvailableCopies != nil:
		b.TotalCopies = *r.AvailableCopies
	}
	return b
}

type genreReq struct {
	Name string `json:"name"`
}

func (r *genreReq) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

// stockReq carries a signed change of copies.  Zero is left to the lending
// policy, which denies it as InvalidStockChange.
type stockReq struct {
	Delta int `json:"delta"`
}

func (r *stockReq) Validate() error { return nil }

func nonZero(d *model.Date) *model.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func (h *CatalogHandler) CreateAuthor(c echo.Context) error {
	var req authorReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	a, err := h.authors.Create(ctx, req.author(0))
	if err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "author created", zap.Uint64("author_id", a.ID))
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) GetAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	a, err := h.authors.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) UpdateAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req authorReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	a, err := h.authors.Update(ctx, req.author(id))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) DeleteAuthor(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	if err := h.authors.Delete(ctx, id); err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "author deleted", zap.Uint64("author_id", id))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "deleted": true})
}

// CreateBook adds a book whose copies all start on the shelf.
func (h *CatalogHandler) CreateBook(c echo.Context) error {
	var req bookReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	b, err := h.books.Create(ctx, req.book(0))
	if err != nil {
		return fail(c, h.logger, asBadReference(err))
	}
	logger.MakeInfo(h.logger, "book created", zap.Uint64("book_id", b.ID), zap.Int("total_copies", b.TotalCopies))
	return c.JSON(http.StatusOK, b)
}

func (h *CatalogHandler) GetBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	b, err := h.books.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// UpdateBook replaces descriptive fields.  Copy counts in the body are
// rejected; stock changes go through AdjustStock.
func (h *CatalogHandler) UpdateBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req bookReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	// Copy counts belong to the lending workflow
	if req.TotalCopies != nil || req.AvailableCopies != nil {
		return fail(c, h.logger, errCopiesReadOnly)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	b, err := h.books.Update(ctx, req.book(id))
	if err != nil {
		return fail(c, h.logger, asBadReference(err))
	}
	return c.JSON(http.StatusOK, b)
}

func (h *CatalogHandler) DeleteBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	if err := h.books.Delete(ctx, id); err != nil {
		return fail(c, h.logger, err)
	}
	logger.MakeInfo(h.logger, "book deleted", zap.Uint64("book_id", id))
	return c.JSON(http.StatusOK, echo.Map{"id": id, "deleted": true})
}

// AdjustStock adds or withdraws copies of a book.
func (h *CatalogHandler) AdjustStock(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req stockReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	b, err := h.lender.AdjustStock(ctx, caller, id, req.Delta)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *CatalogHandler) CreateGenre(c echo.Context) error {
	var req genreReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	g, err := h.genres.Create(ctx, req.Name)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *CatalogHandler) GetGenre(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	g, err := h.genres.GetByID(ctx, id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *CatalogHandler) DeleteGenre(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	if err := h.genres.Delete(ctx, id); err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "deleted": true})
}

var errCopiesReadOnly = fmt.Errorf("%w: copies are changed through POST /books/:id/stock", model.ErrInvalidInput)
