package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/handler/mocks"
	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/model"
)

type catalogMocks struct {
	authors *mocks.MockAuthorStore
	books   *mocks.MockBookStore
	genres  *mocks.MockGenreStore
	lender  *mocks.MockLender
}

func newCatalogHandler(t *testing.T) (*CatalogHandler, catalogMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := catalogMocks{
		authors: mocks.NewMockAuthorStore(ctrl),
		books:   mocks.NewMockBookStore(ctrl),
		genres:  mocks.NewMockGenreStore(ctrl),
		lender:  mocks.NewMockLender(ctrl),
	}
	return NewCatalogHandler(m.authors, m.books, m.genres, m.lender, 0, zap.NewNop()), m
}

func TestCatalogHandler_CreateBook(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		want       *model.Book
		storeErr   error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "total copies",
			body:       `{"title":" Dune ","author_id":1,"genre_ids":[2],"total_copies":3}`,
			want:       &model.Book{Title: "Dune", AuthorID: 1, GenreIDs: []uint64{2}, TotalCopies: 3},
			wantStatus: http.StatusOK,
		},
		{
			name:       "available copies as initial stock",
			body:       `{"title":"Dune","author_id":1,"available_copies":2}`,
			want:       &model.Book{Title: "Dune", AuthorID: 1, TotalCopies: 2},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown author",
			body:       `{"title":"Dune","author_id":9,"total_copies":1}`,
			want:       &model.Book{Title: "Dune", AuthorID: 9, TotalCopies: 1},
			storeErr:   fmt.Errorf("create book: %w", model.ErrAuthorNotFound),
			wantStatus: http.StatusBadRequest,
			wantCode:   "AuthorNotFound",
		},
		{
			name:       "unknown genre",
			body:       `{"title":"Dune","author_id":1,"genre_ids":[99]}`,
			want:       &model.Book{Title: "Dune", AuthorID: 1, GenreIDs: []uint64{99}},
			storeErr:   model.ErrGenreNotFound,
			wantStatus: http.StatusBadRequest,
			wantCode:   "GenreNotFound",
		},
		{
			name:       "negative copies",
			body:       `{"title":"Dune","author_id":1,"total_copies":-1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "InvalidInput",
		},
		{
			name:       "missing title",
			body:       `{"author_id":1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "InvalidInput",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, m := newCatalogHandler(t)
			if tt.want != nil {
				created := *tt.want
				created.ID = 7
				created.AvailableCopies = created.TotalCopies
				m.books.EXPECT().Create(gomock.Any(), *tt.want).Return(created, tt.storeErr)
			}

			rec := call{method: http.MethodPost, target: "/books/", body: tt.body, caller: admin(1), handler: h.CreateBook}.do(t)
			if tt.wantCode != "" {
				assertError(t, rec, tt.wantStatus, tt.wantCode)
				return
			}
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"id":7`)
			assert.Contains(t, rec.Body.String(), fmt.Sprintf(`"available_copies":%d`, tt.want.TotalCopies))
		})
	}
}

func TestCatalogHandler_UpdateBook(t *testing.T) {
	t.Parallel()

	t.Run("copies are read only", func(t *testing.T) {
		t.Parallel()

		h, _ := newCatalogHandler(t)
		rec := call{method: http.MethodPut, target: "/books/7", body: `{"title":"Dune","author_id":1,"available_copies":10}`,
			params: map[string]string{"id": "7"}, caller: admin(1), handler: h.UpdateBook}.do(t)
		assertError(t, rec, http.StatusBadRequest, "InvalidInput")
	})

	t.Run("missing book stays 404", func(t *testing.T) {
		t.Parallel()

		h, m := newCatalogHandler(t)
		m.books.EXPECT().Update(gomock.Any(), model.Book{ID: 7, Title: "Dune", AuthorID: 1}).Return(model.Book{}, model.ErrBookNotFound)

		rec := call{method: http.MethodPut, target: "/books/7", body: `{"title":"Dune","author_id":1}`,
			params: map[string]string{"id": "7"}, caller: admin(1), handler: h.UpdateBook}.do(t)
		assertError(t, rec, http.StatusNotFound, "BookNotFound")
	})
}

func TestCatalogHandler_GetAndDelete(t *testing.T) {
	t.Parallel()

	h, m := newCatalogHandler(t)
	m.books.EXPECT().GetByID(gomock.Any(), uint64(7)).Return(model.Book{}, model.ErrBookNotFound)
	m.books.EXPECT().Delete(gomock.Any(), uint64(8)).Return(model.ErrBookHasIssues)
	m.authors.EXPECT().Delete(gomock.Any(), uint64(1)).Return(model.ErrAuthorHasBooks)
	m.authors.EXPECT().Delete(gomock.Any(), uint64(2)).Return(nil)
	m.genres.EXPECT().Delete(gomock.Any(), uint64(3)).Return(model.ErrGenreInUse)

	rec := call{method: http.MethodGet, params: map[string]string{"id": "7"}, target: "/books/7", handler: h.GetBook}.do(t)
	assertError(t, rec, http.StatusNotFound, "BookNotFound")

	rec = call{method: http.MethodDelete, params: map[string]string{"id": "8"}, target: "/books/8", handler: h.DeleteBook}.do(t)
	assertError(t, rec, http.StatusConflict, "BookHasIssues")

	rec = call{method: http.MethodDelete, params: map[string]string{"id": "1"}, target: "/authors/1", handler: h.DeleteAuthor}.do(t)
	assertError(t, rec, http.StatusConflict, "AuthorHasBooks")

	rec = call{method: http.MethodDelete, params: map[string]string{"id": "2"}, target: "/authors/2", handler: h.DeleteAuthor}.do(t)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"deleted":true}`, rec.Body.String())

	rec = call{method: http.MethodDelete, params: map[string]string{"id": "3"}, target: "/genres/3", handler: h.DeleteGenre}.do(t)
	assertError(t, rec, http.StatusConflict, "GenreInUse")
}

func TestCatalogHandler_Authors(t *testing.T) {
	t.Parallel()

	h, m := newCatalogHandler(t)
	born := model.MustDate("1920-10-08")
	m.authors.EXPECT().Create(gomock.Any(), model.Author{Name: "Frank Herbert", BirthDate: &born}).
		Return(model.Author{ID: 1, Name: "Frank Herbert", BirthDate: &born}, nil)
	m.authors.EXPECT().GetByID(gomock.Any(), uint64(5)).Return(model.Author{}, model.ErrAuthorNotFound)

	rec := call{method: http.MethodPost, target: "/authors/", body: `{"name":"Frank Herbert","birth_date":"1920-10-08"}`,
		handler: h.CreateAuthor}.do(t)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"birth_date":"1920-10-08"`)

	rec = call{method: http.MethodGet, target: "/authors/5", params: map[string]string{"id": "5"}, handler: h.GetAuthor}.do(t)
	assertError(t, rec, http.StatusNotFound, "AuthorNotFound")

	rec = call{method: http.MethodPost, target: "/authors/", body: `{"name":"   "}`, handler: h.CreateAuthor}.do(t)
	assertError(t, rec, http.StatusBadRequest, "InvalidInput")
}

func TestCatalogHandler_CreateGenre_Duplicate(t *testing.T) {
	t.Parallel()

	h, m := newCatalogHandler(t)
	m.genres.EXPECT().Create(gomock.Any(), "Sci-Fi").Return(model.Genre{}, model.ErrGenreExists)

	rec := call{method: http.MethodPost, target: "/genres/", body: `{"name":"Sci-Fi"}`, handler: h.CreateGenre}.do(t)
	assertError(t, rec, http.StatusConflict, "GenreExists")
}

func TestCatalogHandler_AdjustStock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		delta      int
		lenderErr  error
		wantStatus int
		wantCode   string
	}{
		{name: "add copies", delta: 2, wantStatus: http.StatusOK},
		{
			name:       "withdraw copies on loan",
			delta:      -3,
			lenderErr:  lending.Deny(lending.ReasonCopiesOnLoan).Err(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "CopiesOnLoan",
		},
		{
			name:       "zero delta",
			delta:      0,
			lenderErr:  lending.Deny(lending.ReasonInvalidStockChange).Err(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "InvalidStockChange",
		},
		{
			name:       "not an admin",
			delta:      1,
			lenderErr:  model.ErrForbidden,
			wantStatus: http.StatusForbidden,
			wantCode:   "Forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, m := newCatalogHandler(t)
			m.lender.EXPECT().AdjustStock(gomock.Any(), *admin(1), uint64(7), tt.delta).
				Return(model.Book{ID: 7, TotalCopies: 5, AvailableCopies: 4}, tt.lenderErr)

			rec := call{method: http.MethodPost, target: "/books/7/stock", body: fmt.Sprintf(`{"delta":%d}`, tt.delta),
				params: map[string]string{"id": "7"}, caller: admin(1), handler: h.AdjustStock}.do(t)
			if tt.wantCode != "" {
				assertError(t, rec, tt.wantStatus, tt.wantCode)
				return
			}
			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), `"available_copies":4`)
		})
	}
}
