package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/D191001/libra/internal/handler/mocks"
	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"policy denial", lending.Deny(lending.ReasonNoAvailableCopies).Err(), http.StatusBadRequest, "NoAvailableCopies", ""},
		{"wrapped not found", fmt.Errorf("get: %w", model.ErrIssueNotFound), http.StatusNotFound, "IssueNotFound", ""},
		{"reference", asBadReference(model.ErrAuthorNotFound), http.StatusBadRequest, "AuthorNotFound", ""},
		{"plain author lookup", model.ErrAuthorNotFound, http.StatusNotFound, "AuthorNotFound", ""},
		{"inactive", model.ErrInactiveUser, http.StatusForbidden, "InactiveUser", ""},
		{"lock timeout", model.ErrLockWaitTimeout, http.StatusServiceUnavailable, "StorageBusy", "Service Unavailable"},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, "StorageBusy", "Service Unavailable"},
		{"storage", fmt.Errorf("%w: Error 1146: table missing", model.ErrStorage), http.StatusInternalServerError, "StorageFailure", "internal error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "StorageFailure", "internal error"},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, "NotFound", "Not Found"},
		{"echo method", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, "MethodNotAllowed", "Method Not Allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, code, msg := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, msg)
			}
		})
	}
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.New(core))
	e.GET("/boom", func(c echo.Context) error { return errors.New("dial tcp 10.0.0.1:3306: refused") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assertError(t, rec, http.StatusNotFound, "NotFound")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assertError(t, rec, http.StatusInternalServerError, "StorageFailure")
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request failed", logs.All()[0].Message)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := call{method: http.MethodGet, target: "/healthz", handler: Health}.do(t)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	t.Parallel()

	db := mocks.NewMockPinger(gomock.NewController(t))
	db.EXPECT().PingContext(gomock.Any()).Return(nil)
	db.EXPECT().PingContext(gomock.Any()).Return(errors.New("connection refused"))

	rec := call{method: http.MethodGet, target: "/readyz", handler: Ready(db, time.Second)}.do(t)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call{method: http.MethodGet, target: "/readyz", handler: Ready(db, time.Second)}.do(t)
	assertError(t, rec, http.StatusServiceUnavailable, "NotReady")
	assert.NotContains(t, rec.Body.String(), "refused")
}
