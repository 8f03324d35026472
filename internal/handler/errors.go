package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/lending"
	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/model"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorClass struct {
	target error
	status int
	code   string
}

// errorClasses maps sentinels to a status and a stable code.  Order
// matters: the first match wins.
var errorClasses = []errorClass{
	{model.ErrInvalidInput, http.StatusBadRequest, "InvalidInput"},
	{model.ErrBookNotFound, http.StatusNotFound, "BookNotFound"},
	{model.ErrIssueNotFound, http.StatusNotFound, "IssueNotFound"},
	{model.ErrUserNotFound, http.StatusNotFound, "UserNotFound"},
	{model.ErrAuthorNotFound, http.StatusNotFound, "AuthorNotFound"},
	{model.ErrGenreNotFound, http.StatusNotFound, "GenreNotFound"},
	{model.ErrInvalidCredentials, http.StatusUnauthorized, "InvalidCredentials"},
	{model.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{model.ErrInactiveUser, http.StatusForbidden, "InactiveUser"},
	{model.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{model.ErrUsernameTaken, http.StatusConflict, "UsernameTaken"},
	{model.ErrGenreExists, http.StatusConflict, "GenreExists"},
	{model.ErrAuthorHasBooks, http.StatusConflict, "AuthorHasBooks"},
	{model.ErrBookHasIssues, http.StatusConflict, "BookHasIssues"},
	{model.ErrGenreInUse, http.StatusConflict, "GenreInUse"},
	{model.ErrLockWaitTimeout, http.StatusServiceUnavailable, "StorageBusy"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "StorageBusy"},
	{context.Canceled, http.StatusServiceUnavailable, "RequestCancelled"},
}

// badReference marks a not-found of a referenced entity inside a valid
// request, e.g. an unknown author_id on book creation.  It renders as 400.
type badReference struct{ err error }

func (b badReference) Error() string { return b.err.Error() }
func (b badReference) Unwrap() error { return b.err }

func asBadReference(err error) error {
	if errors.Is(err, model.ErrAuthorNotFound) || errors.Is(err, model.ErrGenreNotFound) {
		return badReference{err: err}
	}
	return err
}

// classify returns the status, stable code and client message for err.
// Messages of server-side failures are never passed to clients.
func classify(err error) (int, string, string) {
	if reason, ok := lending.ReasonOf(err); ok {
		return http.StatusBadRequest, string(reason), err.Error()
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, httpCode(he.Code), messageOf(he)
	}
	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			status := ec.status
			var br badReference
			if errors.As(err, &br) {
				status = http.StatusBadRequest
			}
			if status >= http.StatusInternalServerError {
				return status, ec.code, http.StatusText(status)
			}
			return status, ec.code, err.Error()
		}
	}
	return http.StatusInternalServerError, "StorageFailure", "internal error"
}

func httpCode(status int) string {
	return strings.ReplaceAll(http.StatusText(status), " ", "")
}

func messageOf(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return http.StatusText(he.Code)
}

// fail renders err.  Unexpected failures are logged with the request id.
func fail(c echo.Context, l *zap.Logger, err error) error {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		logger.CheckError(err, l, "request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("route", c.Path()),
			zap.String("code", code),
			zap.Error(err))
	}
	return c.JSON(status, ErrorBody{Error: code, Message: msg})
}

// ErrorHandler renders errors that escape handlers, such as unknown routes
// and recovered panics, in the same shape.
func ErrorHandler(l *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			status, _, _ := classify(err)
			_ = c.NoContent(status)
			return
		}
		_ = fail(c, l, err)
	}
}
