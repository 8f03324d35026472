package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/D191001/libra/internal/middleware"
	"github.com/D191001/libra/internal/model"
)

// bind decodes the request into dst and validates it.  Both failures are
// reported as model.ErrInvalidInput.
func bind(c echo.Context, dst validation.Validatable) error {
	if err := c.Bind(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", model.ErrInvalidInput)
	}
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, err.Error())
	}
	return nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", model.ErrInvalidInput, name)
	}
	return id, nil
}

func callerOf(c echo.Context) (model.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return model.Caller{}, model.ErrUnauthorized
	}
	return caller, nil
}

const defaultTimeout = 5 * time.Second

// requestCtx bounds the storage calls of one request.
func requestCtx(c echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

func invalidQuery(name string) error {
	return fmt.Errorf("%w: bad %s query parameter", model.ErrInvalidInput, name)
}
