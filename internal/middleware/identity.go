package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/D191001/libra/internal/model"
)

// UserLookup loads the current state of a user row.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// ResolveCaller turns verified token claims into a model.Caller using the
// users row, so deactivation and admin changes apply to live tokens.  It
// must run after JWTAuth.
func ResolveCaller(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := claimsFrom(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "authentication required")
			}
			id, err := claims.UserID()
			if err != nil {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			}
			u, err := users.GetByID(c.Request().Context(), id)
			switch {
			case errors.Is(err, model.ErrUserNotFound):
				return deny(c, http.StatusUnauthorized, "Unauthorized", "unknown user")
			case err != nil:
				return deny(c, http.StatusInternalServerError, "StorageFailure", "internal error")
			}
			c.Set(callerKey, model.CallerFor(u))
			return next(c)
		}
	}
}

// CallerFrom returns the caller stored by ResolveCaller.
func CallerFrom(c echo.Context) (model.Caller, bool) {
	caller, ok := c.Get(callerKey).(model.Caller)
	return caller, ok
}

// SetCaller stores caller in c.  Handler tests use it in place of the auth
// chain.
func SetCaller(c echo.Context, caller model.Caller) {
	c.Set(callerKey, caller)
}
