package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireActive rejects callers whose account is deactivated.
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "authentication required")
			}
			if !caller.IsActive {
				return deny(c, http.StatusForbidden, "InactiveUser", "user is inactive")
			}
			return next(c)
		}
	}
}

// RequireAdmin rejects callers that are not active admins.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, ok := CallerFrom(c)
			if !ok {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "authentication required")
			}
			if !caller.IsActive {
				return deny(c, http.StatusForbidden, "InactiveUser", "user is inactive")
			}
			if !caller.IsAdmin {
				return deny(c, http.StatusForbidden, "Forbidden", "admin only")
			}
			return next(c)
		}
	}
}
