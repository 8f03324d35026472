// Package middleware holds the echo middleware of the HTTP API: identity,
// authorization, rate limiting, response caching and access logging.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/D191001/libra/internal/utils"
)

const (
	claimsKey = "auth.claims"
	callerKey = "auth.caller"
)

// JWTAuth validates a Bearer access token and stores its claims in the
// echo context for ResolveCaller.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return deny(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func claimsFrom(c echo.Context) (utils.Claims, bool) {
	claims, ok := c.Get(claimsKey).(utils.Claims)
	return claims, ok
}

func deny(c echo.Context, status int, code, msg string) error {
	return c.JSON(status, echo.Map{"error": code, "message": msg})
}
