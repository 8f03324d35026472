package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLog writes one line per request.  Server errors are logged at
// error level, client errors at warn.
func RequestLog(l *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			level := zapcore.InfoLevel
			switch {
			case res.Status >= 500:
				level = zapcore.ErrorLevel
			case res.Status >= 400:
				level = zapcore.WarnLevel
			}
			if ce := l.Check(level, "http request"); ce != nil {
				fields := []zap.Field{
					zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
					zap.String("method", c.Request().Method),
					zap.String("path", c.Request().URL.Path),
					zap.String("route", c.Path()),
					zap.Int("status", res.Status),
					zap.Int64("bytes", res.Size),
					zap.Duration("latency", time.Since(start)),
					zap.String("remote_ip", c.RealIP()),
				}
				if caller, ok := CallerFrom(c); ok {
					fields = append(fields, zap.Uint64("caller_id", caller.UserID))
				}
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				ce.Write(fields...)
			}
			return nil
		}
	}
}
