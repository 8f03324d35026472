package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/config"
	"github.com/D191001/libra/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// captureWriter tees the response body, up to limit bytes, while writing it
// to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		cw.buf.Write(b[:min(int64(len(b)), remain)])
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// Cache serves GET responses of one scope from Redis.  Every successful
// write in the scope bumps a generation counter, so older entries are
// never read again and expire on their own.
type Cache struct {
	cfg    config.CacheConfig
	rdb    *redis.Client
	logger *zap.Logger
}

func NewCache(cfg config.CacheConfig, rdb *redis.Client, l *zap.Logger) *Cache {
	return &Cache{cfg: cfg, rdb: rdb, logger: l}
}

// Scope returns the middleware for one group of resources, e.g. "authors".
func (ch *Cache) Scope(scope string) echo.MiddlewareFunc {
	if ch == nil || !ch.cfg.Enabled || ch.rdb == nil {
		return passThrough
	}
	ttl := ch.cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	maxBody := int64(ch.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := strings.ToUpper(c.Request().Method)
			if !ch.cfg.Methods[method] {
				return ch.invalidating(c, next, scope)
			}

			ctx := c.Request().Context()
			gen, err := ch.rdb.Get(ctx, ch.genKey(scope)).Int64()
			if err != nil && err != redis.Nil {
				return next(c)
			}
			key := ch.key(scope, gen, c)

			if bs, err := ch.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						// The request id belongs to this request, not the cached one.
						if strings.EqualFold(k, echo.HeaderContentLength) || strings.EqualFold(k, echo.HeaderXRequestID) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, _ = c.Response().Write(body)
					return nil
				}
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			payload, err := encodePayload(cw.status, c.Response().Header().Clone(), cw.buf.Bytes())
			if err != nil {
				return nil
			}
			// The request context may already be cancelled once the body is out.
			if err := ch.rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
				logger.MakeWarn(ch.logger, "cache store failed", zap.String("scope", scope), zap.Error(err))
			}
			return nil
		}
	}
}

func (ch *Cache) invalidating(c echo.Context, next echo.HandlerFunc, scope string) error {
	err := next(c)
	if err == nil && c.Response().Status < http.StatusBadRequest {
		ctx := context.WithoutCancel(c.Request().Context())
		if err := ch.rdb.Incr(ctx, ch.genKey(scope)).Err(); err != nil {
			logger.MakeWarn(ch.logger, "cache invalidation failed", zap.String("scope", scope), zap.Error(err))
		}
	}
	return err
}

func (ch *Cache) genKey(scope string) string {
	return fmt.Sprintf("%s:%s:gen", ch.cfg.Prefix, scope)
}

// key hashes the request line selected by the key strategy.  The raw path
// is used, not the route pattern, so /authors/1 and /authors/2 differ.
func (ch *Cache) key(scope string, gen int64, c echo.Context) string {
	r := c.Request()
	var tail string
	switch strings.ToLower(ch.cfg.KeyStrategy) {
	case "path":
		tail = r.URL.Path
	case "method_path_query":
		tail = r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery
	default:
		tail = r.URL.Path + "?" + r.URL.RawQuery
	}
	sum := sha1.Sum([]byte(tail))
	return fmt.Sprintf("%s:%s:%d:%x", ch.cfg.Prefix, scope, gen, sum[:])
}

// encodePayload packs [4 bytes status][4 bytes header length][header JSON][body].
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	copy(out[8:], hdr)
	copy(out[8+len(hdr):], body)
	return out, nil
}

func decodePayload(bs []byte) (int, http.Header, []byte, bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status := int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}
