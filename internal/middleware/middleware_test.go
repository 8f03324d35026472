package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/D191001/libra/internal/config"
	"github.com/D191001/libra/internal/model"
	"github.com/D191001/libra/internal/utils"
)

const secret = "test-secret"

type userLookupFunc func(ctx context.Context, id uint64) (model.User, error)

func (f userLookupFunc) GetByID(ctx context.Context, id uint64) (model.User, error) { return f(ctx, id) }

func users(list ...model.User) UserLookup {
	return userLookupFunc(func(_ context.Context, id uint64) (model.User, error) {
		for _, u := range list {
			if u.ID == id {
				return u, nil
			}
		}
		return model.User{}, model.ErrUserNotFound
	})
}

func bearer(t *testing.T, userID uint64) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, false, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newAuthServer(lookup UserLookup, extra ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	chain := append([]echo.MiddlewareFunc{JWTAuth(secret), ResolveCaller(lookup)}, extra...)
	e.GET("/me", func(c echo.Context) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, caller)
	}, chain...)
	return e
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthChain(t *testing.T) {
	t.Parallel()

	active := model.User{ID: 1, IsActive: true}
	inactive := model.User{ID: 2}
	admin := model.User{ID: 3, IsActive: true, IsAdmin: true}
	broken := userLookupFunc(func(context.Context, uint64) (model.User, error) {
		return model.User{}, errors.New("db down")
	})

	tests := []struct {
		name     string
		lookup   UserLookup
		extra    []echo.MiddlewareFunc
		auth     string
		wantCode int
		wantErr  string
	}{
		{name: "no header", lookup: users(active), wantCode: http.StatusUnauthorized, wantErr: "Unauthorized"},
		{name: "not bearer", lookup: users(active), auth: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: "Unauthorized"},
		{name: "bad token", lookup: users(active), auth: "Bearer nope", wantCode: http.StatusUnauthorized, wantErr: "Unauthorized"},
		{name: "deleted user", lookup: users(), auth: bearer(t, 1), wantCode: http.StatusUnauthorized, wantErr: "Unauthorized"},
		{name: "lookup failure", lookup: broken, auth: bearer(t, 1), wantCode: http.StatusInternalServerError, wantErr: "StorageFailure"},
		{name: "active user", lookup: users(active), auth: bearer(t, 1), wantCode: http.StatusOK},
		{name: "inactive user passes without guard", lookup: users(inactive), auth: bearer(t, 2), wantCode: http.StatusOK},
		{name: "inactive user blocked", lookup: users(inactive), extra: []echo.MiddlewareFunc{RequireActive()}, auth: bearer(t, 2), wantCode: http.StatusForbidden, wantErr: "InactiveUser"},
		{name: "non admin blocked", lookup: users(active), extra: []echo.MiddlewareFunc{RequireAdmin()}, auth: bearer(t, 1), wantCode: http.StatusForbidden, wantErr: "Forbidden"},
		{name: "admin allowed", lookup: users(admin), extra: []echo.MiddlewareFunc{RequireAdmin()}, auth: bearer(t, 3), wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(newAuthServer(tt.lookup, tt.extra...), http.MethodGet, "/me", tt.auth)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantErr != "" {
				assert.Contains(t, rec.Body.String(), `"error":"`+tt.wantErr+`"`)
			}
		})
	}
}

func TestResolveCaller_UsesCurrentFlags(t *testing.T) {
	t.Parallel()

	// The token says not admin, the row says admin: the row wins.
	rec := serve(newAuthServer(users(model.User{ID: 9, IsActive: true, IsAdmin: true}), RequireAdmin()),
		http.MethodGet, "/me", bearer(t, 9))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"IsAdmin":true`)
}

func TestNewTokenBucket_Disabled(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil, nil))

	rec := serve(e, http.MethodGet, "/x", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestNewTokenBucket_RedisDownLetsThrough(t *testing.T) {
	t.Parallel()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}, rdb, zap.NewNop()))

	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/x", "").Code)
}

func TestBuildRateKey(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/book_issues/", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/book_issues/")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "rl:ip:10.0.0.1:user:anon:route:POST /book_issues/", buildRateKey(cfg, c))

	SetCaller(c, model.Caller{UserID: 7})
	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:7", buildRateKey(cfg, c))
}

func TestCache_DisabledAndUnreachable(t *testing.T) {
	t.Parallel()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	for name, cache := range map[string]*Cache{
		"nil":         nil,
		"disabled":    NewCache(config.CacheConfig{Enabled: false}, rdb, nil),
		"unreachable": NewCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "c"}, rdb, zap.NewNop()),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			e := echo.New()
			h := func(c echo.Context) error {
				calls++
				return c.JSON(http.StatusOK, echo.Map{"n": calls})
			}
			e.GET("/authors/:id", h, cache.Scope("authors"))
			e.PUT("/authors/:id", h, cache.Scope("authors"))

			for range 2 {
				assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/authors/1", "").Code)
			}
			assert.Equal(t, http.StatusOK, serve(e, http.MethodPut, "/authors/1", "").Code)
			assert.Equal(t, 3, calls)
		})
	}
}

func TestCacheKey_UsesRawPath(t *testing.T) {
	t.Parallel()

	ch := NewCache(config.CacheConfig{Prefix: "cache"}, nil, nil)
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/authors/:id")
		return ch.key("authors", 0, c)
	}

	assert.NotEqual(t, key("/authors/1"), key("/authors/2"))
	assert.NotEqual(t, key("/authors/1?x=1"), key("/authors/1?x=2"))
	assert.Equal(t, key("/authors/1"), key("/authors/1"))

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/authors/1", nil), httptest.NewRecorder())
	assert.NotEqual(t, ch.key("authors", 0, c), ch.key("authors", 1, c))
}

func TestPayloadCodec(t *testing.T) {
	t.Parallel()

	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"id":1}`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `{"id":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestRequestLog(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLog(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError, "boom") })

	serve(e, http.MethodGet, "/ok", "")
	rec := serve(e, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["route"])
}
