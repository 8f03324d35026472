package config

// Redis backs the distributed rate limiter and the catalog response cache.
// When the server cannot be reached at startup NewRedisClient returns nil
// and callers degrade by disabling both features.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// RedisConfig is read from REDIS_ADDR (or REDIS_HOST + REDIS_PORT),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

func loadRedisConfig(v *viper.Viper) RedisConfig {
	addr := envStr(v, "REDIS_ADDR", "localhost:6379")
	if host, port := v.GetString("REDIS_HOST"), v.GetString("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	return RedisConfig{
		Addr:     addr,
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       envInt(v, "REDIS_DB", 0),
		TLS:      envBool(v, "REDIS_TLS", false),
	}
}

// NewRedisClient instantiates a Redis client and pings it with a short
// timeout.  It returns nil if the server is unreachable.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
