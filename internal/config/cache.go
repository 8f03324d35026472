package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CacheConfig defines settings for the response cache middleware.
// Methods lists the HTTP methods to cache.  KeyStrategy determines which
// parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

func loadCacheConfig(v *viper.Viper) CacheConfig {
	return CacheConfig{
		Enabled:      envBool(v, "CACHE_ENABLED", true),
		Methods:      parseMethods(envStr(v, "CACHE_METHODS", "GET")),
		TTL:          envDur(v, "CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr(v, "CACHE_KEY_STRATEGY", "path_query"),
		Prefix:       envStr(v, "CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt(v, "CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
