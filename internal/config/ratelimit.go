package config

import (
	"time"

	"github.com/spf13/viper"
)

type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

func loadRateLimitConfig(v *viper.Viper) RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool(v, "RATE_LIMIT_ENABLED", true),
		Capacity:       envInt(v, "RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt(v, "RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur(v, "RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur(v, "RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr(v, "RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr(v, "RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool(v, "RATE_LIMIT_DEBUG", false),
	}
	if b := envInt(v, "RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
