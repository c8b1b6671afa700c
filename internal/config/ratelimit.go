package config

import "time"

// RateLimitConfig parameterises the Redis token bucket.  A bucket holds
// Capacity tokens and regains RefillTokens every RefillInterval; idle
// buckets expire after TTL.  KeyStrategy selects which of ip, user and
// route identify a bucket.
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

// LoadRateLimitConfig reads RATE_LIMIT_*.  The defaults allow ten requests
// per minute per client and route, the allowance of the auth endpoints.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if burst := envInt("RATE_LIMIT_BURST", 0); burst > 0 {
		cfg.Capacity = burst
	}
	if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
		cfg.RefillTokens, cfg.RefillInterval = 1, every
	}
	return cfg.normalized()
}

// Scaled returns a copy whose bucket is n times larger and refills n times
// faster.  The authenticated routes use Scaled(3): thirty requests per
// minute with the defaults.
func (c RateLimitConfig) Scaled(n int) RateLimitConfig {
	if n > 1 {
		c.Capacity *= n
		c.RefillTokens *= n
	}
	return c.normalized()
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	c.Capacity = max(c.Capacity, 1)
	c.RefillTokens = max(c.RefillTokens, 1)
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	// a bucket must outlive a few refills or it would reset to full
	c.TTL = max(c.TTL, 5*c.RefillInterval)
	return c
}
