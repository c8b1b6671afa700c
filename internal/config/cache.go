package config

import "time"

// PrincipalCacheConfig defines settings for the read-through cache of
// authenticated users.  When Enabled is false or no Redis client is
// configured, every request reads the user straight from the database.
// TTL defines the lifetime of a cached snapshot and Prefix namespaces the
// keys, which take the form "<prefix>:<email>".
type PrincipalCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadPrincipalCacheConfig reads environment variables to build a
// PrincipalCacheConfig.  Defaults are used when variables are not set.
func LoadPrincipalCacheConfig() PrincipalCacheConfig {
	cfg := PrincipalCacheConfig{
		Enabled: envBool("PRINCIPAL_CACHE_ENABLED", true),
		TTL:     envDur("PRINCIPAL_CACHE_TTL", 900*time.Second),
		Prefix:  envStr("PRINCIPAL_CACHE_PREFIX", "user"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 900 * time.Second
	}
	return cfg
}
