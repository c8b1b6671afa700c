// Package cache stores short-lived user snapshots in Redis so that each
// authenticated request does not have to hit MySQL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/model"
)

// DefaultTTL bounds how long a snapshot may outlive a change in the store.
const DefaultTTL = 900 * time.Second

// PrincipalCache keeps one JSON snapshot per user under "<prefix>:<email>".
type PrincipalCache struct {
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
	metrics *metrics.Metrics
}

// NewPrincipalCache wraps rdb.  A non-positive ttl means DefaultTTL and an
// empty prefix means "user".  m may be nil.
func NewPrincipalCache(rdb *redis.Client, ttl time.Duration, prefix string, m *metrics.Metrics) *PrincipalCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "user"
	}
	return &PrincipalCache{rdb: rdb, ttl: ttl, prefix: prefix, metrics: m}
}

func (c *PrincipalCache) key(email string) string {
	return c.prefix + ":" + email
}

// Get returns the snapshot for email, or nil on a miss.  A snapshot that no
// longer decodes is treated as a miss and removed.
func (c *PrincipalCache) Get(ctx context.Context, email string) (*model.User, error) {
	raw, err := c.rdb.Get(ctx, c.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.CacheLookup(metrics.CacheMiss)
		return nil, nil
	}
	if err != nil {
		c.metrics.CacheLookup(metrics.CacheError)
		return nil, fmt.Errorf("cache get %s: %w", email, err)
	}

	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		c.metrics.CacheLookup(metrics.CacheMiss)
		_ = c.rdb.Del(ctx, c.key(email)).Err()
		return nil, nil
	}
	c.metrics.CacheLookup(metrics.CacheHit)
	return &u, nil
}

// Set stores a snapshot of u for the configured TTL.
func (c *PrincipalCache) Set(ctx context.Context, u *model.User) error {
	if u == nil || u.Email == "" {
		return errors.New("cache set: user without email")
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", u.Email, err)
	}
	if err := c.rdb.Set(ctx, c.key(u.Email), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", u.Email, err)
	}
	return nil
}

// Delete removes the snapshot for email.  Deleting an absent key is not an
// error.
func (c *PrincipalCache) Delete(ctx context.Context, email string) error {
	if err := c.rdb.Del(ctx, c.key(email)).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", email, err)
	}
	return nil
}
