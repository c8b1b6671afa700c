package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contact-book/internal/metrics"
	"github.com/iliyamo/contact-book/internal/model"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestPrincipalCache_SetGet(t *testing.T) {
	mr, rdb := setup(t)
	c := NewPrincipalCache(rdb, 0, "", nil)
	ctx := context.Background()

	u := &model.User{ID: 7, Username: "ann", Email: "ann@example.com", Confirmed: true, AvatarURL: "https://a/x.png"}
	require.NoError(t, c.Set(ctx, u))

	assert.True(t, mr.Exists("user:ann@example.com"))
	assert.Equal(t, DefaultTTL, mr.TTL("user:ann@example.com"))

	got, err := c.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.Username, got.Username)
	assert.True(t, got.Confirmed)
}

func TestPrincipalCache_SnapshotOmitsHashes(t *testing.T) {
	mr, rdb := setup(t)
	c := NewPrincipalCache(rdb, 0, "", nil)
	ctx := context.Background()

	u := &model.User{ID: 7, Email: "ann@example.com", PasswordHash: "$2a$10$bcrypt", RefreshTokenHash: "deadbeef"}
	require.NoError(t, c.Set(ctx, u))

	raw, err := mr.Get("user:ann@example.com")
	require.NoError(t, err)
	assert.NotContains(t, raw, "bcrypt")
	assert.NotContains(t, raw, "deadbeef")
	assert.NotContains(t, raw, "password_hash")

	got, err := c.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.PasswordHash)
	assert.Empty(t, got.RefreshTokenHash)
	assert.Equal(t, "deadbeef", u.RefreshTokenHash)
}

func TestPrincipalCache_MissAndExpiry(t *testing.T) {
	mr, rdb := setup(t)
	c := NewPrincipalCache(rdb, time.Minute, "principal", nil)
	ctx := context.Background()

	got, err := c.Get(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, &model.User{Email: "ann@example.com"}))
	mr.FastForward(time.Minute + time.Second)

	got, err = c.Get(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrincipalCache_CorruptSnapshotIsMiss(t *testing.T) {
	mr, rdb := setup(t)
	c := NewPrincipalCache(rdb, 0, "user", nil)
	require.NoError(t, mr.Set("user:ann@example.com", "{not json"))

	got, err := c.Get(context.Background(), "ann@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, mr.Exists("user:ann@example.com"))
}

func TestPrincipalCache_Delete(t *testing.T) {
	mr, rdb := setup(t)
	c := NewPrincipalCache(rdb, 0, "user", nil)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &model.User{Email: "ann@example.com"}))
	require.NoError(t, c.Delete(ctx, "ann@example.com"))
	assert.False(t, mr.Exists("user:ann@example.com"))
	require.NoError(t, c.Delete(ctx, "ann@example.com"))
}

func TestPrincipalCache_UnavailableAndMetrics(t *testing.T) {
	mr, rdb := setup(t)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := NewPrincipalCache(rdb, 0, "user", m)
	ctx := context.Background()

	_, _ = c.Get(ctx, "ann@example.com")
	require.NoError(t, c.Set(ctx, &model.User{Email: "ann@example.com"}))
	_, _ = c.Get(ctx, "ann@example.com")

	mr.SetError("ERR server unavailable")
	_, err := c.Get(ctx, "ann@example.com")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, &model.User{Email: "ann@example.com"}))

	// one series each for miss, hit and error
	n, err := testutil.GatherAndCount(reg, "contacts_principal_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
