package sessionstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"carbonmarket/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUser() domain.SessionUser {
	return domain.SessionUser{
		ID:          "8a1f6a8e-5c53-4a57-9c7e-1b7b0a0b2c11",
		Email:       "buyer@example.com",
		Role:        domain.RoleBuyer,
		CompanyName: "Acme Corp",
		OwnerName:   "Jane Smith",
		Verified:    true,
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "sessions"), "sid-1")
	require.NoError(t, err)

	u, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.Save(ctx, sampleUser()))
	u, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Acme Corp", u.CompanyName)

	entries, err := os.ReadDir(filepath.Join(dir, "sessions"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	u, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestFileStore_MalformedBlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sid-2.json"), []byte("{not json"), 0o600))
	s, err := NewFileStore(dir, "sid-2")
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	assert.Error(t, err)
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrBadSessionID)
	_, err = NewRedisStore(nil, "", time.Minute)
	assert.ErrorIs(t, err, ErrBadSessionID)
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewRedisStore(rdb, "sid-3", time.Hour)
	require.NoError(t, err)

	u, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	require.NoError(t, s.Save(ctx, sampleUser()))
	assert.True(t, mr.Exists(KeyPrefix+"sid-3"))
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"sid-3"))

	mr.FastForward(30 * time.Minute)
	u, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, domain.RoleBuyer, u.Role)
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"sid-3"), "load slides the ttl")

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists(KeyPrefix+"sid-3"))
}

func TestRedisStore_MalformedBlob(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(KeyPrefix+"sid-4", "garbage"))

	s, err := NewRedisStore(rdb, "sid-4", 0)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	assert.Error(t, err)
}

func TestFactories(t *testing.T) {
	ctx := context.Background()
	fileStore := FileFactory(t.TempDir())("good-session-id")
	require.NoError(t, fileStore.Save(ctx, sampleUser()))
	u, err := fileStore.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", u.Email)

	assert.IsType(t, Discard{}, FileFactory(t.TempDir())("../escape"))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisStore := RedisFactory(rdb, time.Minute)("good-session-id")
	require.NoError(t, redisStore.Save(ctx, sampleUser()))
	assert.True(t, mr.Exists(KeyPrefix+"good-session-id"))
}
