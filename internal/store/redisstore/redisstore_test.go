package redisstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluralhub/plural-gateway/internal/messaging"
)

// setupTestStore creates a RedisStore for testing.
// Skips when no local Redis server is available.
func setupTestStore(t *testing.T) *RedisStore {
	client, err := messaging.NewRedisClient(messaging.RedisConfig{
		Addr: "localhost:6379",
		DB:   15, // scratch database
	})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() {
		client.RawClient().FlushDB(context.Background())
		client.Close()
	})
	return New(client)
}

func TestRedisStore_SystemRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sys, err := s.CreateSystem(ctx, "Test System", 1234567890123)
	require.NoError(t, err)
	require.NotNil(t, sys)

	byAccount, err := s.SystemByAccount(ctx, 1234567890123)
	require.NoError(t, err)
	require.NotNil(t, byAccount)
	assert.Equal(t, sys.ID, byAccount.ID)
	assert.Equal(t, []uint64{1234567890123}, byAccount.Accounts)

	byHID, err := s.SystemByHID(ctx, sys.HID)
	require.NoError(t, err)
	require.NotNil(t, byHID)
	assert.Equal(t, sys.Name, byHID.Name)
}

func TestRedisStore_MissReturnsNilNil(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sys, err := s.SystemByAccount(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, sys)

	mem, err := s.MemberByHID(ctx, "zzzzz")
	require.NoError(t, err)
	assert.Nil(t, mem)
}

func TestRedisStore_MemberByNameScoped(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sysA, err := s.CreateSystem(ctx, "A", 1)
	require.NoError(t, err)
	sysB, err := s.CreateSystem(ctx, "B", 2)
	require.NoError(t, err)

	_, err = s.CreateMember(ctx, sysA.ID, "Alice")
	require.NoError(t, err)
	want, err := s.CreateMember(ctx, sysB.ID, "Alice")
	require.NoError(t, err)

	got, err := s.MemberByName(ctx, sysB.ID, "Alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
}

func TestRedisStore_AccountClaimedOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CreateSystem(ctx, "A", 7)
	require.NoError(t, err)
	_, err = s.CreateSystem(ctx, "B", 7)
	assert.Error(t, err)
}

func TestRedisStore_Counts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	sys, err := s.CreateSystem(ctx, "A", 1)
	require.NoError(t, err)
	_, err = s.CreateMember(ctx, sys.ID, "Alice")
	require.NoError(t, err)

	systems, members, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), systems)
	assert.Equal(t, int64(1), members)
}
