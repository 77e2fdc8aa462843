package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestPresenceKey(t *testing.T) {
	require.Equal(t, "helpdesk:presence:42", presenceKey(42))
}

func TestLiveNodes(t *testing.T) {
	now := time.Unix(1_000, 0)
	fields := map[string]string{
		"node-a": "1500",
		"node-b": "900",
		"node-c": "garbage",
		"node-d": "1000",
	}
	require.Equal(t, []string{"node-a"}, liveNodes(fields, now))
	require.Empty(t, liveNodes(map[string]string{}, now))
}

func TestNopMirror(t *testing.T) {
	var m Mirror = NopMirror{}
	ctx := context.Background()
	require.NoError(t, m.Online(ctx, 1))
	require.NoError(t, m.Touch(ctx, []int64{1, 2}))
	require.NoError(t, m.Offline(ctx, 1))
}

func newMiniredisMirror(t *testing.T, node string, ttl time.Duration) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisMirror(rdb, node, ttl), mr
}

func TestRedisMirror_OnlineWritesNodeExpiry(t *testing.T) {
	m, mr := newMiniredisMirror(t, "node-a", time.Minute)
	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Online(context.Background(), 42))

	require.Equal(t, "1700000060", mr.HGet("helpdesk:presence:42", "node-a"))
	require.Equal(t, time.Minute, mr.TTL("helpdesk:presence:42"))
}

func TestRedisMirror_TouchRefreshesEveryUser(t *testing.T) {
	m, mr := newMiniredisMirror(t, "node-a", 2*time.Minute)
	now := time.Unix(1_000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Touch(ctx, nil))
	require.Empty(t, mr.Keys())

	require.NoError(t, m.Touch(ctx, []int64{1, 2}))
	now = now.Add(30 * time.Second)
	require.NoError(t, m.Touch(ctx, []int64{1, 2}))

	for _, key := range []string{"helpdesk:presence:1", "helpdesk:presence:2"} {
		require.Equal(t, "1150", mr.HGet(key, "node-a"))
		require.Equal(t, 2*time.Minute, mr.TTL(key))
	}
}

func TestRedisMirror_OfflineClearsOnlyThisNode(t *testing.T) {
	m, mr := newMiniredisMirror(t, "node-a", time.Minute)
	ctx := context.Background()
	require.NoError(t, m.Online(ctx, 7))
	mr.HSet("helpdesk:presence:7", "node-b", "9999999999")

	require.NoError(t, m.Offline(ctx, 7))

	require.Empty(t, mr.HGet("helpdesk:presence:7", "node-a"))
	require.Equal(t, "9999999999", mr.HGet("helpdesk:presence:7", "node-b"))

	online, err := m.Lookup(ctx, 7)
	require.NoError(t, err)
	require.True(t, online)
}

func TestRedisMirror_LookupIgnoresExpiredFields(t *testing.T) {
	m, mr := newMiniredisMirror(t, "node-a", time.Minute)
	now := time.Unix(5_000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	online, err := m.Lookup(ctx, 3)
	require.NoError(t, err)
	require.False(t, online)

	// a node that died without cleaning up leaves a stale field behind
	mr.HSet("helpdesk:presence:3", "node-dead", "4000")
	online, err = m.Lookup(ctx, 3)
	require.NoError(t, err)
	require.False(t, online)

	require.NoError(t, m.Online(ctx, 3))
	online, err = m.Lookup(ctx, 3)
	require.NoError(t, err)
	require.True(t, online)

	now = now.Add(2 * time.Minute)
	online, err = m.Lookup(ctx, 3)
	require.NoError(t, err)
	require.False(t, online)
}

func TestRedisMirror_WrapsStoreErrors(t *testing.T) {
	m, mr := newMiniredisMirror(t, "node-a", time.Minute)
	mr.Close()
	ctx := context.Background()

	require.ErrorContains(t, m.Online(ctx, 1), "refresh presence")
	require.ErrorContains(t, m.Offline(ctx, 1), "clear presence of user 1")
	_, err := m.Lookup(ctx, 1)
	require.ErrorContains(t, err, "lookup presence of user 1")
}
