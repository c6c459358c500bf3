package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_BlocksAfterMaxFailsAndResets(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(Policy{Window: time.Minute, MaxFails: 3, BlockFor: 5 * time.Minute})
	m.now = func() time.Time { return now }
	ip := HashIP("10.0.0.1")

	for i := 0; i < 2; i++ {
		blocked, _, err := m.Failure(ctx, "bob", ip)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	blocked, dur, err := m.Failure(ctx, "bob", ip)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 5*time.Minute, dur)

	ok, retry, err := m.Allow(ctx, "bob", ip)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5*time.Minute, retry)

	ok, _, _ = m.Allow(ctx, "alice", ip)
	require.True(t, ok)

	now = now.Add(6 * time.Minute)
	ok, _, _ = m.Allow(ctx, "bob", ip)
	require.True(t, ok)

	require.NoError(t, m.Success(ctx, "bob", ip))
	blocked, _, _ = m.Failure(ctx, "bob", ip)
	require.False(t, blocked)
}

func TestMemory_WindowExpiryRestartsCount(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory(Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Minute})
	m.now = func() time.Time { return now }

	blocked, _, _ := m.Failure(ctx, "bob", nil)
	require.False(t, blocked)
	now = now.Add(2 * time.Minute)
	blocked, _, _ = m.Failure(ctx, "bob", nil)
	require.False(t, blocked)
}

var _ Limiter = (*Memory)(nil)
var _ Limiter = (*PG)(nil)
