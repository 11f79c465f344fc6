package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// resetTestClient connects to the redis named by REDIS_URL, or skips the
// test when none is reachable.
func resetTestClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping redis-backed test")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

func TestResetCodeFlow(t *testing.T) {
	client := resetTestClient(t)
	rs := NewResetService(client, time.Minute)
	ctx := context.Background()

	const userID = 424242
	t.Cleanup(func() { client.Del(ctx, resetKey(userID)) })

	code, err := rs.Issue(ctx, userID)
	require.NoError(t, err)
	require.Len(t, code, 6)

	// Consuming before verification is rejected.
	require.ErrorIs(t, rs.Consume(ctx, userID), ErrResetCodeNotVerified)

	// A wrong code never verifies.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.ErrorIs(t, rs.Verify(ctx, userID, wrong), ErrResetCodeInvalid)

	require.NoError(t, rs.Verify(ctx, userID, code))
	require.NoError(t, rs.Consume(ctx, userID))

	// The entry is gone after consumption.
	require.ErrorIs(t, rs.Verify(ctx, userID, code), ErrResetCodeInvalid)
}

func TestResetIssueReplacesPendingCode(t *testing.T) {
	client := resetTestClient(t)
	rs := NewResetService(client, time.Minute)
	ctx := context.Background()

	const userID = 424243
	t.Cleanup(func() { client.Del(ctx, resetKey(userID)) })

	first, err := rs.Issue(ctx, userID)
	require.NoError(t, err)

	second, err := rs.Issue(ctx, userID)
	require.NoError(t, err)

	if first != second {
		require.ErrorIs(t, rs.Verify(ctx, userID, first), ErrResetCodeInvalid)
	}
	require.NoError(t, rs.Verify(ctx, userID, second))
}
