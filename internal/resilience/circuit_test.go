package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, cooldown time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker("test", threshold, cooldown)
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func failTransient(ctx context.Context) error {
	return Transient(eris.New("database is locked"))
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, b.Call(ctx, failTransient))
	}
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(ctx, func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrOpen))
}

func TestBreakerIgnoresPermanentErrors(t *testing.T) {
	b, _ := testBreaker(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Error(t, b.Call(ctx, func(ctx context.Context) error {
			return eris.New("not found")
		}))
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, now := testBreaker(1, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failTransient))
	assert.Equal(t, StateOpen, b.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Call(ctx, func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := testBreaker(1, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failTransient))
	*now = now.Add(2 * time.Minute)
	assert.Equal(t, StateHalfOpen, b.State())

	require.Error(t, b.Call(ctx, failTransient))
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)
	ctx := context.Background()

	require.Error(t, b.Call(ctx, failTransient))
	require.Error(t, b.Call(ctx, failTransient))
	require.NoError(t, b.Call(ctx, func(ctx context.Context) error { return nil }))
	require.Error(t, b.Call(ctx, failTransient))
	require.Error(t, b.Call(ctx, failTransient))

	assert.Equal(t, StateClosed, b.State())
}
