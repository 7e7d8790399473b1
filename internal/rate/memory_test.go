package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AdmitsMaxAndRejectsNext(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	const max = 5
	for i := 0; i < max; i++ {
		res, err := l.Allow(ctx, "user-1|validate", max, 15*time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "hit %d debería pasar", i+1)
	}

	res, err := l.Allow(ctx, "user-1|validate", max, 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0), "resetIn debe ser positivo")
	assert.Equal(t, int64(0), res.Remaining)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	res, err := l.Allow(ctx, "user-1|save", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "user-1|save", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// otro sujeto, misma acción: bucket propio
	res, err = l.Allow(ctx, "user-2|save", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_ResetsAtWindowBoundary(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	fake := time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)
	l.now = func() time.Time { return fake }

	res, err := l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// cruzar el borde de la ventana
	fake = fake.Add(time.Minute)
	res, err = l.Allow(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "el contador resetea estrictamente en el borde")
}

func TestMemoryLimiter_Sweep(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	fake := time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC)
	l.now = func() time.Time { return fake }

	_, err := l.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	_, err = l.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)

	fake = fake.Add(2 * time.Minute)
	l.Sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.windows)
}
