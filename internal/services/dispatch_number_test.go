package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dispatch-system/internal/repositories/memory"
	apperrors "dispatch-system/pkg/errors"
)

type brokenCache struct {
	*memory.Cache
}

func (brokenCache) Incr(ctx context.Context, key string) (int64, error) {
	return 0, errors.New("redis недоступен")
}

func TestDispatchNumber_SequenceRestartsEachDay(t *testing.T) {
	clk := &fakeClock{t: time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)}
	gen := NewDispatchNumberGenerator(memory.NewCache(), "", zap.NewNop()).(*DispatchNumberGenerator)
	gen.now = clk.now
	ctx := context.Background()

	for _, want := range []string{"DSP-20250602-0001", "DSP-20250602-0002"} {
		got, err := gen.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	clk.advance(2 * time.Minute)
	got, err := gen.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "DSP-20250603-0001", got)
}

func TestDispatchNumber_CacheFailureIsStorageError(t *testing.T) {
	gen := NewDispatchNumberGenerator(brokenCache{memory.NewCache()}, "SRV", zap.NewNop())
	_, err := gen.Next(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStorage)
}
