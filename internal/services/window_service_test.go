package services

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"airdrop-backend/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChainTime is a ChainTimeSource returning a fixed timestamp or error.
// When gate is non-nil every call blocks until gate is closed or ctx ends.
type fakeChainTime struct {
	ts    uint64
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeChainTime) LatestBlockTimestamp(ctx context.Context) (uint64, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.ts, f.err
}

func TestDeriveWindow(t *testing.T) {
	src := &fakeChainTime{ts: 1_000_000}
	svc, err := NewWindowService(src, 400, 3000)
	require.NoError(t, err)

	w, err := svc.DeriveWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1000400", w.StartString())
	assert.Equal(t, "1003000", w.EndString())
	assert.True(t, w.Start.LessThan(w.End))
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestDeriveWindow_LargeTimestampNoOverflow(t *testing.T) {
	svc, err := NewWindowService(&fakeChainTime{ts: math.MaxUint64}, 400, 3000)
	require.NoError(t, err)

	w, err := svc.DeriveWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "18446744073709552015", w.StartString())
	assert.Equal(t, "18446744073709554615", w.EndString())
	assert.True(t, w.Start.LessThan(w.End))
}

func TestDeriveWindow_ChainUnavailable(t *testing.T) {
	svc, err := NewWindowService(&fakeChainTime{err: errors.New("dial tcp: connection refused")}, 400, 3000)
	require.NoError(t, err)

	_, err = svc.DeriveWindow(context.Background())
	assert.ErrorIs(t, err, types.ErrChainUnavailable)
}

func TestNewWindowService_InvalidOffsets(t *testing.T) {
	_, err := NewWindowService(&fakeChainTime{}, 3000, 400)
	assert.ErrorIs(t, err, types.ErrInvalidWindowConfig)

	_, err = NewWindowService(&fakeChainTime{}, 10, 10)
	assert.ErrorIs(t, err, types.ErrInvalidWindowConfig)

	_, err = NewWindowService(nil, 1, 2)
	assert.Error(t, err)
}
