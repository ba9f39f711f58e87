package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecimalsReader struct {
	decimals uint8
	err      error
	calls    atomic.Int32
}

func (f *fakeDecimalsReader) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	f.calls.Add(1)
	return f.decimals, f.err
}

const usdc = "0x1111111111111111111111111111111111111111"

func TestTokenService_ConfiguredWins(t *testing.T) {
	reader := &fakeDecimalsReader{decimals: 9}
	svc, err := NewTokenService(reader, TokenServiceConfig{
		DefaultDecimals: 18,
		TokenDecimals:   map[string]int32{usdc: 6},
		ResolveOnChain:  true,
	})
	require.NoError(t, err)

	d, err := svc.Decimals(context.Background(), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, int32(6), d)
	assert.Equal(t, int32(0), reader.calls.Load())
}

func TestTokenService_OnChainCached(t *testing.T) {
	reader := &fakeDecimalsReader{decimals: 8}
	svc, err := NewTokenService(reader, TokenServiceConfig{DefaultDecimals: 18, ResolveOnChain: true, CacheSize: 4})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		d, err := svc.Decimals(context.Background(), addrB)
		require.NoError(t, err)
		assert.Equal(t, int32(8), d)
	}
	assert.Equal(t, int32(1), reader.calls.Load())
}

func TestTokenService_OnChainFailureBlocks(t *testing.T) {
	reader := &fakeDecimalsReader{err: errors.New("execution reverted")}
	svc, err := NewTokenService(reader, TokenServiceConfig{DefaultDecimals: 18, ResolveOnChain: true})
	require.NoError(t, err)

	_, err = svc.Decimals(context.Background(), addrB)
	assert.ErrorIs(t, err, types.ErrChainUnavailable)

	scaled, _, err := svc.ScaleAmount(context.Background(), addrB, "2.5")
	assert.ErrorIs(t, err, types.ErrChainUnavailable)
	assert.Nil(t, scaled)

	// failures are not cached
	assert.Equal(t, int32(2), reader.calls.Load())
}

func TestTokenService_UnsupportedOnChainDecimals(t *testing.T) {
	reader := &fakeDecimalsReader{decimals: 78}
	svc, err := NewTokenService(reader, TokenServiceConfig{DefaultDecimals: 18, ResolveOnChain: true})
	require.NoError(t, err)

	_, err = svc.Decimals(context.Background(), addrB)
	assert.Error(t, err)
}

func TestTokenService_ResolutionOffUsesDefault(t *testing.T) {
	reader := &fakeDecimalsReader{err: errors.New("unreachable")}
	svc, err := NewTokenService(reader, TokenServiceConfig{DefaultDecimals: 18})
	require.NoError(t, err)

	d, err := svc.Decimals(context.Background(), addrB)
	require.NoError(t, err)
	assert.Equal(t, int32(18), d)
	assert.Equal(t, int32(0), reader.calls.Load())
}

func TestTokenService_NoReader(t *testing.T) {
	svc, err := NewTokenService(nil, TokenServiceConfig{DefaultDecimals: 18, ResolveOnChain: true})
	require.NoError(t, err)

	scaled, decimals, err := svc.ScaleAmount(context.Background(), addrB, "2.5")
	require.NoError(t, err)
	assert.Equal(t, int32(18), decimals)
	assert.Equal(t, "2500000000000000000", scaled.String())
}

func TestTokenService_ScaleAmountErrors(t *testing.T) {
	svc, err := NewTokenService(nil, TokenServiceConfig{DefaultDecimals: 6})
	require.NoError(t, err)

	_, _, err = svc.ScaleAmount(context.Background(), "0xnope", "1")
	assert.ErrorIs(t, err, types.ErrInvalidAddressFormat)

	_, _, err = svc.ScaleAmount(context.Background(), addrB, "0.0000001")
	assert.ErrorIs(t, err, types.ErrInvalidAmountFormat)
}

func TestNewTokenService_InvalidDefault(t *testing.T) {
	_, err := NewTokenService(nil, TokenServiceConfig{DefaultDecimals: 78})
	assert.Error(t, err)
}
