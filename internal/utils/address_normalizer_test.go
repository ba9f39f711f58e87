package utils

import (
	"testing"

	"airdrop-backend/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvmAddress(t *testing.T) {
	raw, err := DecodeEvmAddress("0x1A8a36bA1FF133bcFDD8C60bb01E511C363672B0")
	require.NoError(t, err)
	assert.Len(t, raw, EvmAddressLength)
	assert.Equal(t, byte(0x1a), raw[0])
	assert.Equal(t, byte(0xb0), raw[19])

	noPrefix, err := DecodeEvmAddress("1A8a36bA1FF133bcFDD8C60bb01E511C363672B0")
	require.NoError(t, err)
	assert.Equal(t, raw, noPrefix)
}

func TestDecodeEvmAddress_Invalid(t *testing.T) {
	for _, addr := range []string{
		"",
		"0x",
		"0x1234",
		"0x1A8a36bA1FF133bcFDD8C60bb01E511C363672B0ff",
		"0xZZ8a36bA1FF133bcFDD8C60bb01E511C363672B0",
	} {
		_, err := DecodeEvmAddress(addr)
		assert.ErrorIs(t, err, types.ErrInvalidAddressFormat, "address %q", addr)
	}
}

func TestNormalizeAndChecksum(t *testing.T) {
	norm, err := NormalizeEvmAddress("0X5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED")
	require.NoError(t, err)
	assert.Equal(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", norm)

	// EIP-55 reference vector
	sum, err := ChecksumAddress(norm)
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", sum)
}

func TestIsEvmAddress(t *testing.T) {
	assert.True(t, IsEvmAddress("0xabe215fb79fb827978c82379d5974831e2fb5e0d"))
	assert.True(t, IsEvmAddress("abe215fb79fb827978c82379d5974831e2fb5e0d"))
	assert.False(t, IsEvmAddress("0xabe215fb79fb827978c82379d5974831e2fb5e0"))
	assert.False(t, IsEvmAddress(""))
}
