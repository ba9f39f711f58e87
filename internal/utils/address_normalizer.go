package utils

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// EvmAddressLength raw byte length of an EVM account address
const EvmAddressLength = 20

var evmHexPattern = regexp.MustCompile("^[0-9a-fA-F]{40}$")

// StripHexPrefix removes a leading 0x / 0X
func StripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// IsEvmAddress checks whether address is an EVM address (20 bytes), with or without 0x
func IsEvmAddress(address string) bool {
	if address == "" {
		return false
	}
	return evmHexPattern.MatchString(StripHexPrefix(address))
}

// DecodeEvmAddress strips the prefix and decodes the remaining hex into exactly 20 bytes
func DecodeEvmAddress(address string) ([]byte, error) {
	hexStr := StripHexPrefix(strings.TrimSpace(address))
	if len(hexStr) != EvmAddressLength*2 {
		return nil, fmt.Errorf("%w: %q: expected %d hex chars, got %d",
			types.ErrInvalidAddressFormat, address, EvmAddressLength*2, len(hexStr))
	}

	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", types.ErrInvalidAddressFormat, address, err)
	}
	return raw, nil
}

// NormalizeEvmAddress returns the lowercase 0x form of address.
// Used as the identity key when comparing recipients.
func NormalizeEvmAddress(address string) (string, error) {
	raw, err := DecodeEvmAddress(address)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(raw), nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of address
func ChecksumAddress(address string) (string, error) {
	raw, err := DecodeEvmAddress(address)
	if err != nil {
		return "", err
	}
	return common.BytesToAddress(raw).Hex(), nil
}
