package services

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airdrop-backend/internal/models"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222"
	addrC = "0xcccccccccccccccccccccccccccccccccccc3333"
	addrD = "0xdddddddddddddddddddddddddddddddddddd4444"
)

// expectedPairRoot computes keccak(sort(keccak(a), keccak(b))) independently of the tree package
func expectedPairRoot(a, b string) string {
	la := crypto.Keccak256(common.HexToAddress(a).Bytes())
	lb := crypto.Keccak256(common.HexToAddress(b).Bytes())
	if bytes.Compare(la, lb) > 0 {
		la, lb = lb, la
	}
	return hexutil.Encode(crypto.Keccak256(la, lb))
}

func TestBuildCommitment_TwoRecipients(t *testing.T) {
	c, err := BuildCommitment([]string{addrB, addrC})
	require.NoError(t, err)

	assert.Equal(t, expectedPairRoot(addrB, addrC), c.Root())
	assert.Equal(t, []string{
		common.HexToAddress(addrB).Hex(),
		common.HexToAddress(addrC).Hex(),
	}, c.Addresses)
}

func TestBuildCommitment_Deterministic(t *testing.T) {
	addrs := []string{addrB, addrC, addrD}
	a, err := BuildCommitment(addrs)
	require.NoError(t, err)
	b, err := BuildCommitment(addrs)
	require.NoError(t, err)
	assert.Equal(t, a.Root(), b.Root())

	swapped, err := BuildCommitment([]string{addrC, addrB, addrD})
	require.NoError(t, err)
	assert.Equal(t, a.Root(), swapped.Root())
}

func TestBuildCommitment_PrefixAndCaseInsensitive(t *testing.T) {
	a, err := BuildCommitment([]string{addrB, addrC})
	require.NoError(t, err)
	b, err := BuildCommitment([]string{strings.TrimPrefix(addrB, "0x"), strings.ToUpper(addrC[2:])})
	require.NoError(t, err)
	assert.Equal(t, a.Root(), b.Root())
}

func TestBuildCommitment_Errors(t *testing.T) {
	_, err := BuildCommitment(nil)
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	_, err = BuildCommitment([]string{addrB, "0x1234"})
	assert.ErrorIs(t, err, types.ErrInvalidAddressFormat)

	_, err = BuildCommitment([]string{"0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"})
	assert.ErrorIs(t, err, types.ErrInvalidAddressFormat)
}

func TestCommitment_Export(t *testing.T) {
	c, err := BuildCommitment([]string{addrB, addrC, addrD})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteExport(&buf))
	assert.Contains(t, buf.String(), "\n  \"addresses\"")

	var doc models.CommitmentExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Addresses, 3)
	assert.Len(t, doc.LeafNodes, 3)
	assert.Equal(t, c.Root(), doc.Root)

	leaf, err := LeafForAddress(addrB)
	require.NoError(t, err)
	assert.Equal(t, hexutil.Encode(leaf), doc.LeafNodes[0])

	again, err := ReadExport(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, c.Root(), again.Root())
}

func TestReadExport_RootMismatch(t *testing.T) {
	doc := `{"addresses":["` + addrB + `"],"leafNodes":[],"root":"0x00"}`
	_, err := ReadExport(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestCommitment_ExportFile(t *testing.T) {
	c, err := BuildCommitment([]string{addrB})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, c.ExportFile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc models.CommitmentExport
	require.NoError(t, json.Unmarshal(raw, &doc))
	// single leaf is its own root
	assert.Equal(t, doc.LeafNodes[0], doc.Root)
}

func TestCommitment_ProofRoundTrip(t *testing.T) {
	addrs := []string{addrB, addrC, addrD}
	c, err := BuildCommitment(addrs)
	require.NoError(t, err)

	for _, a := range addrs {
		proof, err := c.Proof(a)
		require.NoError(t, err)
		ok, err := VerifyAddressProof(c.Root(), a, proof)
		require.NoError(t, err)
		assert.True(t, ok, a)
	}

	proof, err := c.Proof(addrB)
	require.NoError(t, err)
	ok, err := VerifyAddressProof(c.Root(), "0x1111111111111111111111111111111111111111", proof)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyAddressProof("not-hex", addrB, proof)
	assert.Error(t, err)
}

func TestCommitmentService_ValidateRecipients(t *testing.T) {
	svc := NewCommitmentService(2)

	out, err := svc.ValidateRecipients([]string{addrB, addrC})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addrB).Hex(), out[0])

	_, err = svc.ValidateRecipients([]string{addrB, strings.ToUpper(addrB[2:])})
	assert.ErrorIs(t, err, types.ErrDuplicateRecipient)

	_, err = svc.ValidateRecipients([]string{addrB})
	assert.ErrorIs(t, err, types.ErrTooFewRecipients)

	_, err = svc.ValidateRecipients(nil)
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	_, err = svc.ValidateRecipients([]string{addrB, "bogus"})
	assert.ErrorIs(t, err, types.ErrInvalidAddressFormat)
}

func TestCommitmentService_Build(t *testing.T) {
	svc := NewCommitmentService(0)
	assert.Equal(t, 1, svc.MinRecipients())

	c, err := svc.Build([]string{addrB, addrC})
	require.NoError(t, err)
	assert.Equal(t, expectedPairRoot(addrB, addrC), c.Root())

	_, err = svc.Build([]string{addrB, addrB})
	assert.ErrorIs(t, err, types.ErrDuplicateRecipient)
}
