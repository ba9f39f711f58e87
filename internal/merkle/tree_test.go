package merkle

import (
	"bytes"
	"crypto/sha256"
	"strconv"
	"testing"

	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genLeaves(n int) [][]byte {
	leaves := make([][]byte, n)
	for i := 0; i < n; i++ {
		leaves[i] = Keccak256([]byte("leaf_" + strconv.Itoa(i)))
	}
	return leaves
}

func sortedPair(a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256(a, b)
}

func TestKeccak256MatchesGethCrypto(t *testing.T) {
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hexutil.Encode(Keccak256(nil)))
	for _, in := range [][]byte{[]byte("abc"), bytes.Repeat([]byte{0xff}, 200)} {
		assert.Equal(t, crypto.Keccak256(in), Keccak256(in))
	}
}

func TestNew_Empty(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, types.ErrEmptyInput)

	_, err = New([][]byte{})
	assert.ErrorIs(t, err, types.ErrEmptyInput)
}

func TestSingleLeafIsRoot(t *testing.T) {
	leaves := genLeaves(1)
	tree, err := New(leaves)
	require.NoError(t, err)
	assert.Equal(t, leaves[0], tree.Root())
	assert.Equal(t, 0, tree.Depth())

	proof, err := tree.Proof(leaves[0])
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, tree.Verify(proof, leaves[0]))
}

func TestTwoLeavesSortedPair(t *testing.T) {
	leaves := genLeaves(2)
	tree, err := New(leaves)
	require.NoError(t, err)
	assert.Equal(t, sortedPair(leaves[0], leaves[1]), tree.Root())
}

func TestOddNodeIsPromoted(t *testing.T) {
	leaves := genLeaves(3)
	tree, err := New(leaves)
	require.NoError(t, err)

	want := sortedPair(sortedPair(leaves[0], leaves[1]), leaves[2])
	assert.Equal(t, want, tree.Root())
	assert.Equal(t, 2, tree.Depth())

	layers := tree.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, leaves[2], layers[1][1])
}

func TestFiveLeaves(t *testing.T) {
	l := genLeaves(5)
	tree, err := New(l)
	require.NoError(t, err)

	h01 := sortedPair(l[0], l[1])
	h23 := sortedPair(l[2], l[3])
	want := sortedPair(sortedPair(h01, h23), l[4])
	assert.Equal(t, want, tree.Root())
}

func TestDeterministic(t *testing.T) {
	leaves := genLeaves(17)
	a, err := New(leaves)
	require.NoError(t, err)
	b, err := New(leaves)
	require.NoError(t, err)
	assert.Equal(t, a.HexRoot(), b.HexRoot())
}

func TestSiblingSwapKeepsRoot(t *testing.T) {
	leaves := genLeaves(8)
	base, err := New(leaves)
	require.NoError(t, err)

	for i := 0; i+1 < len(leaves); i += 2 {
		swapped := make([][]byte, len(leaves))
		copy(swapped, leaves)
		swapped[i], swapped[i+1] = swapped[i+1], swapped[i]

		tree, err := New(swapped)
		require.NoError(t, err)
		assert.Equal(t, base.HexRoot(), tree.HexRoot(), "swap at %d", i)
	}
}

func TestInputIsCopied(t *testing.T) {
	leaves := genLeaves(4)
	tree, err := New(leaves)
	require.NoError(t, err)
	root := tree.HexRoot()

	leaves[0][0] ^= 0xff
	assert.Equal(t, root, tree.HexRoot())
}

func TestProofsVerify(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 7, 16, 33} {
		leaves := genLeaves(n)
		tree, err := New(leaves)
		require.NoError(t, err)

		for i, leaf := range leaves {
			proof, err := tree.ProofAt(i)
			require.NoError(t, err)
			assert.True(t, tree.Verify(proof, leaf), "n=%d i=%d", n, i)
			assert.True(t, VerifyProof(proof, leaf, tree.Root(), nil), "n=%d i=%d", n, i)
		}
	}
}

func TestProofRejectsForeignLeaf(t *testing.T) {
	leaves := genLeaves(6)
	tree, err := New(leaves)
	require.NoError(t, err)

	foreign := Keccak256([]byte("not a member"))
	_, err = tree.Proof(foreign)
	assert.ErrorIs(t, err, ErrLeafNotFound)

	proof, err := tree.ProofAt(0)
	require.NoError(t, err)
	assert.False(t, tree.Verify(proof, foreign))
}

func TestProofAtOutOfRange(t *testing.T) {
	tree, err := New(genLeaves(3))
	require.NoError(t, err)
	_, err = tree.ProofAt(3)
	assert.Error(t, err)
	_, err = tree.ProofAt(-1)
	assert.Error(t, err)
}

func TestWithHasher(t *testing.T) {
	sha := func(b []byte) []byte {
		s := sha256.Sum256(b)
		return s[:]
	}
	leaves := genLeaves(2)
	tree, err := New(leaves, WithHasher(sha))
	require.NoError(t, err)

	a, b := leaves[0], leaves[1]
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	assert.Equal(t, sha(append(append([]byte{}, a...), b...)), tree.Root())

	proof, err := tree.ProofAt(1)
	require.NoError(t, err)
	assert.True(t, VerifyProof(proof, leaves[1], tree.Root(), sha))
	assert.False(t, VerifyProof(proof, leaves[1], tree.Root(), nil))
}

func BenchmarkNew_1000(b *testing.B) {
	leaves := genLeaves(1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = New(leaves)
	}
}
