// Package merkle builds binary hash trees with sorted-pair hashing, the layout
// used by on-chain airdrop distributors: every parent is H(min(a,b) || max(a,b)),
// an odd node at the end of a layer is promoted unchanged, and leaves are used
// as given (callers hash their items before building).
package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// HashFunc hashes one byte string into a fixed-size digest
type HashFunc func(data []byte) []byte

// ErrLeafNotFound is returned when a proof is requested for a leaf outside the tree
var ErrLeafNotFound = errors.New("leaf not found in tree")

// Keccak256 legacy (pre-NIST) keccak-256, as used by the EVM
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Option configures a Tree
type Option func(*Tree)

// WithHasher overrides the default keccak-256 hash function
func WithHasher(fn HashFunc) Option {
	return func(t *Tree) {
		if fn != nil {
			t.hashFn = fn
		}
	}
}

// Tree immutable sorted-pair Merkle tree. layers[0] holds the leaves and the
// last layer holds the root.
type Tree struct {
	hashFn HashFunc
	layers [][][]byte
}

// New builds a tree over leaves. The leaf slice is copied.
func New(leaves [][]byte, opts ...Option) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("merkle: %w", types.ErrEmptyInput)
	}

	t := &Tree{hashFn: Keccak256}
	for _, opt := range opts {
		opt(t)
	}

	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		level[i] = append([]byte(nil), leaf...)
	}
	t.layers = append(t.layers, level)

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// odd node out
				next = append(next, level[i])
				continue
			}
			next = append(next, hashPair(t.hashFn, level[i], level[i+1]))
		}
		t.layers = append(t.layers, next)
		level = next
	}
	return t, nil
}

// Root returns the root hash
func (t *Tree) Root() []byte {
	top := t.layers[len(t.layers)-1]
	return append([]byte(nil), top[0]...)
}

// HexRoot returns the root as 0x-prefixed lowercase hex
func (t *Tree) HexRoot() string {
	return hexutil.Encode(t.layers[len(t.layers)-1][0])
}

// Leaves returns a copy of the leaf layer
func (t *Tree) Leaves() [][]byte {
	return copyLayer(t.layers[0])
}

// HexLeaves returns the leaf layer as 0x hex strings
func (t *Tree) HexLeaves() []string {
	out := make([]string, len(t.layers[0]))
	for i, leaf := range t.layers[0] {
		out[i] = hexutil.Encode(leaf)
	}
	return out
}

// Layers returns a copy of every layer, leaves first
func (t *Tree) Layers() [][][]byte {
	out := make([][][]byte, len(t.layers))
	for i, layer := range t.layers {
		out[i] = copyLayer(layer)
	}
	return out
}

// Depth number of hashing levels above the leaves
func (t *Tree) Depth() int {
	return len(t.layers) - 1
}

// LeafIndex returns the position of the first occurrence of leaf, or -1
func (t *Tree) LeafIndex(leaf []byte) int {
	for i, l := range t.layers[0] {
		if bytes.Equal(l, leaf) {
			return i
		}
	}
	return -1
}

// Proof returns the sibling path for the first occurrence of leaf
func (t *Tree) Proof(leaf []byte) ([][]byte, error) {
	idx := t.LeafIndex(leaf)
	if idx < 0 {
		return nil, ErrLeafNotFound
	}
	return t.ProofAt(idx)
}

// ProofAt returns the sibling path for the leaf at index. Levels where the
// node was promoted without a sibling contribute nothing.
func (t *Tree) ProofAt(index int) ([][]byte, error) {
	if index < 0 || index >= len(t.layers[0]) {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0, %d)", index, len(t.layers[0]))
	}

	proof := make([][]byte, 0, t.Depth())
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := index + 1
		if index%2 == 1 {
			sibling = index - 1
		}
		if sibling < len(layer) {
			proof = append(proof, append([]byte(nil), layer[sibling]...))
		}
		index /= 2
	}
	return proof, nil
}

// HexProof is Proof encoded as 0x hex strings
func (t *Tree) HexProof(leaf []byte) ([]string, error) {
	proof, err := t.Proof(leaf)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(proof))
	for i, p := range proof {
		out[i] = hexutil.Encode(p)
	}
	return out, nil
}

// Verify checks proof for leaf against this tree's root
func (t *Tree) Verify(proof [][]byte, leaf []byte) bool {
	return VerifyProof(proof, leaf, t.layers[len(t.layers)-1][0], t.hashFn)
}

// VerifyProof folds proof over leaf with sorted-pair hashing and compares the
// result to root. A nil hashFn means keccak-256.
func VerifyProof(proof [][]byte, leaf, root []byte, hashFn HashFunc) bool {
	if hashFn == nil {
		hashFn = Keccak256
	}
	node := leaf
	for _, sibling := range proof {
		node = hashPair(hashFn, node, sibling)
	}
	return bytes.Equal(node, root)
}

func hashPair(hashFn HashFunc, a, b []byte) []byte {
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	buf := make([]byte, 0, len(a)+len(b))
	buf = append(buf, a...)
	buf = append(buf, b...)
	return hashFn(buf)
}

func copyLayer(layer [][]byte) [][]byte {
	out := make([][]byte, len(layer))
	for i, n := range layer {
		out[i] = append([]byte(nil), n...)
	}
	return out
}
