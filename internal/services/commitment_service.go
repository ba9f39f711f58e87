package services

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"airdrop-backend/internal/merkle"
	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/models"
	"airdrop-backend/internal/types"
	"airdrop-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

// Commitment Merkle commitment over an ordered recipient list
type Commitment struct {
	Addresses []string // EIP-55 form, same order as the leaves
	Tree      *merkle.Tree
}

// LeafForAddress hashes the raw 20 address bytes into a commitment leaf
func LeafForAddress(address string) ([]byte, error) {
	raw, err := utils.DecodeEvmAddress(address)
	if err != nil {
		return nil, err
	}
	return merkle.Keccak256(raw), nil
}

// BuildCommitment hashes every address and folds the leaves into a sorted-pair
// keccak tree. Duplicates are accepted here; recipient policy lives in
// CommitmentService.
func BuildCommitment(addresses []string) (*Commitment, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("recipient list: %w", types.ErrEmptyInput)
	}

	leaves := make([][]byte, len(addresses))
	checksummed := make([]string, len(addresses))
	for i, addr := range addresses {
		leaf, err := LeafForAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		leaves[i] = leaf
		checksummed[i], _ = utils.ChecksumAddress(addr)
	}

	tree, err := merkle.New(leaves)
	if err != nil {
		return nil, err
	}
	return &Commitment{Addresses: checksummed, Tree: tree}, nil
}

// Root 0x hex root
func (c *Commitment) Root() string {
	return c.Tree.HexRoot()
}

// Export returns the downloadable {addresses, leafNodes, root} document
func (c *Commitment) Export() models.CommitmentExport {
	return models.CommitmentExport{
		Addresses: append([]string(nil), c.Addresses...),
		LeafNodes: c.Tree.HexLeaves(),
		Root:      c.Tree.HexRoot(),
	}
}

// WriteExport writes the export document as indented JSON
func (c *Commitment) WriteExport(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Export())
}

// ExportFile writes the export document to path
func (c *Commitment) ExportFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := c.WriteExport(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return f.Close()
}

// Proof returns the 0x hex inclusion proof of address
func (c *Commitment) Proof(address string) ([]string, error) {
	leaf, err := LeafForAddress(address)
	if err != nil {
		return nil, err
	}
	return c.Tree.HexProof(leaf)
}

// VerifyAddressProof checks a hex proof for address against a hex root
func VerifyAddressProof(root string, address string, proof []string) (bool, error) {
	rootBytes, err := hexutil.Decode(root)
	if err != nil {
		return false, fmt.Errorf("invalid root %q: %w", root, err)
	}
	leaf, err := LeafForAddress(address)
	if err != nil {
		return false, err
	}
	nodes := make([][]byte, len(proof))
	for i, p := range proof {
		if nodes[i], err = hexutil.Decode(p); err != nil {
			return false, fmt.Errorf("invalid proof node %d %q: %w", i, p, err)
		}
	}
	return merkle.VerifyProof(nodes, leaf, rootBytes, nil), nil
}

// ReadExport parses a tree.json document and rebuilds its commitment, failing
// when the stored root does not match the addresses.
func ReadExport(r io.Reader) (*Commitment, error) {
	var doc models.CommitmentExport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	c, err := BuildCommitment(doc.Addresses)
	if err != nil {
		return nil, err
	}
	if doc.Root != "" && !strings.EqualFold(doc.Root, c.Root()) {
		return nil, fmt.Errorf("export root %s does not match recomputed root %s", doc.Root, c.Root())
	}
	return c, nil
}

// CommitmentService applies recipient policy before building commitments
type CommitmentService struct {
	minRecipients int
	logger        *logrus.Entry
}

// NewCommitmentService creates a commitment builder that requires at least minRecipients unique addresses
func NewCommitmentService(minRecipients int) *CommitmentService {
	if minRecipients < 1 {
		minRecipients = 1
	}
	return &CommitmentService{
		minRecipients: minRecipients,
		logger:        logrus.WithField("component", "commitment_service"),
	}
}

// MinRecipients configured minimum recipient count
func (s *CommitmentService) MinRecipients() int {
	return s.minRecipients
}

// ValidateRecipients checks format, uniqueness (case-insensitive) and minimum count.
// It returns the EIP-55 form of every address in input order.
func (s *CommitmentService) ValidateRecipients(addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("recipient list: %w", types.ErrEmptyInput)
	}

	seen := make(map[string]int, len(addresses))
	out := make([]string, 0, len(addresses))
	for i, addr := range addresses {
		norm, err := utils.NormalizeEvmAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		if first, dup := seen[norm]; dup {
			return nil, fmt.Errorf("%w: %s at positions %d and %d", types.ErrDuplicateRecipient, addr, first, i)
		}
		seen[norm] = i
		sum, _ := utils.ChecksumAddress(norm)
		out = append(out, sum)
	}

	if len(out) < s.minRecipients {
		return nil, fmt.Errorf("%w: got %d, need at least %d", types.ErrTooFewRecipients, len(out), s.minRecipients)
	}
	return out, nil
}

// Build validates addresses and builds their commitment
func (s *CommitmentService) Build(addresses []string) (*Commitment, error) {
	recipients, err := s.ValidateRecipients(addresses)
	if err != nil {
		return nil, err
	}

	c, err := BuildCommitment(recipients)
	if err != nil {
		return nil, err
	}

	metrics.CommitmentsBuilt.Inc()
	metrics.CommitmentRecipients.Observe(float64(len(recipients)))
	s.logger.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"root":       c.Root(),
	}).Info("🌳 Built recipient commitment")
	return c, nil
}
