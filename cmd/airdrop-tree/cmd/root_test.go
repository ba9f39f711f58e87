package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airdrop-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipientList = `# airdrop recipients
0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222,100

0xcccccccccccccccccccccccccccccccccccc3333
0xdddddddddddddddddddddddddddddddddddd4444
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "addresses.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildProofVerify(t *testing.T) {
	in := writeList(t, recipientList)
	out := filepath.Join(t.TempDir(), "tree.json")

	stdout, err := run(t, "build", "--in", in, "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "recipients: 3")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var export models.CommitmentExport
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Len(t, export.Addresses, 3)

	stdout, err = run(t, "proof", "--in", out, "--address", "0xcccccccccccccccccccccccccccccccccccc3333")
	require.NoError(t, err)
	var proof proofOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &proof))
	assert.Equal(t, export.Root, proof.Root)

	stdout, err = run(t, "verify",
		"--root", proof.Root,
		"--address", proof.Address,
		"--proof", strings.Join(proof.Proof, ","))
	require.NoError(t, err)
	assert.Contains(t, stdout, "valid")

	_, err = run(t, "verify",
		"--root", proof.Root,
		"--address", "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222",
		"--proof", strings.Join(proof.Proof, ","))
	assert.Error(t, err)
}

func TestBuild_Stdout(t *testing.T) {
	in := writeList(t, recipientList)
	stdout, err := run(t, "build", "--in", in, "--out", "-")
	require.NoError(t, err)

	var export models.CommitmentExport
	require.NoError(t, json.Unmarshal([]byte(stdout), &export))
	assert.Len(t, export.LeafNodes, 3)
}

func TestBuild_RejectsDuplicates(t *testing.T) {
	in := writeList(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222\n0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB2222\n")
	_, err := run(t, "build", "--in", in, "--out", "-")
	assert.Error(t, err)

	in = writeList(t, "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb2222\n")
	_, err = run(t, "build", "--in", in, "--out", "-", "--min-recipients", "2")
	assert.Error(t, err)
}

func TestAmount(t *testing.T) {
	stdout, err := run(t, "amount", "2.5")
	require.NoError(t, err)
	assert.Equal(t, "2500000000000000000\n", stdout)

	stdout, err = run(t, "amount", "--decimals", "6", "1.25")
	require.NoError(t, err)
	assert.Equal(t, "1250000\n", stdout)

	_, err = run(t, "amount", "--decimals", "6", "0.0000001")
	assert.Error(t, err)
}
