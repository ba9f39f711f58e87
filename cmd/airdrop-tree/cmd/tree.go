package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"airdrop-backend/internal/services"

	"github.com/spf13/cobra"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var in, out string
	var minRecipients int

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the recipient commitment and write tree.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := readAddresses(in)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-recipients") {
				minRecipients = opts.cfg.Airdrop.MinRecipients
			}
			c, err := services.NewCommitmentService(minRecipients).Build(addresses)
			if err != nil {
				return err
			}

			if out == "-" {
				return c.WriteExport(cmd.OutOrStdout())
			}
			if out == "" {
				out = filepath.Join(opts.cfg.Airdrop.ExportDir, "tree.json")
			}
			if err := c.ExportFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "root: %s\nrecipients: %d\nwritten: %s\n", c.Root(), len(c.Addresses), out)
			return nil
		},
	}
	buildCmd.Flags().StringVarP(&in, "in", "i", "", "recipient list (.txt, .json export, or - for stdin)")
	buildCmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout (default <exportDir>/tree.json)")
	buildCmd.Flags().IntVar(&minRecipients, "min-recipients", 1, "minimum unique recipients")
	_ = buildCmd.MarkFlagRequired("in")
	return buildCmd
}

type proofOutput struct {
	Root    string   `json:"root"`
	Address string   `json:"address"`
	Proof   []string `json:"proof"`
}

func newProofCmd(opts *rootOptions) *cobra.Command {
	var in, address string

	proofCmd := &cobra.Command{
		Use:   "proof",
		Short: "Print the inclusion proof of one recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := readAddresses(in)
			if err != nil {
				return err
			}
			c, err := services.NewCommitmentService(1).Build(addresses)
			if err != nil {
				return err
			}
			proof, err := c.Proof(address)
			if err != nil {
				return fmt.Errorf("%s: %w", address, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(proofOutput{Root: c.Root(), Address: address, Proof: proof})
		},
	}
	proofCmd.Flags().StringVarP(&in, "in", "i", "", "recipient list (.txt, .json export, or - for stdin)")
	proofCmd.Flags().StringVarP(&address, "address", "a", "", "recipient address")
	_ = proofCmd.MarkFlagRequired("in")
	_ = proofCmd.MarkFlagRequired("address")
	return proofCmd
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	var root, address, proof string

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an inclusion proof against a root",
		RunE: func(cmd *cobra.Command, args []string) error {
			var nodes []string
			for _, p := range strings.Split(proof, ",") {
				if p = strings.TrimSpace(p); p != "" {
					nodes = append(nodes, p)
				}
			}
			ok, err := services.VerifyAddressProof(root, address, nodes)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("proof for %s does not match root %s", address, root)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
	verifyCmd.Flags().StringVarP(&root, "root", "r", "", "0x hex Merkle root")
	verifyCmd.Flags().StringVarP(&address, "address", "a", "", "recipient address")
	verifyCmd.Flags().StringVarP(&proof, "proof", "p", "", "comma separated 0x hex proof nodes")
	_ = verifyCmd.MarkFlagRequired("root")
	_ = verifyCmd.MarkFlagRequired("address")
	return verifyCmd
}
