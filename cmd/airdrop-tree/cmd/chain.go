package cmd

import (
	"context"
	"fmt"
	"time"

	"airdrop-backend/internal/clients"
	"airdrop-backend/internal/services"
	"airdrop-backend/internal/utils"

	"github.com/spf13/cobra"
)

func newWindowCmd(opts *rootOptions) *cobra.Command {
	var rpcURL string
	var startOffset, endOffset int64

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "Derive a distribution window from the current chain head",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if rpcURL == "" {
				rpcURL = cfg.Blockchain.RPCEndpoint
			}
			if !cmd.Flags().Changed("start-offset") {
				startOffset = cfg.Airdrop.WindowStartOffset
			}
			if !cmd.Flags().Changed("end-offset") {
				endOffset = cfg.Airdrop.WindowEndOffset
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RPCTimeout()+5*time.Second)
			defer cancel()

			chain, err := clients.NewChainClient(ctx, rpcURL, cfg.RPCTimeout())
			if err != nil {
				return err
			}
			defer chain.Close()

			windows, err := services.NewWindowService(chain, startOffset, endOffset)
			if err != nil {
				return err
			}
			window, err := windows.DeriveWindow(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "startTimestamp: %s\nendTimestamp: %s\n", window.StartString(), window.EndString())
			return nil
		},
	}
	windowCmd.Flags().StringVar(&rpcURL, "rpc", "", "chain JSON-RPC endpoint (default from config)")
	windowCmd.Flags().Int64Var(&startOffset, "start-offset", 400, "seconds added to chain time for the start")
	windowCmd.Flags().Int64Var(&endOffset, "end-offset", 3000, "seconds added to chain time for the end")
	return windowCmd
}

func newAmountCmd(opts *rootOptions) *cobra.Command {
	var decimals int32

	amountCmd := &cobra.Command{
		Use:   "amount <decimal>",
		Short: "Scale a decimal amount into the token's smallest unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("decimals") {
				decimals = opts.cfg.Airdrop.DefaultDecimals
			}
			scaled, err := utils.ToScaledInteger(args[0], decimals)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), scaled.String())
			return nil
		},
	}
	amountCmd.Flags().Int32VarP(&decimals, "decimals", "d", 18, "token decimals")
	return amountCmd
}
