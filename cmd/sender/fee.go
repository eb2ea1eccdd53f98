// cmd/sender/fee.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/solana-sender/internal/fee"
)

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Print the priority fee the configured strategy would use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		defer a.log.TrackPerformance("fee")()

		opts := a.cfg.Sender.FeeOptions()
		provider, err := fee.New(opts, a.client, a.log.WithComponent("fee"))
		if err != nil {
			return err
		}
		microLamports, err := provider.PriorityFee(cmd.Context())
		if err != nil {
			return err
		}

		strategy := opts.Strategy
		if strategy == fee.StrategyNone {
			strategy = "static"
		}
		fmt.Fprintf(os.Stdout, "%d micro-lamports/CU (%s)\n", microLamports, strategy)
		return nil
	},
}
