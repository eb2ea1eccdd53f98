// cmd/sender/balance.go
package main

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/solana-sender/internal/blockchain/solbc/transaction"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show an account balance; defaults to the configured wallet",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()
		defer a.log.TrackPerformance("balance")()

		var account solana.PublicKey
		if len(args) == 1 {
			account, err = solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("invalid address: %w", err)
			}
		} else {
			w, err := a.wallet()
			if err != nil {
				return err
			}
			account = w.PublicKey
		}

		lamports, err := a.client.GetBalance(cmd.Context(), account, rpc.CommitmentType(a.cfg.Sender.Commitment))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "%s: %s SOL\n", account, transaction.LamportsToSOL(lamports))
		if lamports <= a.cfg.Sender.MinBalanceLamports {
			fmt.Fprintf(os.Stdout, "below the %s SOL minimum required to send\n", transaction.LamportsToSOL(a.cfg.Sender.MinBalanceLamports))
		}
		return nil
	},
}
