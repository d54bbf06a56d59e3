package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"copy-trade-bot-go/internal/balance"

	"github.com/spf13/cobra"
)

func newCycleCmd(opts *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run decision cycles immediately and print the log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			eng, err := a.newEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for i := 0; i < count; i++ {
				res, err := eng.RunCycle(ctx)
				if err != nil {
					return err
				}
				if res.Skipped {
					return fmt.Errorf("no followed traders")
				}
				if err := enc.Encode(res.Entry); err != nil {
					return err
				}
			}

			bal, err := eng.Balance(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "balance: %.2f\n", bal)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of cycles to run")
	return cmd
}

func newBalanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <address-or-private-key>",
		Short: "Fetch the on-chain balance for a wallet once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			address, err := balance.ResolveAddress(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			snap, err := balance.NewClient(&a.cfg.Chain, a.log).Fetch(ctx, address)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address: %s\n", snap.Address)
			fmt.Fprintf(out, "%s: %s\n", a.cfg.Chain.NativeSymbol, snap.Native.StringFixed(4))
			fmt.Fprintf(out, "USDC: %s\n", snap.Stable.StringFixed(2))
			return nil
		},
	}
}
