package main

import (
	"context"
	"os/signal"
	"syscall"

	"copy-trade-bot-go/internal/api"
	"copy-trade-bot-go/internal/balance"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var armOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the copy engine, the balance poller and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context(), armOnStart)
		},
	}
	cmd.Flags().BoolVar(&armOnStart, "arm", false, "arm the engine as soon as it starts")
	return cmd
}

func (a *app) serve(parent context.Context, armOnStart bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := a.newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	fetcher := balance.NewClient(&a.cfg.Chain, a.log)
	wallet := balance.NewPoller(fetcher, a.cfg.Chain.PollInterval, a.cfg.Chain.NativeSymbol, a.log)
	server := api.NewServer(a.cfg.Server, eng, wallet, a.log)

	if armOnStart {
		if err := eng.Arm(ctx); err != nil {
			a.log.Warn("Could not arm engine on start", zap.Error(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx) })
	g.Go(func() error { return wallet.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	err = g.Wait()
	a.log.Info("Bot has been shut down.")
	return err
}
