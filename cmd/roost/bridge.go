package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/internal/console"
	"github.com/casualjim/roost/natsbridge"
	"github.com/casualjim/roost/pkg/natsx"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/spf13/cobra"
)

func (a *app) bridgeCmd() *cobra.Command {
	var taps []string
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Connect the configured agents to NATS and deliver messages until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sys, err := a.system(cmd)
			if err != nil {
				return err
			}
			nc, err := natsx.NewClient(a.cfg.NATS.URL)
			if err != nil {
				return err
			}
			defer nc.Drain() //nolint:errcheck

			b := natsbridge.New(broker.NATS(nc), sys.Protocol, natsbridge.WithSubjectPrefix(a.cfg.NATS.SubjectPrefix))
			defer b.Close()
			for _, r := range a.cfg.NATS.Remote {
				if err := b.Remote(r.ID, r.Capabilities...); err != nil {
					return err
				}
			}
			for _, id := range a.cfg.NATS.Serve {
				if err := b.Serve(ctx, id); err != nil {
					return err
				}
			}

			if len(taps) > 0 {
				if err := sys.Protocol.RegisterAgent(console.NewTap("console", cmd.OutOrStdout())); err != nil {
					return err
				}
				for _, topic := range taps {
					if _, err := sys.Protocol.Subscribe("console", topic, nil); err != nil {
						return err
					}
				}
			}

			if err := sys.Protocol.Start(a.cfg.Protocol.PumpInterval); err != nil {
				return err
			}
			slog.InfoContext(ctx, "bridge running",
				slog.String("url", nc.ConnectedUrlRedacted()),
				slog.Any("served", b.Served()))

			<-ctx.Done()
			if err := sys.Protocol.Stop(); err != nil {
				slog.Error("failed to stop message pump", slogx.Error(err))
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		},
	}
	cmd.Flags().StringSliceVar(&taps, "tap", nil, "topics to print to stdout")
	return cmd
}
