package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/D191001/libra/internal/logger"
	"github.com/D191001/libra/internal/queue"
)

func consumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Write consumed lending events to the audit log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			audit, err := logger.NewFileLogger(cfg.Log.ConsumerFile)
			if err != nil {
				return err
			}
			defer func() { _ = audit.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.MakeInfo(log, "lending consumer started")
			err = queue.StartLendingConsumer(ctx, cfg.RabbitURL, log, audit)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
