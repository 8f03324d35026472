// Command libra runs the library lending service.
//
//	libra serve     HTTP API, outbox relay and overdue sweeper
//	libra migrate   apply database migrations and exit
//	libra consume   audit consumer of lending events
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/config"
	"github.com/D191001/libra/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:           "libra",
		Short:         "Library lending service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), consumeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "libra:", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and builds the process logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
