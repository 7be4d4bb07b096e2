package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"compliance-assistant-be/internal/config"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/pkg/kv"
	"compliance-assistant-be/pkg/rag/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg = config.Load()
	log logger.ILogger = logger.NewNopLogger()

	backendURL string
	userID     string
	statePath  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Talk to the legal research backend from a terminal",
	Long: `ragctl runs queries, streaming sessions and deep searches against the
research backend, and inspects the local query history and compliance canvas.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log = logger.NewZapLogger("logs/ragctl.log", false)
		} else {
			log = logger.NewNopLogger()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "url", cfg.Rag.BaseURL, "Research backend base URL")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "cli", "User id sent with queries")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", "data/ragctl", "Badger directory for local history and canvas")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stdout and logs/ragctl.log")

	rootCmd.AddCommand(healthCmd, queryCmd, streamCmd, deepSearchCmd, historyCmd, versionsCmd, eventsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("✗ %v", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(client.Options{
		BaseURL:           backendURL,
		SimpleTimeout:     cfg.Rag.SimpleTimeout,
		SummaryTimeout:    cfg.Rag.SummaryTimeout,
		DeepSearchTimeout: cfg.Rag.DeepSearchTimeout,
		HealthTimeout:     cfg.Rag.HealthTimeout,
		Logger:            log,
	})
}

// openState opens the local badger store. Callers close it.
func openState() (kv.Store, error) {
	s, err := kv.NewBadgerStore(statePath)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", statePath, err)
	}
	return s, nil
}
