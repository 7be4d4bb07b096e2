package main

import (
	"fmt"
	"strings"

	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/cache"
	"compliance-assistant-be/pkg/rag/history"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a compliance question",
	Long: `Send one question to the simple or full pipeline. Answers are cached
and recorded in the local history, so repeated questions are served offline.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var queryMode string

func init() {
	queryCmd.Flags().StringVarP(&queryMode, "mode", "m", string(rag.ModeSimple), "simple or full")
}

func runQuery(cmd *cobra.Command, args []string) error {
	mode := rag.QueryMode(queryMode)
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", queryMode)
	}

	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	c := newClient()
	orch := orchestrator.New(
		c,
		orchestrator.ClientStreamer{Client: c},
		cache.New(store, log, cache.WithTTL(cfg.Rag.CacheTTL)),
		history.New(ctx, store, userID, cfg.Rag.HistoryLimit, log),
		orchestrator.WithLogger(log),
		orchestrator.WithRetryPolicy(orchestrator.RetryPolicy{MaxRetries: cfg.Rag.MaxRetries, BaseDelay: cfg.Rag.RetryBaseDelay}),
	)

	color.Cyan("→ %s query: %s", mode, strings.Join(args, " "))
	result, err := orch.Submit(ctx, strings.Join(args, " "), userID, mode)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(r *rag.Result) {
	switch r.Status {
	case rag.StatusCompleted:
		color.Green("✓ %d documents found", r.DocumentsFound)
	case rag.StatusNoResults:
		color.Yellow("! no documents found")
	default:
		color.Red("✗ status %s", r.Status)
	}
	if len(r.SearchQueriesUsed) > 0 {
		color.HiBlack("  searched: %s", strings.Join(r.SearchQueriesUsed, " | "))
	}
	fmt.Println()
	fmt.Println(r.Summary)
}
