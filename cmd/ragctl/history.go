package main

import (
	"fmt"

	"compliance-assistant-be/pkg/rag/cache"
	"compliance-assistant-be/pkg/rag/history"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent local queries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openState()
		if err != nil {
			return err
		}
		defer store.Close()

		h := history.New(cmd.Context(), store, userID, cfg.Rag.HistoryLimit, log)
		if clearHistory {
			h.Clear(cmd.Context())
			cache.New(store, log).Clear(cmd.Context())
			color.Green("✓ history and cache cleared")
			return nil
		}

		entries := h.List()
		if len(entries) == 0 {
			color.Yellow("no queries yet")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-16s  %-10s  %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.Mode, e.Result.Status, e.Query)
		}
		return nil
	},
}

var clearHistory bool

func init() {
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "Clear history and cached answers")
}
