package main

import (
	"fmt"
	"strings"

	"compliance-assistant-be/pkg/rag"
	"compliance-assistant-be/pkg/rag/deepsearch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var deepSearchCmd = &cobra.Command{
	Use:   "deep-search [question]",
	Short: "Run a deep search and list related documents and insights",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeepSearch,
}

var maxDocuments int

func init() {
	deepSearchCmd.Flags().IntVarP(&maxDocuments, "max", "n", 10, "Maximum documents to search")
}

func runDeepSearch(cmd *cobra.Command, args []string) error {
	orch := deepsearch.NewOrchestrator(newClient(), nil, log)
	result, err := orch.Run(cmd.Context(), rag.DeepSearchRequest{
		Query:        strings.Join(args, " "),
		UserID:       userID,
		MaxDocuments: maxDocuments,
	})
	if err != nil {
		return err
	}

	color.Green("✓ %d documents searched in %.1fs", result.DocumentsSearched, result.ProcessingTime)
	fmt.Println()
	fmt.Println(result.EnhancedSummary)

	if len(result.RelatedDocuments) > 0 {
		color.Cyan("\nRelated documents")
		for _, d := range result.RelatedDocuments {
			fmt.Printf("  %.2f  %s  %s\n", d.RelevanceScore, d.Reference, d.Title)
		}
	}
	if len(result.KeyInsights) > 0 {
		color.Cyan("\nKey insights")
		for _, in := range result.KeyInsights {
			fmt.Printf("  • %s\n", in)
		}
	}
	if len(result.CrossReferences) > 0 {
		color.Cyan("\nCross references")
		fmt.Printf("  %s\n", strings.Join(result.CrossReferences, ", "))
	}
	return nil
}
