package main

import (
	"fmt"
	"strings"

	"compliance-assistant-be/pkg/rag"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var streamCmd = &cobra.Command{
	Use:   "stream [question]",
	Short: "Stream pipeline progress for one question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStream,
}

var streamMode string

func init() {
	streamCmd.Flags().StringVarP(&streamMode, "mode", "m", string(rag.ModeFull), "simple or full")
}

func runStream(cmd *cobra.Command, args []string) error {
	mode := rag.QueryMode(streamMode)
	if !mode.Valid() {
		return fmt.Errorf("unknown mode %q", streamMode)
	}
	query, err := rag.ValidateQuery(strings.Join(args, " "))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	finished := make(chan struct{})
	var streamErr error

	stream, err := newClient().StreamQuery(ctx, mode, query, userID,
		func(ev rag.StreamEvent) {
			printEvent(ev)
			if ev.IsTerminal() || ev.Status == rag.EventError {
				if ev.Status == rag.EventError {
					streamErr = fmt.Errorf("%s failed: %s", ev.Stage, ev.Message)
				}
				close(finished)
			}
		},
		func(err error) {
			color.Red("✗ %v", err)
		},
	)
	if err != nil {
		return err
	}
	defer stream.Close()

	select {
	case <-finished:
		return streamErr
	case <-stream.Done():
		return fmt.Errorf("stream closed before a summary arrived")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printEvent(ev rag.StreamEvent) {
	line := fmt.Sprintf("[%s] %s %s", ev.Stage, ev.Status, ev.Message)
	switch ev.Status {
	case rag.EventCompleted:
		color.Green(line)
	case rag.EventError:
		color.Red(line)
	default:
		color.Cyan(line)
	}
	if ev.Data == nil {
		return
	}
	for _, q := range ev.Data.Queries {
		color.HiBlack("    • %s", q)
	}
	if ev.IsTerminal() {
		fmt.Println()
		fmt.Println(ev.Data.Summary)
	}
}
