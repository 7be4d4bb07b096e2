package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the research backend is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := newClient().HealthCheck(cmd.Context())
		if err != nil {
			return err
		}
		color.Green("✓ %s is %s (%s)", h.Service, h.Status, backendURL)
		return nil
	},
}
