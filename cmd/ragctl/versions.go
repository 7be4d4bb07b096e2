package main

import (
	"fmt"
	"os"

	"compliance-assistant-be/pkg/canvas"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "Inspect and edit the local compliance canvas",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCanvas(cmd, func(vs *canvas.VersionStore) error {
			current, _ := vs.CurrentVersion()
			for _, v := range vs.Versions() {
				marker := " "
				if v.ID == current.ID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  %s\n", marker, v.ID, v.Timestamp.Format("2006-01-02 15:04"), v.Label)
			}
			return nil
		})
	},
}

var addVersionCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add a version from a markdown file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return withCanvas(cmd, func(vs *canvas.VersionStore) error {
			v := vs.AddVersion(cmd.Context(), string(content), versionLabel)
			color.Green("✓ added %s", v.ID)
			return nil
		})
	},
}

var showVersionCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a version, the current one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCanvas(cmd, func(vs *canvas.VersionStore) error {
			var (
				v  canvas.Version
				ok bool
			)
			if len(args) == 1 {
				v, ok = vs.Version(args[0])
			} else {
				v, ok = vs.CurrentVersion()
			}
			if !ok {
				return fmt.Errorf("version not found")
			}
			color.Cyan("%s  %s", v.Label, v.Timestamp.Format("2006-01-02 15:04"))
			for _, b := range canvas.ParseBlocks(v.Content) {
				fmt.Printf("%-10s %s\n", b.Type, b.Text)
			}
			return nil
		})
	},
}

var useVersionCmd = &cobra.Command{
	Use:   "use [id]",
	Short: "Make a version current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCanvas(cmd, func(vs *canvas.VersionStore) error {
			if !vs.Exists(args[0]) {
				return fmt.Errorf("version %s not found", args[0])
			}
			vs.SetCurrentVersion(cmd.Context(), args[0])
			color.Green("✓ current version is %s", args[0])
			return nil
		})
	},
}

var deleteVersionCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCanvas(cmd, func(vs *canvas.VersionStore) error {
			if !vs.Exists(args[0]) {
				return fmt.Errorf("version %s not found", args[0])
			}
			vs.DeleteVersion(cmd.Context(), args[0])
			color.Green("✓ deleted %s", args[0])
			return nil
		})
	},
}

var versionLabel string

func init() {
	addVersionCmd.Flags().StringVarP(&versionLabel, "label", "l", "", "Version label")
	versionsCmd.AddCommand(addVersionCmd, showVersionCmd, useVersionCmd, deleteVersionCmd)
}

func withCanvas(cmd *cobra.Command, fn func(*canvas.VersionStore) error) error {
	store, err := openState()
	if err != nil {
		return err
	}
	defer store.Close()

	vs := canvas.NewVersionStore(cmd.Context(), canvas.NewKVPersister(store, userID), canvas.WithLogger(log))
	return fn(vs)
}
