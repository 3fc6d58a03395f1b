package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/parts_viewer/pkg/updater"
	"github.com/Dicklesworthstone/parts_viewer/pkg/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pv %s\n", version.Version)
		if !versionCheck {
			return nil
		}

		rel, newer, err := updater.NewChecker().Check(cmd.Context())
		if err != nil {
			return fmt.Errorf("update check failed: %w", err)
		}
		if newer {
			fmt.Fprintf(out, "Update available: %s %s\n", rel.TagName, rel.HTMLURL)
		} else {
			fmt.Fprintln(out, "Up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check GitHub for a newer release")
}
