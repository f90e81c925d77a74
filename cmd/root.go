package cmd

import (
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "devpath",
	Short: "Timed career assessments in your terminal",
	Long:  "DevPath — terminal client for timed academic and technical assessments, with resumable sessions and a two-attempt limit per subject.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DEVPATH_DB env var)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then DEVPATH_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
