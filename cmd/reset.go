package cmd

import (
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear cached in-flight sessions",
	Long:  "Drops every saved session snapshot. Recorded attempts and imported definitions are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		if err := st.SessionCache().Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear session cache: %w", err)
		}
		fmt.Println("Session cache cleared.")
		return nil
	},
}
