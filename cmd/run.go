package cmd

import (
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/app"
	"github.com/phantom040901/devpath-cli/internal/identity"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/spf13/cobra"
)

// runApp opens the store and launches the TUI.
func runApp(cmd *cobra.Command) error {
	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return app.Run(app.Options{
		Store:  st,
		UserID: identity.UserID(),
	})
}
