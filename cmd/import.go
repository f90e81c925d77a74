package cmd

import (
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>...",
	Short: "Import assessment definitions from JSON files",
	Long:  "Validates each file against the definition schema and upserts its assessments. A file that fails validation is skipped whole.",
	Args:  cobra.MinimumNArgs(1),
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

		total := 0
		for _, path := range args {
			n, err := st.Definitions().ImportDefinitions(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}
			fmt.Printf("%s: %d definition(s)\n", path, n)
			total += n
		}
		fmt.Printf("Imported %d definition(s).\n", total)
		return nil
	},
}
