package cmd

import (
	"fmt"

	"github.com/phantom040901/devpath-cli/internal/identity"
	"github.com/phantom040901/devpath-cli/internal/store"
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print recorded attempts for the current user",
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

		userID := identity.UserID()
		recs, err := st.Attempts().ListByUser(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		if len(recs) == 0 {
			fmt.Printf("No attempts recorded for %s.\n", userID)
			return nil
		}

		for _, r := range recs {
			outcome := fmt.Sprintf("%.0f", r.Score)
			if r.Label != "" {
				outcome = string(r.Label)
			}
			fmt.Printf("%s  %s/%s  attempt %d  %s  %d/%d correct\n",
				r.SubmittedAt.Local().Format("2006-01-02 15:04"),
				r.Collection, r.SubjectID, r.Attempt, outcome, r.Correct, r.Total)
		}
		return nil
	},
}
