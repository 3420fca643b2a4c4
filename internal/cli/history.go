package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show best IP changes seen by this client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		history, err := appInstance.Storage.BestIPHistory(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(history) == 0 {
			fmt.Fprintln(out, "No best IP recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tIP\tOBSERVED")
		fmt.Fprintln(w, "--\t--\t--------")
		for _, h := range history {
			fmt.Fprintf(w, "%d\t%s\t%s\n", h.ID, h.IP, h.ObservedAt.Local().Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries")
	rootCmd.AddCommand(historyCmd)
}
