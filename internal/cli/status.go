package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ipdash/internal/dashboard"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch every panel once and print it",
	Long: `Fetch the best IP, results, logs and config once and print them.

Failed panels are marked ERROR. The command fails only when every panel failed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, _ := cmd.Flags().GetInt("tail")
		view := dashboard.NewSnapshot()
		ctrl, err := appInstance.NewController(view)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		ctrl.RefreshAll(cmd.Context())

		out := cmd.OutOrStdout()
		failed := 0
		for i, p := range dashboard.Panels {
			u, ok := view.Panel(p)
			if !ok {
				continue
			}
			if u.Err != nil {
				failed++
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "== %s ==\n", panelTitle(p))
			printUpdate(out, u, tail)
		}
		if failed == len(dashboard.Panels) {
			return errors.New("all panels failed")
		}
		return nil
	},
}

// panelCmd builds a one-shot command that fetches and prints a single panel.
func panelCmd(use, short string, p dashboard.Panel) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tail := 0
			if f := cmd.Flags().Lookup("tail"); f != nil {
				tail, _ = cmd.Flags().GetInt("tail")
			}
			u, err := fetchPanel(cmd.Context(), p)
			if err != nil {
				return err
			}
			printUpdate(cmd.OutOrStdout(), u, tail)
			if u.Err != nil {
				return fmt.Errorf("failed to load %s", p)
			}
			return nil
		},
	}
}

func fetchPanel(ctx context.Context, p dashboard.Panel) (dashboard.Update, error) {
	view := dashboard.NewSnapshot()
	ctrl, err := appInstance.NewController(view)
	if err != nil {
		return dashboard.Update{}, err
	}
	defer ctrl.Close()

	u, _ := ctrl.RefreshPanel(ctx, p)
	return u, nil
}

var (
	bestCmd    = panelCmd("best", "Print the current best IP", dashboard.PanelBestIP)
	resultsCmd = panelCmd("results", "Print the latest test results", dashboard.PanelResults)
	logsCmd    = panelCmd("logs", "Print the server log", dashboard.PanelLogs)
)

func init() {
	statusCmd.Flags().Int("tail", 20, "log lines to show (0 for all)")
	logsCmd.Flags().IntP("tail", "n", 0, "show only the last N lines")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(bestCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(logsCmd)
}
