package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ipdash/internal/dashboard"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an optimization test on the server",
	Long: `Ask the server to start a new test run and print its reply.

With --wait the command waits refresh_delay and then prints the best IP.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")
		ctx := cmd.Context()

		view := dashboard.NewSnapshot()
		ctrl, err := appInstance.NewController(view)
		if err != nil {
			return err
		}
		defer ctrl.Close()

		res, err := ctrl.RunTest(ctx)
		if err != nil {
			return fmt.Errorf("run test failed: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Message)
		if !wait {
			return nil
		}

		delay := ctrl.Options().RefreshDelay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		u, _ := ctrl.RefreshPanel(ctx, dashboard.PanelBestIP)
		fmt.Fprint(out, "Best IP: ")
		printUpdate(out, u, 0)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolP("wait", "w", false, "wait refresh_delay, then print the best IP")
	rootCmd.AddCommand(runCmd)
}
