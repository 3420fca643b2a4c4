package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ipdash/internal/latency"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Measure how quickly the server answers",
	Long: `Probe the read-only API endpoints and report their latency.

Default strategy is HTTP (a full GET per endpoint). Use --strategy tcp for a
plain handshake with the server's host and port. run_test is never probed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategyName, _ := cmd.Flags().GetString("strategy")
		workers, _ := cmd.Flags().GetInt64("workers")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if !cmd.Flags().Changed("timeout") {
			timeout = appInstance.Config.RequestTimeout.D()
		}

		strategy, err := latency.NewStrategy(strategyName, appInstance.Client)
		if err != nil {
			return err
		}
		targets, err := latency.Targets(appInstance.Client)
		if err != nil {
			return err
		}

		tester := latency.NewTester(latency.TesterConfig{
			Workers:  workers,
			Timeout:  timeout,
			Strategy: strategy,
			Logger:   appInstance.Logger,
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Probing %s (%s)...\n\n", appInstance.Client.BaseURL(), strategy.Name())
		batch := tester.TestBatch(cmd.Context(), targets, nil)
		if err := printProbe(out, batch); err != nil {
			return err
		}
		if batch.Succeeded == 0 {
			return fmt.Errorf("server unreachable: %d of %d endpoints failed", batch.Failed, batch.Tested)
		}
		return nil
	},
}

func printProbe(out io.Writer, batch *latency.BatchResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tLATENCY\tSTATUS")
	fmt.Fprintln(w, "--------\t-------\t------")
	for _, r := range batch.Results {
		if r.Success {
			fmt.Fprintf(w, "%s\t%d ms\tOK\n", r.Target.Endpoint, r.LatencyMS)
		} else {
			fmt.Fprintf(w, "%s\tN/A\tFAIL: %s\n", r.Target.Endpoint, r.Error)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d tested, %d ok, %d failed in %s\n",
		batch.Tested, batch.Succeeded, batch.Failed, batch.Duration.Round(time.Millisecond))
	return nil
}

func init() {
	probeCmd.Flags().String("strategy", "http", "probe strategy (http, tcp)")
	probeCmd.Flags().Int64("workers", 4, "concurrent probes")
	probeCmd.Flags().Duration("timeout", 5*time.Second, "per-endpoint timeout (default: request_timeout setting)")
	probeCmd.RegisterFlagCompletionFunc("strategy", cobra.FixedCompletions(
		[]string{"http", "tcp"}, cobra.ShellCompDirectiveNoFileComp))
	rootCmd.AddCommand(probeCmd)
}
