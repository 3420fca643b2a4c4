package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ipdash/internal/app"
	"ipdash/internal/config"
)

var appInstance *app.App

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ipdash",
	Short: "Terminal dashboard for an IP optimization server",
	Long: `ipdash - terminal dashboard for an IP optimization server

  Watches the best IP, the latest test results, the server log and the
  server configuration, and lets you trigger a new test run.

  Quick start:
    ipdash --server http://127.0.0.1:6788 tui
    ipdash status
    ipdash run --wait
    ipdash config edit`,
	Version:           app.Version,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if appInstance != nil {
			return appInstance.Close()
		}
		return nil
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// skipApp marks commands that never touch the server or local state.
const skipApp = "ipdash/skip-app"

func initApp(cmd *cobra.Command, args []string) error {
	if _, ok := cmd.Annotations[skipApp]; ok {
		return nil
	}
	switch cmd.Name() {
	case "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return nil
	}
	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	appInstance, err = app.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

// appOptions maps persistent flags onto app options. Only flags the user
// set become overrides.
func appOptions(cmd *cobra.Command) (app.Options, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	dbPath, _ := flags.GetString("db")
	verbose, _ := flags.GetBool("verbose")

	overrides := make(map[string]string)
	for flag, key := range map[string]string{
		"server":    config.KeyServerURL,
		"interval":  config.KeyPollInterval,
		"log-level": config.KeyLogLevel,
	} {
		if flags.Changed(flag) {
			v, err := flags.GetString(flag)
			if err != nil {
				return app.Options{}, err
			}
			overrides[key] = v
		}
	}
	if verbose {
		overrides[config.KeyLogLevel] = "debug"
	}

	return app.Options{
		ConfigFile: configFile,
		DBPath:     dbPath,
		Overrides:  overrides,
		// The full-screen UI owns the terminal.
		Verbose: verbose && cmd != tuiCmd,
	}, nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default ~/.config/ipdash/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging, mirrored to stderr outside the TUI")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("db", "", "database path")
	rootCmd.PersistentFlags().StringP("server", "s", "", "server base URL")
	rootCmd.PersistentFlags().String("interval", "", "poll interval (e.g. 10s)")

	rootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipApp: ""},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ipdash %s\n", app.Version)
	},
}
