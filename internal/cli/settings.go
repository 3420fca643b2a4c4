package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ipdash/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persisted client settings",
	Long: `Settings stored in the local database override the config file.
Flags such as --server still win over stored settings.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, err := appInstance.Storage.ListSettings(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list settings: %w", err)
		}
		updated := make(map[string]time.Time, len(stored))
		for _, s := range stored {
			updated[s.Key] = s.UpdatedAt
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSTORED")
		fmt.Fprintln(w, "---\t-----\t------")
		for _, def := range config.Defs {
			v, _ := appInstance.Config.Get(def.Key)
			at := "-"
			if t, ok := updated[def.Key]; ok {
				at = t.Local().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", def.Key, v, at)
		}
		return w.Flush()
	},
}

var settingsGetCmd = &cobra.Command{
	Use:               "get <key>",
	Short:             "Print one effective setting",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeSettingKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := appInstance.Config.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:               "set <key> <value>",
	Short:             "Validate and store a setting",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeSettingKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.SetSetting(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		v, _ := appInstance.Config.Get(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], v)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
