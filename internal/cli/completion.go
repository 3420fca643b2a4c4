package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"ipdash/internal/config"
)

// completeSettingKeys completes the key for `settings get/set`, and the value
// of choice settings for `settings set`. It needs no app instance.
func completeSettingKeys(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		var completions []string
		for _, def := range config.Defs {
			if strings.HasPrefix(def.Key, strings.ToLower(toComplete)) {
				completions = append(completions, def.Key+"\t"+def.Description)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp

	case 1:
		if cmd.Name() != "set" {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		def, ok := config.Def(args[0])
		if !ok || def.Kind != config.SettingChoice {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []string
		for _, c := range def.Choices {
			if strings.HasPrefix(c, toComplete) {
				completions = append(completions, c)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
