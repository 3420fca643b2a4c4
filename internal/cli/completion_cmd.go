package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// completionScripts maps a shell name to its script generator.
var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func completionShells() []string {
	shells := make([]string, 0, len(completionScripts))
	for s := range completionScripts {
		shells = append(shells, s)
	}
	sort.Strings(shells)
	return shells
}

var completionCmd = &cobra.Command{
	Use:   "completion <" + strings.Join(completionShells(), "|") + ">",
	Short: "Generate shell completion script",
	Long: `Print a completion script for ipdash. Setting keys and choice values
complete too, e.g. "ipdash settings set config_mode <tab>".

  bash:  source <(ipdash completion bash)
  zsh:   ipdash completion zsh > "${fpath[1]}/_ipdash"
  fish:  ipdash completion fish > ~/.config/fish/completions/ipdash.fish
  pwsh:  ipdash completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	Annotations:           map[string]string{skipApp: ""},
	ValidArgs:             completionShells(),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionScripts[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
