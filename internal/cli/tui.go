package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ipdash/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Long:  `Launch the full-screen dashboard: best IP, results, logs and the config editor.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		view := tui.NewProgramView()
		ctrl, err := appInstance.NewController(view)
		if err != nil {
			return fmt.Errorf("failed to initialize dashboard: %w", err)
		}
		defer ctrl.Close()

		deps := tui.Deps{
			Controller: ctrl,
			History:    appInstance.Storage,
			Settings:   appInstance,
			Config:     appInstance.Config,
		}

		p := tui.NewProgram(deps, view)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
