package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and update the server configuration",
	Long:  "Fetch, save and edit the optimizer's configuration text. The text is sent back byte for byte.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the server config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		client := appInstance.Client

		var (
			text string
			err  error
		)
		if asJSON {
			text, err = client.ConfigJSON(cmd.Context())
		} else {
			text, err = client.Config(cmd.Context())
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, text)
		if asJSON {
			fmt.Fprintln(out)
		}
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save <file|->",
	Short: "Upload a config file as-is",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		res, err := appInstance.Client.SaveConfig(cmd.Context(), string(data))
		if err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the server config in $EDITOR",
	Long: `Download the config into a temporary file, open it in $EDITOR and upload
it when the editor exits. Nothing is uploaded if the file is unchanged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		original, err := appInstance.Client.Config(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		f, err := os.CreateTemp("", "ipdash-config-*.txt")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		path := f.Name()
		defer os.Remove(path)

		if _, err := f.WriteString(original); err != nil {
			f.Close()
			return fmt.Errorf("failed to write temp file: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		if err := runEditor(cmd, path); err != nil {
			return err
		}

		edited, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read edited config: %w", err)
		}
		if bytes.Equal(edited, []byte(original)) {
			fmt.Fprintln(cmd.OutOrStdout(), "No changes.")
			return nil
		}

		res, err := appInstance.Client.SaveConfig(ctx, string(edited))
		if err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

func runEditor(cmd *cobra.Command, path string) error {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}
	c := exec.CommandContext(cmd.Context(), "sh", "-c", editor+` "$1"`, "editor", path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}
	return nil
}

func init() {
	configShowCmd.Flags().Bool("json", false, "pretty-print the JSON form (read-only)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}
