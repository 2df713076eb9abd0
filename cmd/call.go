package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var callYes bool

var callCmd = &cobra.Command{
	Use:   "call <command> [json-args]",
	Short: "Execute a command and print the result envelope",
	Long: `Execute a registered command through the full middleware pipeline
and print the result envelope as JSON. Arguments are passed as a single
JSON object; omit them for commands that take none.

Examples:
  dispatch call registry-help
  dispatch call todo-create '{"title": "Buy milk", "priority": "high"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context()) //nolint:errcheck

		if def, ok := a.reg.Get(args[0]); ok && def.Destructive() && !callYes {
			if !confirm(cmd, def.ConfirmPrompt()) {
				return fmt.Errorf("aborted")
			}
		}

		raw := json.RawMessage("{}")
		if len(args) == 2 {
			if !json.Valid([]byte(args[1])) {
				return fmt.Errorf("arguments must be valid JSON: %s", args[1])
			}
			raw = json.RawMessage(args[1])
		}

		result := a.client.CallRaw(cmd.Context(), args[0], raw)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		if !result.Success {
			code := "unknown"
			if result.Error != nil {
				code = result.Error.Code
			}
			return fmt.Errorf("command %q failed with code %s", args[0], code)
		}
		return nil
	},
}

func confirm(cmd *cobra.Command, prompt string) bool {
	if prompt == "" {
		prompt = "This action cannot be undone. Continue?"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	callCmd.Flags().BoolVarP(&callYes, "yes", "y", false, "skip the confirmation prompt on destructive commands")
	rootCmd.AddCommand(callCmd)
}
