package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var describeCmd = &cobra.Command{
	Use:   "describe <command>",
	Short: "Show a command's full definition and input schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context()) //nolint:errcheck

		def, ok := a.reg.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown command %q, try 'dispatch list'", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:        %s\n", def.Name())
		fmt.Fprintf(out, "Description: %s\n", def.Description())
		if def.Category() != "" {
			fmt.Fprintf(out, "Category:    %s\n", def.Category())
		}
		if len(def.Tags()) > 0 {
			fmt.Fprintf(out, "Tags:        %s\n", strings.Join(def.Tags(), ", "))
		}
		fmt.Fprintf(out, "Version:     %s\n", def.Version())
		fmt.Fprintf(out, "Mutation:    %t\n", def.Mutation())
		if def.Destructive() {
			fmt.Fprintf(out, "Destructive: true (%s)\n", def.ConfirmPrompt())
		}
		if def.Undoable() {
			fmt.Fprintf(out, "Undo:        %s\n", def.UndoCommand())
		}
		if len(def.ErrorCodes()) > 0 {
			fmt.Fprintf(out, "Error codes: %s\n", strings.Join(def.ErrorCodes(), ", "))
		}

		schema, err := json.MarshalIndent(def.Schema().JSONSchema(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding schema: %w", err)
		}
		fmt.Fprintf(out, "\nInput schema:\n%s\n", schema)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
