package cmd

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/zjrosen/dispatch/internal/bootstrap"
)

var docsPlain bool

var docsCmd = &cobra.Command{
	Use:   "docs [command]",
	Short: "Render command documentation",
	Long: `Render the registry's generated documentation as styled markdown.
Pass a command name to document just that command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context()) //nolint:errcheck

		input := map[string]any{}
		if len(args) == 1 {
			input["command"] = args[0]
		}
		result := a.client.Call(cmd.Context(), "registry-docs", input)
		if !result.Success {
			return fmt.Errorf("generating docs: %s", result.Error.Message)
		}

		docs, ok := result.Data.(bootstrap.DocsOutput)
		if !ok {
			return fmt.Errorf("unexpected docs payload %T", result.Data)
		}
		if docs.CommandCount == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), result.Reasoning)
			return nil
		}

		if docsPlain {
			fmt.Fprintln(cmd.OutOrStdout(), docs.Markdown)
			return nil
		}

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("creating renderer: %w", err)
		}
		rendered, err := renderer.Render(docs.Markdown)
		if err != nil {
			return fmt.Errorf("rendering docs: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	docsCmd.Flags().BoolVar(&docsPlain, "plain", false, "print raw markdown without styling")
	rootCmd.AddCommand(docsCmd)
}
