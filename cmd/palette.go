package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/direct"
	"github.com/zjrosen/dispatch/internal/log"
	"github.com/zjrosen/dispatch/internal/palette"
)

var paletteCmd = &cobra.Command{
	Use:   "palette",
	Short: "Browse and run commands interactively",
	Long: `Open a fuzzy-searchable command palette in the terminal. Commands
that take arguments prompt for a JSON object; destructive commands ask
for confirmation before running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Route logging through tea.LogToFile so stray prints never
		// corrupt the alternate screen.
		if cfg.Log.File != "" {
			cleanup, err := log.InitWithTeaLog(cfg.Log.File, "dispatch")
			if err == nil {
				defer cleanup()
			}
		}

		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context()) //nolint:errcheck

		client := direct.NewClient(a.reg, direct.WithSurface(command.SurfacePalette))
		return palette.Run(a.reg, client, a.events)
	},
}

func init() {
	rootCmd.AddCommand(paletteCmd)
}
