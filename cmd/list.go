package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zjrosen/dispatch/internal/command"
	"github.com/zjrosen/dispatch/internal/registry"
)

var (
	listCategory string
	listTags     []string
	listSurface  string
	listJSON     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered commands",
	Long: `List the commands in the registry, optionally filtered by category,
tags or exposure surface.

Examples:
  dispatch list
  dispatch list --category todo --tag read
  dispatch list --surface mcp --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context()) //nolint:errcheck

		defs := a.reg.List(registry.Filter{
			Category: listCategory,
			Tags:     listTags,
			Surface:  command.Surface(listSurface),
		})

		if listJSON {
			return printListJSON(cmd, defs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCATEGORY\tFLAGS\tDESCRIPTION")
		for _, def := range defs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				def.Name(), def.Category(), defFlags(def), def.Description())
		}
		return w.Flush()
	},
}

func printListJSON(cmd *cobra.Command, defs []*command.Definition) error {
	type entry struct {
		Name        string   `json:"name"`
		Category    string   `json:"category,omitempty"`
		Tags        []string `json:"tags,omitempty"`
		Description string   `json:"description"`
		Mutation    bool     `json:"mutation"`
		Destructive bool     `json:"destructive"`
	}
	entries := make([]entry, 0, len(defs))
	for _, def := range defs {
		entries = append(entries, entry{
			Name:        def.Name(),
			Category:    def.Category(),
			Tags:        def.Tags(),
			Description: def.Description(),
			Mutation:    def.Mutation(),
			Destructive: def.Destructive(),
		})
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func defFlags(def *command.Definition) string {
	switch {
	case def.Destructive():
		return "destructive"
	case def.Mutation():
		return "mutation"
	default:
		return "read"
	}
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", "", "filter by category")
	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "filter by tag (repeatable, all must match)")
	listCmd.Flags().StringVar(&listSurface, "surface", "", "filter by exposure surface (cli, mcp, agent, palette)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "emit JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
