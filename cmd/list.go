package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/harness/internal/registry"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the demo fixtures",
	Long: `List the demo fixtures that serve and the browser environment can open,
with the harness types that drive each one.

Examples:
  harness list                    # Table
  harness list -o json            # JSON
  harness list -o yaml            # YAML`,
	RunE: runList,
}

var listFlags *StandardFlags

func init() {
	rootCmd.AddCommand(listCmd)

	listFlags = AddStandardFlags(listCmd, "output")
	AddFlagValidation(listCmd, "output", func(format string) error {
		return ValidateFormatWithSuggestion(format, []string{"table", "json", "yaml"})
	})
}

type fixtureEntry struct {
	Name        string   `json:"name" yaml:"name"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Harnesses   []string `json:"harnesses" yaml:"harnesses"`
}

func fixtureEntries(reg *registry.FixtureRegistry) []fixtureEntry {
	title := cases.Title(language.English)
	all := reg.GetAll()
	entries := make([]fixtureEntry, len(all))
	for i, f := range all {
		entries[i] = fixtureEntry{
			Name:        f.Name,
			Title:       title.String(f.Name),
			Description: f.Description,
			Harnesses:   f.Harnesses,
		}
	}
	return entries
}

func runList(cmd *cobra.Command, args []string) error {
	if err := listFlags.ValidateFlags(); err != nil {
		return err
	}
	entries := fixtureEntries(registry.Builtin())
	if listFlags.Quiet {
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e.Name)
		}
		return nil
	}
	return writeFixtures(cmd.OutOrStdout(), entries, listFlags.OutputFormat, listFlags.Verbose)
}

func writeFixtures(w io.Writer, entries []fixtureEntry, format string, verbose bool) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(entries)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if verbose {
			fmt.Fprintln(tw, "NAME\tTITLE\tHARNESSES\tDESCRIPTION")
		} else {
			fmt.Fprintln(tw, "NAME\tTITLE\tHARNESSES")
		}
		for _, e := range entries {
			if verbose {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, e.Title, strings.Join(e.Harnesses, ", "), e.Description)
			} else {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, e.Title, strings.Join(e.Harnesses, ", "))
			}
		}
		return tw.Flush()
	default:
		return ValidateFormatWithSuggestion(format, []string{"table", "json", "yaml"})
	}
}
