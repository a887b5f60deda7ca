package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lqa/internal/config"
	"github.com/jackzampolin/lqa/internal/output"
	"github.com/jackzampolin/lqa/internal/prompts"
	"github.com/jackzampolin/lqa/internal/prompts/analysis"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the analyzer prompts",
	Long: `Show the prompts sent to analyzers.

Set prompts_dir in the config to override a prompt: a file named
<key>.tmpl in that directory replaces the embedded default. Use
"lqa prompts export <dir>" to start from the defaults.`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompts and where each one comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadPrompts()
		if err != nil {
			return err
		}
		all, err := r.ResolveAll()
		if err != nil {
			return err
		}
		return output.WriteTo(cmd.OutOrStdout(), output.GetFormat(), promptList(all))
	},
}

var promptsShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print the resolved text of one prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := loadPrompts()
		if err != nil {
			return err
		}
		p, err := r.Resolve(args[0])
		if err != nil {
			return err
		}
		if output.IsStructured() {
			return output.WriteTo(cmd.OutOrStdout(), output.GetFormat(), p)
		}
		fmt.Fprint(cmd.OutOrStdout(), p.Text)
		return nil
	},
}

var promptsExportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Write the embedded prompts as override templates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		r := analysis.NewResolver("", nil)
		for _, key := range r.Keys() {
			p, _ := r.GetEmbedded(key)
			path := filepath.Join(dir, key+".tmpl")
			if err := os.WriteFile(path, []byte(p.Text), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		}
		return nil
	},
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsShowCmd)
	promptsCmd.AddCommand(promptsExportCmd)
	rootCmd.AddCommand(promptsCmd)
}

func loadPrompts() (*prompts.Resolver, error) {
	mgr, err := config.NewManager(resolveConfigFile())
	if err != nil {
		return nil, err
	}
	return analysis.NewResolver(config.ResolveEnvVars(mgr.Get().PromptsDir), nil), nil
}

type promptList []*prompts.ResolvedPrompt

func (l promptList) Table() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Key", "Source", "Hash", "Variables"})
	for _, p := range l {
		source := "embedded"
		if p.IsOverride {
			source = p.Path
		}
		tbl.AppendRow(table.Row{p.Key, source, p.Hash[:12], strings.Join(p.Variables, ", ")})
	}
	return tbl.Render() + "\n"
}
