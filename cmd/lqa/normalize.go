package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/lqa/internal/output"
	"github.com/jackzampolin/lqa/internal/report"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <report.json>",
	Short: "Re-tier a stored report from its own issues",
	Long: `Decode an analyzer report, derive its quality tier from the issues it lists
and cap each dimension score by the worst issue touching it.

The report may be raw model output: markdown fences and surrounding prose
are stripped before decoding. Use -o json to emit the normalized report.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := readReport(args[0])
		if err != nil {
			return err
		}
		return output.WriteTo(cmd.OutOrStdout(), output.GetFormat(), output.ReportView{
			Report:   report.Normalize(original),
			Original: string(original.Overall.QualityLevel),
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <report.json>",
	Short: "Check a report against the analyzer output schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := readReport(args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", color.New(color.FgRed).Sprint("invalid"), err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %d issues)\n",
			color.New(color.FgGreen).Sprint("ok"), args[0], r.Overall.QualityLevel, len(r.Issues))
		return nil
	},
}

func readReport(path string) (*report.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	r, err := report.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
