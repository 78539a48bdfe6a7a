package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ledgerscope/internal/analysis"
	"github.com/Veraticus/ledgerscope/internal/cli"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run every analysis over one ledger snapshot",
		Long: `Load the ledger once and run the analyses concurrently, bounded by
analysis.workers. Use --only to pick a subset.

Examples:
  # Everything as of the end of 2023
  ledgerscope report --as-of 2023-12-31

  # Only AML and dormancy, as JSON
  ledgerscope report --only aml,dormant --format json`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}
	addFilterFlags(cmd)
	cmd.Flags().StringSlice("only", nil, fmt.Sprintf("Analyses to run (default all: %v)", analysis.Names()))
	return cmd
}

func titleOf(name string) string {
	for _, ac := range analysisCommands {
		if ac.analysis == name {
			return ac.title
		}
	}
	if name == analysis.AnalysisAML {
		return "Rapid In/Out Transfers"
	}
	return name
}

func runReport(cmd *cobra.Command, _ []string) error {
	names, _ := cmd.Flags().GetStringSlice("only")
	if len(names) == 0 {
		names = analysis.Names()
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	results, err := s.service.Run(cmd.Context(), s.filter, names...)
	if err != nil {
		return err
	}

	if viper.GetString("output.format") == cli.FormatJSON {
		report := make(map[string]json.RawMessage, len(results))
		for _, res := range results {
			raw, err := json.Marshal(res.Rows)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", res.Summary.Analysis, err)
			}
			report[res.Summary.Analysis] = raw
		}
		return s.printer.Print(cli.Table{}, report)
	}

	summary := cli.Table{
		Title:   "Report Summary",
		Headers: []string{"Analysis", "Rows", "Rejected Records", "Duration", "Run ID"},
	}
	for _, res := range results {
		if err := printResult(s.printer, titleOf(res.Summary.Analysis), res); err != nil {
			return err
		}
		summary.Rows = append(summary.Rows, []string{
			res.Summary.Analysis,
			strconv.Itoa(res.Summary.Rows),
			strconv.Itoa(res.Summary.Rejections),
			res.Summary.Duration.String(),
			res.Summary.RunID,
		})
	}
	return s.printer.Print(summary, nil)
}
