package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/ledgerscope/internal/aml"
	"github.com/Veraticus/ledgerscope/internal/analysis"
	"github.com/Veraticus/ledgerscope/internal/cli"
)

type analysisCommand struct {
	use      string
	analysis string
	short    string
	title    string
}

var analysisCommands = []analysisCommand{
	{use: "balances", analysis: analysis.AnalysisBalances, short: "Running balance after every transaction", title: "Running Balances"},
	{use: "ranks", analysis: analysis.AnalysisRanks, short: "Rank accounts by balance within each branch", title: "Balance Ranks"},
	{use: "outliers", analysis: analysis.AnalysisOutliers, short: "Transactions in the top percentile of their account type", title: "Transaction Outliers"},
	{use: "medians", analysis: analysis.AnalysisMedians, short: "Median transaction amount per account type", title: "Median Transaction by Account Type"},
	{use: "monthly", analysis: analysis.AnalysisMonthly, short: "Monthly deposit totals per account", title: "Monthly Deposits"},
	{use: "rolling", analysis: analysis.AnalysisRolling, short: "Rolling average of monthly deposits", title: "Rolling Deposits"},
	{use: "growth", analysis: analysis.AnalysisGrowth, short: "Month over month deposit growth", title: "Month over Month Growth"},
	{use: "spikes", analysis: analysis.AnalysisSpikes, short: "Transactions far above the account's recent average", title: "Spending Spikes"},
	{use: "volatility", analysis: analysis.AnalysisVolatility, short: "Rank accounts by daily net flow volatility", title: "Account Volatility"},
	{use: "loans", analysis: analysis.AnalysisLoans, short: "Bucket loans by principal", title: "Loan Buckets"},
	{use: "gaps", analysis: analysis.AnalysisGaps, short: "Months without transactions per account", title: "Inactive Months"},
	{use: "dormant", analysis: analysis.AnalysisDormant, short: "Accounts without recent transactions", title: "Dormant Accounts"},
	{use: "fees", analysis: analysis.AnalysisFees, short: "Running fee totals per account", title: "Fee Totals"},
}

func analysisCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(analysisCommands))
	for _, ac := range analysisCommands {
		cmd := &cobra.Command{
			Use:   ac.use,
			Short: ac.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runAnalysis(cmd, ac.analysis, ac.title)
			},
		}
		addFilterFlags(cmd)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func runAnalysis(cmd *cobra.Command, name, title string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	results, err := s.service.Run(cmd.Context(), s.filter, name)
	if err != nil {
		return err
	}
	return printResult(s.printer, title, results[0])
}

func printResult(p *cli.Printer, title string, res *analysis.Result) error {
	t, err := tableFor(title, res.Rows)
	if err != nil {
		return err
	}
	return p.Print(t, res.Rows)
}

func amlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aml",
		Short: "Flag accounts with rapid same-day inbound and outbound transfers",
		Long: `Correlate each account's inbound and outbound transfers per day and flag
days with many transfers on both sides for nearly equal totals.

Thresholds come from analysis.aml in the config file.`,
		Args: cobra.NoArgs,
		RunE: runAML,
	}
	addFilterFlags(cmd)
	cmd.Flags().Bool("all", false, "Show every account day, not only flagged ones")
	return cmd
}

func runAML(cmd *cobra.Command, _ []string) error {
	showAll, _ := cmd.Flags().GetBool("all")

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	results, err := s.service.Run(cmd.Context(), s.filter, analysis.AnalysisAML)
	if err != nil {
		return err
	}

	res := results[0]
	signals, _ := res.Rows.([]aml.RiskSignal)
	flagged := aml.Flagged(signals)
	if !showAll {
		res.Rows = flagged
	}
	if err := printResult(s.printer, "Rapid In/Out Transfers", res); err != nil {
		return err
	}

	s.printer.Message(cli.FormatInfo(fmt.Sprintf("%d of %d account days flagged", len(flagged), len(signals))))
	return nil
}
