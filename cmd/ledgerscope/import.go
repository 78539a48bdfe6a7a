package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/ledgerscope/internal/cli"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import ledger records into the database",
	}
	cmd.AddCommand(importOFXCmd())
	return cmd
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Import accounts and transactions from OFX/QFX files",
		Long: `Import accounts and transactions from OFX or QFX (Quicken) files exported
from a bank. Re-importing a file is safe: records already stored are skipped.

Examples:
  # Import a single file
  ledgerscope import ofx ~/Downloads/checking_jan_2024.qfx

  # Import every QFX file in a directory
  ledgerscope import ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Parse files without saving")

	return cmd
}

// expandFiles resolves glob patterns, keeping literal paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found to import")
	}
	return files, nil
}

type importBatch struct {
	seenTransactions map[int64]bool
	seenAccounts     map[int64]bool
	accounts         []model.Account
	transactions     []model.Transaction
	duplicates       int
}

func newImportBatch() *importBatch {
	return &importBatch{
		seenTransactions: make(map[int64]bool),
		seenAccounts:     make(map[int64]bool),
	}
}

func (b *importBatch) add(stmts []ofx.Statement) {
	for _, s := range stmts {
		if !b.seenAccounts[s.Account.ID] {
			b.seenAccounts[s.Account.ID] = true
			b.accounts = append(b.accounts, s.Account)
		}
		for _, tx := range s.Transactions {
			if b.seenTransactions[tx.ID] {
				b.duplicates++
				continue
			}
			b.seenTransactions[tx.ID] = true
			b.transactions = append(b.transactions, tx)
		}
	}
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	slog.Info("Importing OFX files",
		"file_count", len(files),
		"dry_run", dryRun)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing statements...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(cmd.ErrOrStderr()); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	parser := ofx.NewParser()
	batch := newImportBatch()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			slog.Error("Failed to open file", "file", path, "error", err)
			_ = bar.Add(1)
			continue
		}
		stmts, err := parser.ParseStatements(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			_ = bar.Add(1)
			continue
		}

		batch.add(stmts)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if len(batch.transactions) == 0 {
		fmt.Fprintln(out, cli.FormatWarning("No transactions found in any file"))
		return nil
	}

	summary := fmt.Sprintf("%d accounts, %d transactions (%d duplicates skipped)",
		len(batch.accounts), len(batch.transactions), batch.duplicates)
	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo("Dry run: "+summary))
		return nil
	}

	store, _, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveLedger(ctx, model.Ledger{Accounts: batch.accounts, Transactions: batch.transactions}); err != nil {
		return fmt.Errorf("failed to save imported records: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Imported "+summary))
	return nil
}
