package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/events"
	"github.com/Veraticus/spice-insights/internal/model"
	"github.com/Veraticus/spice-insights/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import transactions from OFX or QFX (Quicken) files exported from your bank.

Categories come from the import.rules keyword list in your config file:

  import:
    rules:
      - keyword: starbucks
        category: coffee

Examples:
  # Import a single file
  insights import ~/Downloads/chase_jan_2024.qfx

  # Import everything in a directory
  insights import ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	files, err := expandFiles(args)
	if err != nil {
		return err
	}

	var rules []ofx.CategoryRule
	if err := viper.UnmarshalKey("import.rules", &rules); err != nil {
		return fmt.Errorf("failed to decode import rules: %w", err)
	}
	parser := ofx.NewParser(rules...)

	slog.Info("Importing OFX files", "file_count", len(files), "dry_run", dryRun)

	transactions, err := parseFiles(ctx, parser, files, out)
	if err != nil {
		return err
	}
	if len(transactions) == 0 {
		_, err := fmt.Fprintln(out, cli.FormatWarning("No transactions found in any file"))
		return err
	}

	if dryRun {
		if _, err := fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions parsed, nothing saved", len(transactions)))); err != nil {
			return err
		}
		return printAccounts(ctx, parser, files, out)
	}

	return withApp(ctx, func(a *app) error {
		inserted, err := a.store.SaveTransactions(ctx, transactions)
		if err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
		if inserted > 0 {
			a.bus.Publish(events.Event{Type: events.DataChanged, Reason: "import"})
		}
		if _, err := fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d already present)",
			inserted, len(transactions)-inserted))); err != nil {
			return err
		}

		total, err := a.store.GetTransactionCount(ctx)
		if err != nil {
			return err
		}
		latest, err := a.store.GetLatestTransactionDate(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d transactions stored, newest from %s",
			total, latest.Format("2006-01-02"))))
		return err
	})
}

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

// parseFiles parses every file, dropping transactions already seen in an
// earlier file. Unreadable files are logged and skipped.
func parseFiles(ctx context.Context, parser *ofx.Parser, files []string, out io.Writer) ([]model.Transaction, error) {
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(out),
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
			if _, err := fmt.Fprintln(out); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	var transactions []model.Transaction
	seen := make(map[string]bool)

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parsed, err := parseFile(ctx, parser, path)
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
		}

		added := 0
		for _, txn := range parsed {
			if !seen[txn.Hash] {
				seen[txn.Hash] = true
				transactions = append(transactions, txn)
				added++
			}
		}
		slog.Debug("Processed file",
			"file", filepath.Base(path),
			"transactions_found", len(parsed),
			"added", added,
			"duplicates", len(parsed)-added)

		if err := bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
	return transactions, nil
}

func parseFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.ParseFile(ctx, f)
}

// printAccounts lists the accounts each file covers.
func printAccounts(ctx context.Context, parser *ofx.Parser, files []string, out io.Writer) error {
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		accounts, err := parser.GetAccounts(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Warn("Failed to read accounts", "file", path, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(out, "  %s: %s\n", filepath.Base(path), strings.Join(accounts, ", ")); err != nil {
			return err
		}
	}
	return nil
}
