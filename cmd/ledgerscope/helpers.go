package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/ledgerscope/internal/analysis"
	"github.com/Veraticus/ledgerscope/internal/cli"
	"github.com/Veraticus/ledgerscope/internal/common"
	"github.com/Veraticus/ledgerscope/internal/config"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/service"
	"github.com/Veraticus/ledgerscope/internal/storage"
)

const dateLayout = "2006-01-02"

// initStorage loads configuration, opens the configured database and brings
// its schema up to date.
func initStorage(ctx context.Context) (*storage.Store, *config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, &common.UserError{Err: err, UserMessage: "Configuration is invalid"}
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, storage.OpenOptions{})
	if err != nil {
		return nil, nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, cfg, nil
}

// parseAsOf turns a YYYY-MM-DD flag value into the last instant of that UTC
// day, so activity on the as-of date counts. Empty means now.
func parseAsOf(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return now.UTC(), nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as-of date %q: %w", value, err)
	}
	return d.AddDays(1).Time().Add(-time.Nanosecond), nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Slice("account", nil, "Only include these account ids")
	cmd.Flags().String("from", "", "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "End date (YYYY-MM-DD, inclusive)")
}

// ledgerFilter reads the flags registered by addFilterFlags.
func ledgerFilter(cmd *cobra.Command) (service.LedgerFilter, error) {
	var filter service.LedgerFilter

	ids, _ := cmd.Flags().GetInt64Slice("account")
	filter.AccountIDs = ids

	from, _ := cmd.Flags().GetString("from")
	if from != "" {
		d, err := model.ParseDate(from)
		if err != nil {
			return filter, fmt.Errorf("invalid from date format: %w", err)
		}
		start := d.Time()
		filter.Start = &start
	}

	to, _ := cmd.Flags().GetString("to")
	if to != "" {
		d, err := model.ParseDate(to)
		if err != nil {
			return filter, fmt.Errorf("invalid to date format: %w", err)
		}
		end := d.AddDays(1).Time().Add(-time.Nanosecond)
		filter.End = &end
	}

	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return filter, &common.UserError{UserMessage: fmt.Sprintf("--to %s is before --from %s", to, from)}
	}
	return filter, nil
}

// session bundles what an analysis command needs.
type session struct {
	store   *storage.Store
	service *analysis.Service
	printer *cli.Printer
	filter  service.LedgerFilter
}

func (s *session) Close() error {
	return s.store.Close()
}

// newSession opens storage and builds the analysis service for cmd.
func newSession(cmd *cobra.Command) (*session, error) {
	printer, err := cli.NewPrinter(cmd.OutOrStdout(), viper.GetString("output.format"))
	if err != nil {
		return nil, &common.UserError{Err: err, UserMessage: "Unsupported --format"}
	}

	filter, err := ledgerFilter(cmd)
	if err != nil {
		return nil, err
	}

	asOfFlag, _ := cmd.Flags().GetString("as-of")
	asOf, err := parseAsOf(asOfFlag, time.Now())
	if err != nil {
		return nil, &common.UserError{Err: err, UserMessage: "Invalid --as-of date"}
	}

	store, cfg, err := initStorage(cmd.Context())
	if err != nil {
		return nil, err
	}

	engine, err := analysis.NewEngine(analysis.OptionsFromConfig(cfg.Analysis, asOf))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	svc, err := analysis.NewService(analysis.Deps{Reader: store, Engine: engine})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{store: store, service: svc, printer: printer, filter: filter}, nil
}
