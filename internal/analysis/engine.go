// Package analysis wires the window evaluator, statistics, calendar and AML
// components into the named analyses the CLI runs over a ledger.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/ledgerscope/internal/aml"
	"github.com/Veraticus/ledgerscope/internal/common"
	"github.com/Veraticus/ledgerscope/internal/config"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/service"
)

// Options holds the thresholds of every analysis. AsOf replaces the wall
// clock for dormancy and calendar gaps.
type Options struct {
	AsOf              time.Time
	OutlierPercentile decimal.Decimal
	SpikeMultiplier   decimal.Decimal
	AML               aml.Config
	RollingWindow     int
	DormancyMonths    int
	SpikeLookback     int
	LoanBuckets       int
	Workers           int
}

// DefaultOptions returns the standard thresholds with the given as-of time.
func DefaultOptions(asOf time.Time) Options {
	return Options{
		AsOf:              asOf,
		OutlierPercentile: decimal.RequireFromString("0.95"),
		SpikeMultiplier:   decimal.NewFromInt(3),
		AML:               aml.DefaultConfig(),
		RollingWindow:     3,
		DormancyMonths:    12,
		SpikeLookback:     10,
		LoanBuckets:       20,
		Workers:           1,
	}
}

// OptionsFromConfig converts loaded configuration into engine options.
func OptionsFromConfig(cfg config.Analysis, asOf time.Time) Options {
	return Options{
		AsOf:              asOf,
		OutlierPercentile: cfg.OutlierPercentile,
		SpikeMultiplier:   cfg.SpikeMultiplier,
		AML: aml.Config{
			Tolerance:   cfg.AML.Tolerance,
			MinInbound:  cfg.AML.MinInbound,
			MinOutbound: cfg.AML.MinOutbound,
		},
		RollingWindow:  cfg.RollingWindow,
		DormancyMonths: cfg.DormancyMonths,
		SpikeLookback:  cfg.SpikeLookback,
		LoanBuckets:    cfg.LoanBuckets,
		Workers:        cfg.Workers,
	}
}

// Validate ensures the options can drive every analysis.
func (o Options) Validate() error {
	if o.AsOf.IsZero() {
		return fmt.Errorf("%w: as-of time is required", common.ErrMissingConfig)
	}
	if o.RollingWindow <= 0 {
		return fmt.Errorf("%w: rolling window must be positive", common.ErrInvalidConfig)
	}
	if o.DormancyMonths <= 0 {
		return fmt.Errorf("%w: dormancy months must be positive", common.ErrInvalidConfig)
	}
	if o.SpikeLookback <= 0 {
		return fmt.Errorf("%w: spike lookback must be positive", common.ErrInvalidConfig)
	}
	if o.LoanBuckets <= 0 {
		return fmt.Errorf("%w: loan buckets must be positive", common.ErrInvalidConfig)
	}
	if !o.SpikeMultiplier.IsPositive() {
		return fmt.Errorf("%w: spike multiplier must be positive", common.ErrInvalidConfig)
	}
	if o.OutlierPercentile.IsNegative() || o.OutlierPercentile.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: outlier percentile must be within [0, 1]", common.ErrInvalidConfig)
	}
	if err := o.AML.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// Engine runs analyses over ingested ledgers. It holds only immutable
// options, so one Engine may serve concurrent calls.
type Engine struct {
	opts Options
}

// NewEngine creates an analysis engine with the provided options.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	opts.AML = opts.AML.WithDefaults()
	return &Engine{opts: opts}, nil
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Analysis names accepted by Run.
const (
	AnalysisBalances   = "balances"
	AnalysisRanks      = "ranks"
	AnalysisOutliers   = "outliers"
	AnalysisMedians    = "medians"
	AnalysisMonthly    = "monthly"
	AnalysisRolling    = "rolling"
	AnalysisGrowth     = "growth"
	AnalysisSpikes     = "spikes"
	AnalysisVolatility = "volatility"
	AnalysisLoans      = "loans"
	AnalysisGaps       = "gaps"
	AnalysisDormant    = "dormant"
	AnalysisFees       = "fees"
	AnalysisAML        = "aml"
)

type analysisFunc func(e *Engine, l model.Ledger) (any, int, error)

// typed adapts a typed analysis method to the dispatch table.
func typed[T any](fn func(*Engine, model.Ledger) ([]T, error)) analysisFunc {
	return func(e *Engine, l model.Ledger) (any, int, error) {
		out, err := fn(e, l)
		return out, len(out), err
	}
}

var analyses = map[string]analysisFunc{
	AnalysisBalances:   typed((*Engine).RunningBalances),
	AnalysisRanks:      typed((*Engine).BalanceRanks),
	AnalysisOutliers:   typed((*Engine).TransactionOutliers),
	AnalysisMedians:    typed((*Engine).MedianTransactionByType),
	AnalysisMonthly:    typed((*Engine).MonthlyDeposits),
	AnalysisRolling:    typed((*Engine).RollingDeposits),
	AnalysisGrowth:     typed((*Engine).MonthOverMonth),
	AnalysisSpikes:     typed((*Engine).Spikes),
	AnalysisVolatility: typed((*Engine).Volatility),
	AnalysisLoans:      typed((*Engine).LoanBuckets),
	AnalysisGaps:       typed((*Engine).InactiveMonths),
	AnalysisDormant:    typed((*Engine).DormantAccounts),
	AnalysisFees:       typed((*Engine).FeeTotals),
	AnalysisAML: func(e *Engine, l model.Ledger) (any, int, error) {
		out := e.RapidInOut(l)
		return out, len(out), nil
	},
}

// Names returns every analysis name in sorted order.
func Names() []string {
	names := make([]string, 0, len(analyses))
	for name := range analyses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Request names one analysis over one ledger.
type Request struct {
	Analysis   string
	Ledger     model.Ledger
	Rejections []model.Rejection
}

// Result is the output of one Run. Rows holds the typed result slice of the
// matching Engine method.
type Result struct {
	Rows    any
	Summary service.RunSummary
}

// Run dispatches a named analysis and logs its outcome under a fresh run id.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	fn, ok := analyses[req.Analysis]
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownAnalysis, req.Analysis)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := service.RunSummary{
		RunID:      uuid.New().String(),
		Analysis:   req.Analysis,
		StartedAt:  time.Now(),
		Rejections: len(req.Rejections),
	}
	common.LogDebug("Starting analysis", common.Fields{
		"run_id":       summary.RunID,
		"analysis":     summary.Analysis,
		"transactions": len(req.Ledger.Transactions),
		"transfers":    len(req.Ledger.Transfers),
	})

	out, n, err := fn(e, req.Ledger)
	summary.Duration = time.Since(summary.StartedAt)
	if err != nil {
		common.LogError(err, "Analysis failed", common.Fields{
			"run_id":   summary.RunID,
			"analysis": summary.Analysis,
		})
		return nil, fmt.Errorf("%s: %w", req.Analysis, err)
	}
	summary.Rows = n

	slog.Info("Analysis complete",
		"run_id", summary.RunID,
		"analysis", summary.Analysis,
		"rows", summary.Rows,
		"rejections", summary.Rejections,
		"duration", summary.Duration)

	return &Result{Rows: out, Summary: summary}, nil
}

// RunAll runs the named analyses concurrently over the same ledger and
// returns results in the order of names. The first failure cancels the rest.
func (e *Engine) RunAll(ctx context.Context, ledger model.Ledger, rejections []model.Rejection, names []string) ([]*Result, error) {
	for _, name := range names {
		if _, ok := analyses[name]; !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrUnknownAnalysis, name)
		}
	}

	results := make([]*Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.opts.Workers, 1))
	for i, name := range names {
		g.Go(func() error {
			res, err := e.Run(gctx, Request{Analysis: name, Ledger: ledger, Rejections: rejections})
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
