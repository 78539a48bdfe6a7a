// Package aml detects rapid in/out transfer bursts (layering): accounts that
// receive and send many transfers on the same day for nearly equal totals.
//
// The pipeline is four pure stages composed by Detect:
//
//	Inbound, Outbound -> OuterJoin -> Config.Apply -> Sort
//
// Self-transfers count on both sides of the same account and day. They are
// not suppressed and can produce false positives.
package aml

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

// ErrInvalidConfig reports thresholds the flag rule cannot use.
var ErrInvalidConfig = errors.New("invalid aml config")

// Default thresholds.
const (
	DefaultMinInbound  = 5
	DefaultMinOutbound = 5
)

// DefaultTolerance is the allowed imbalance as a fraction of the larger side.
var DefaultTolerance = decimal.RequireFromString("0.10")

// Config holds the flag rule thresholds.
type Config struct {
	Tolerance   decimal.Decimal
	MinInbound  int
	MinOutbound int
}

// DefaultConfig returns the standard layering thresholds.
func DefaultConfig() Config {
	return Config{
		MinInbound:  DefaultMinInbound,
		MinOutbound: DefaultMinOutbound,
		Tolerance:   DefaultTolerance,
	}
}

// WithDefaults fills unset thresholds. The zero Config means the defaults.
// Otherwise a zero tolerance is kept and requires exactly balanced days;
// only a negative tolerance is replaced.
func (c Config) WithDefaults() Config {
	if c.isZero() {
		return DefaultConfig()
	}
	if c.MinInbound <= 0 {
		c.MinInbound = DefaultMinInbound
	}
	if c.MinOutbound <= 0 {
		c.MinOutbound = DefaultMinOutbound
	}
	if c.Tolerance.IsNegative() {
		c.Tolerance = DefaultTolerance
	}
	return c
}

// Validate rejects thresholds the flag rule cannot use.
func (c Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("%w: tolerance %s is negative", ErrInvalidConfig, c.Tolerance)
	}
	if c.MinInbound < 0 || c.MinOutbound < 0 {
		return fmt.Errorf("%w: minimum counts %d/%d are negative", ErrInvalidConfig, c.MinInbound, c.MinOutbound)
	}
	return nil
}

func (c Config) isZero() bool {
	return c.MinInbound == 0 && c.MinOutbound == 0 && c.Tolerance.IsZero()
}

// Key identifies one account on one day.
type Key struct {
	Day       model.Date
	AccountID int64
}

// DaySummary is the transfer volume on one side of an account for a day.
type DaySummary struct {
	Amount model.Money
	Key
	Count int
}

// RiskSignal is the joined inbound and outbound activity for an account day.
type RiskSignal struct {
	InboundAmount  model.Money
	OutboundAmount model.Money
	Key
	InboundCount  int
	OutboundCount int
	Flagged       bool
}

// TotalCount is the number of transfers on both sides.
func (s RiskSignal) TotalCount() int { return s.InboundCount + s.OutboundCount }

// Imbalance is |inbound - outbound|.
func (s RiskSignal) Imbalance() model.Money {
	return s.InboundAmount.Sub(s.OutboundAmount).Abs()
}

// Reason describes the signal for reports.
func (s RiskSignal) Reason() string {
	return fmt.Sprintf("%d in (%s) / %d out (%s), imbalance %s",
		s.InboundCount, s.InboundAmount, s.OutboundCount, s.OutboundAmount, s.Imbalance())
}

// Outbound groups transfers by (from account, day).
func Outbound(transfers []model.Transfer) []DaySummary {
	return summarize(transfers, func(t model.Transfer) int64 { return t.FromAccountID })
}

// Inbound groups transfers by (to account, day).
func Inbound(transfers []model.Transfer) []DaySummary {
	return summarize(transfers, func(t model.Transfer) int64 { return t.ToAccountID })
}

// daySum totals transfer magnitudes per (account, day). Each partition is one
// account day, so the last row carries the day's sum and its size the count.
func daySum(account func(model.Transfer) int64) window.Spec[model.Transfer, string] {
	return window.Spec[model.Transfer, string]{
		Partition: func(t model.Transfer) string {
			return fmt.Sprintf("%d/%s", account(t), t.Day())
		},
		Order: func(a, b model.Transfer) int { return a.TransactionAt.Compare(b.TransactionAt) },
		Value: func(t model.Transfer) decimal.Decimal { return t.Amount.Abs().Decimal() },
		Frame: window.Unbounded(),
		Op:    window.Sum,
	}
}

// summarize accepts raw transfers too: amounts are taken as magnitudes.
func summarize(transfers []model.Transfer, account func(model.Transfer) int64) []DaySummary {
	rows, err := window.Evaluate(transfers, daySum(account))
	if err != nil {
		// daySum always builds a valid window.
		panic(fmt.Sprintf("aml: daily totals: %v", err))
	}

	last := window.Last(rows)
	out := make([]DaySummary, 0, len(last))
	for _, r := range last {
		out = append(out, DaySummary{
			Key:    Key{AccountID: account(r.Record), Day: r.Record.Day()},
			Count:  r.PartitionSize,
			Amount: model.MoneyFromDecimal(r.Value.Num),
		})
	}
	slices.SortFunc(out, func(a, b DaySummary) int { return compareKey(a.Key, b.Key) })
	return out
}

// OuterJoin merges both sides on (account, day). A day present on only one
// side is kept with the other side at zero.
func OuterJoin(inbound, outbound []DaySummary) []RiskSignal {
	joined := make(map[Key]*RiskSignal, len(inbound)+len(outbound))
	get := func(k Key) *RiskSignal {
		s, ok := joined[k]
		if !ok {
			s = &RiskSignal{Key: k}
			joined[k] = s
		}
		return s
	}
	for _, in := range inbound {
		s := get(in.Key)
		s.InboundCount += in.Count
		s.InboundAmount = s.InboundAmount.Add(in.Amount)
	}
	for _, out := range outbound {
		s := get(out.Key)
		s.OutboundCount += out.Count
		s.OutboundAmount = s.OutboundAmount.Add(out.Amount)
	}

	signals := make([]RiskSignal, 0, len(joined))
	for _, s := range joined {
		signals = append(signals, *s)
	}
	slices.SortFunc(signals, func(a, b RiskSignal) int { return compareKey(a.Key, b.Key) })
	return signals
}

// Matches reports whether a signal satisfies the flag rule.
func (c Config) Matches(s RiskSignal) bool {
	if s.InboundCount < c.MinInbound || s.OutboundCount < c.MinOutbound {
		return false
	}
	limit := model.MaxMoney(s.InboundAmount, s.OutboundAmount).Mul(c.Tolerance)
	return s.Imbalance().Cmp(limit) <= 0
}

// Apply returns a copy of signals with Flagged set by the rule.
func (c Config) Apply(signals []RiskSignal) []RiskSignal {
	out := make([]RiskSignal, len(signals))
	for i, s := range signals {
		s.Flagged = c.Matches(s)
		out[i] = s
	}
	return out
}

// Sort orders signals by descending total count, then most recent day, then
// ascending account id. It returns a new slice.
func Sort(signals []RiskSignal) []RiskSignal {
	out := slices.Clone(signals)
	slices.SortStableFunc(out, func(a, b RiskSignal) int {
		if c := cmp.Compare(b.TotalCount(), a.TotalCount()); c != 0 {
			return c
		}
		if c := b.Day.Compare(a.Day); c != 0 {
			return c
		}
		return cmp.Compare(a.AccountID, b.AccountID)
	})
	return out
}

// Detect runs the full pipeline and returns every account day with transfer
// activity, flagged or not. Transfer amounts count by magnitude, so raw
// transfers need not be ingested first.
func Detect(transfers []model.Transfer, cfg Config) []RiskSignal {
	cfg = cfg.WithDefaults()
	return Sort(cfg.Apply(OuterJoin(Inbound(transfers), Outbound(transfers))))
}

// Flagged keeps only flagged signals, preserving order.
func Flagged(signals []RiskSignal) []RiskSignal {
	var out []RiskSignal
	for _, s := range signals {
		if s.Flagged {
			out = append(out, s)
		}
	}
	return out
}

func compareKey(a, b Key) int {
	if c := cmp.Compare(a.AccountID, b.AccountID); c != 0 {
		return c
	}
	return a.Day.Compare(b.Day)
}
