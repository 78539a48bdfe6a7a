// Package service defines the interfaces shared between the storage layer,
// importers and the analysis engine.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// LedgerFilter restricts which records LoadLedger returns. Zero values mean
// no restriction.
type LedgerFilter struct {
	Start      *time.Time
	End        *time.Time
	AccountIDs []int64
}

// LedgerReader loads ledgers for analysis.
type LedgerReader interface {
	// LoadLedger returns the stored records matching filter. Rows that fail
	// to parse are returned as rejections rather than errors.
	LoadLedger(ctx context.Context, filter LedgerFilter) (model.Ledger, []model.Rejection, error)
}

// LedgerWriter persists ledger records. Writes are idempotent per id.
type LedgerWriter interface {
	SaveBranches(ctx context.Context, branches []model.Branch) error
	SaveCustomers(ctx context.Context, customers []model.Customer) error
	SaveEmployees(ctx context.Context, employees []model.Employee) error
	SaveAccounts(ctx context.Context, accounts []model.Account) error
	SaveAccountOwners(ctx context.Context, owners []model.AccountOwner) error
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	SaveTransfers(ctx context.Context, transfers []model.Transfer) error
	SaveFees(ctx context.Context, fees []model.Fee) error
	SaveLoans(ctx context.Context, loans []model.Loan) error
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	LedgerReader
	LedgerWriter

	// SaveLedger writes every record set of l in one database transaction.
	SaveLedger(ctx context.Context, l model.Ledger) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RunSummary describes one completed analysis run.
type RunSummary struct {
	StartedAt  time.Time
	RunID      string
	Analysis   string
	Rows       int
	Rejections int
	Duration   time.Duration
}
