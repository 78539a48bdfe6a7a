package testutil

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// LedgerBuilder provides a fluent interface for constructing test ledgers.
// Record ids are assigned in insertion order per record kind, starting at 1.
type LedgerBuilder struct {
	t      *testing.T
	ledger model.Ledger
	ids    map[model.RecordKind]int64
}

// NewLedgerBuilder creates an empty builder for the given test.
func NewLedgerBuilder(t *testing.T) *LedgerBuilder {
	t.Helper()
	return &LedgerBuilder{t: t, ids: make(map[model.RecordKind]int64)}
}

func (b *LedgerBuilder) next(kind model.RecordKind) int64 {
	b.ids[kind]++
	return b.ids[kind]
}

// Money parses s or fails the test.
func (b *LedgerBuilder) Money(s string) model.Money {
	b.t.Helper()
	m, err := model.ParseMoney(s)
	if err != nil {
		b.t.Fatalf("bad fixture amount %q: %v", s, err)
	}
	return m
}

// At returns a UTC timestamp at noon on the given day.
func At(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// WithBranch adds a branch.
func (b *LedgerBuilder) WithBranch(id int64, name string) *LedgerBuilder {
	b.ledger.Branches = append(b.ledger.Branches, model.Branch{ID: id, Name: name})
	return b
}

// WithAccount adds an active account.
func (b *LedgerBuilder) WithAccount(id, branchID int64, accountType, balance string) *LedgerBuilder {
	b.t.Helper()
	b.ledger.Accounts = append(b.ledger.Accounts, model.Account{
		ID:       id,
		BranchID: branchID,
		Type:     accountType,
		Status:   model.AccountActive,
		Balance:  b.Money(balance),
		OpenedAt: At(2020, time.January, 1),
	})
	return b
}

// WithCustomer adds a customer owning the given accounts.
func (b *LedgerBuilder) WithCustomer(id, branchID int64, accounts ...int64) *LedgerBuilder {
	b.ledger.Customers = append(b.ledger.Customers, model.Customer{ID: id, BranchID: branchID})
	for _, a := range accounts {
		b.ledger.Owners = append(b.ledger.Owners, model.AccountOwner{AccountID: a, CustomerID: id})
	}
	return b
}

// WithTransaction adds a transaction with the next transaction id.
func (b *LedgerBuilder) WithTransaction(accountID int64, typ model.TransactionType, amount string, at time.Time) *LedgerBuilder {
	b.t.Helper()
	b.ledger.Transactions = append(b.ledger.Transactions, model.Transaction{
		ID:        b.next(model.KindTransaction),
		AccountID: accountID,
		Type:      typ,
		Amount:    b.Money(amount),
		Timestamp: at,
	})
	return b
}

// WithDeposit is shorthand for a deposit transaction.
func (b *LedgerBuilder) WithDeposit(accountID int64, amount string, at time.Time) *LedgerBuilder {
	b.t.Helper()
	return b.WithTransaction(accountID, model.TypeDeposit, amount, at)
}

// WithWithdrawal is shorthand for a withdrawal transaction.
func (b *LedgerBuilder) WithWithdrawal(accountID int64, amount string, at time.Time) *LedgerBuilder {
	b.t.Helper()
	return b.WithTransaction(accountID, model.TypeWithdrawal, amount, at)
}

// WithTransfer adds a transfer initiated and settled at the same instant.
func (b *LedgerBuilder) WithTransfer(from, to int64, amount string, at time.Time) *LedgerBuilder {
	b.t.Helper()
	b.ledger.Transfers = append(b.ledger.Transfers, model.Transfer{
		ID:            b.next(model.KindTransfer),
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        b.Money(amount),
		InitiatedAt:   at,
		TransactionAt: at,
	})
	return b
}

// WithFee adds a fee.
func (b *LedgerBuilder) WithFee(accountID int64, feeType, amount string, date model.Date) *LedgerBuilder {
	b.t.Helper()
	b.ledger.Fees = append(b.ledger.Fees, model.Fee{
		ID:        b.next(model.KindFee),
		AccountID: accountID,
		Type:      feeType,
		Amount:    b.Money(amount),
		FeeDate:   date,
	})
	return b
}

// WithLoan adds an active loan.
func (b *LedgerBuilder) WithLoan(accountID int64, principal, rate string) *LedgerBuilder {
	b.t.Helper()
	b.ledger.Loans = append(b.ledger.Loans, model.Loan{
		ID:           b.next(model.KindLoan),
		AccountID:    accountID,
		Type:         "personal",
		Status:       model.LoanActive,
		Principal:    b.Money(principal),
		InterestRate: decimal.RequireFromString(rate),
		StartDate:    model.NewDate(2022, time.January, 1),
	})
	return b
}

// WithFixture applies a predefined fixture.
func (b *LedgerBuilder) WithFixture(f Fixture) *LedgerBuilder {
	b.t.Helper()
	f.apply(b)
	return b
}

// Build returns the raw ledger.
func (b *LedgerBuilder) Build() model.Ledger {
	return b.ledger
}

// Ingest returns the ingested ledger, failing the test on any rejection.
func (b *LedgerBuilder) Ingest() model.Ledger {
	b.t.Helper()
	l, rejected := model.IngestLedger(b.ledger)
	for _, r := range rejected {
		b.t.Errorf("fixture record rejected: %v", r)
	}
	if len(rejected) > 0 {
		b.t.FailNow()
	}
	return l
}
