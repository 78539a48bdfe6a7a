// Package model defines the immutable ledger records the analytics engine
// consumes, the Money and calendar value types, and ingestion normalization.
package model

import (
	"fmt"
)

// Ledger bundles every record set supplied to one analysis call.
type Ledger struct {
	Accounts     []Account
	Transactions []Transaction
	Transfers    []Transfer
	Fees         []Fee
	Loans        []Loan
	Customers    []Customer
	Branches     []Branch
	Employees    []Employee
	Owners       []AccountOwner
}

// RecordKind names the record set a Rejection came from.
type RecordKind string

// Record kinds.
const (
	KindAccount     RecordKind = "account"
	KindTransaction RecordKind = "transaction"
	KindTransfer    RecordKind = "transfer"
	KindFee         RecordKind = "fee"
	KindLoan        RecordKind = "loan"
)

// Rejection is a record dropped at ingestion. Err wraps ErrMalformedRecord.
type Rejection struct {
	Err  error
	Kind RecordKind
	ID   int64
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s %d: %v", r.Kind, r.ID, r.Err)
}

// Unwrap returns the underlying error.
func (r Rejection) Unwrap() error { return r.Err }

// NewRejection builds a Rejection wrapping ErrMalformedRecord.
func NewRejection(kind RecordKind, id int64, format string, args ...any) Rejection {
	return Rejection{
		Kind: kind,
		ID:   id,
		Err:  fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...)),
	}
}

// IngestLedger validates and normalizes l, returning a new Ledger with
// malformed records removed. The input slices are not modified.
func IngestLedger(l Ledger) (Ledger, []Rejection) {
	var rejected []Rejection
	out := Ledger{
		Customers: append([]Customer(nil), l.Customers...),
		Branches:  append([]Branch(nil), l.Branches...),
		Employees: append([]Employee(nil), l.Employees...),
		Owners:    append([]AccountOwner(nil), l.Owners...),
	}

	out.Accounts = make([]Account, 0, len(l.Accounts))
	seen := make(map[int64]bool, len(l.Accounts))
	for _, a := range l.Accounts {
		if a.ID == 0 {
			rejected = append(rejected, NewRejection(KindAccount, a.ID, "missing id"))
			continue
		}
		// The first record with an id wins.
		if seen[a.ID] {
			rejected = append(rejected, NewRejection(KindAccount, a.ID, "duplicate id"))
			continue
		}
		seen[a.ID] = true
		out.Accounts = append(out.Accounts, a)
	}

	out.Transactions = make([]Transaction, 0, len(l.Transactions))
	for _, t := range l.Transactions {
		if t.ID == 0 || t.AccountID == 0 {
			rejected = append(rejected, NewRejection(KindTransaction, t.ID, "missing id or account"))
			continue
		}
		if t.Timestamp.IsZero() {
			rejected = append(rejected, NewRejection(KindTransaction, t.ID, "missing timestamp"))
			continue
		}
		out.Transactions = append(out.Transactions, NormalizeTransaction(t))
	}

	out.Transfers = make([]Transfer, 0, len(l.Transfers))
	for _, t := range l.Transfers {
		if t.ID == 0 || t.FromAccountID == 0 || t.ToAccountID == 0 {
			rejected = append(rejected, NewRejection(KindTransfer, t.ID, "missing id or account"))
			continue
		}
		if t.TransactionAt.IsZero() {
			rejected = append(rejected, NewRejection(KindTransfer, t.ID, "missing transaction timestamp"))
			continue
		}
		t.Amount = t.Amount.Abs()
		out.Transfers = append(out.Transfers, t)
	}

	out.Fees = make([]Fee, 0, len(l.Fees))
	for _, f := range l.Fees {
		if f.ID == 0 || f.AccountID == 0 {
			rejected = append(rejected, NewRejection(KindFee, f.ID, "missing id or account"))
			continue
		}
		if f.Amount.Sign() < 0 {
			rejected = append(rejected, NewRejection(KindFee, f.ID, "negative amount %s", f.Amount))
			continue
		}
		out.Fees = append(out.Fees, f)
	}

	out.Loans = make([]Loan, 0, len(l.Loans))
	for _, ln := range l.Loans {
		if ln.ID == 0 || ln.AccountID == 0 {
			rejected = append(rejected, NewRejection(KindLoan, ln.ID, "missing id or account"))
			continue
		}
		if ln.InterestRate.Sign() < 0 {
			rejected = append(rejected, NewRejection(KindLoan, ln.ID, "negative interest rate %s", ln.InterestRate))
			continue
		}
		if ln.Principal.Sign() < 0 {
			rejected = append(rejected, NewRejection(KindLoan, ln.ID, "negative principal %s", ln.Principal))
			continue
		}
		out.Loans = append(out.Loans, ln)
	}

	return out, rejected
}

// AccountIndex maps account id to account.
func (l Ledger) AccountIndex() map[int64]Account {
	idx := make(map[int64]Account, len(l.Accounts))
	for _, a := range l.Accounts {
		idx[a.ID] = a
	}
	return idx
}
