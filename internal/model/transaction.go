package model

import (
	"time"
)

// TransactionType classifies a ledger posting.
type TransactionType string

// Known transaction types. Unknown types are kept verbatim.
const (
	TypeDeposit     TransactionType = "deposit"
	TypeWithdrawal  TransactionType = "withdrawal"
	TypeInterest    TransactionType = "interest"
	TypeFee         TransactionType = "fee"
	TypeTransferIn  TransactionType = "transfer_in"
	TypeTransferOut TransactionType = "transfer_out"
	TypePayment     TransactionType = "payment"
)

// IsCredit reports whether the type adds money to the account.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TypeDeposit, TypeInterest, TypeTransferIn:
		return true
	}
	return false
}

// IsDebit reports whether the type removes money from the account.
func (t TransactionType) IsDebit() bool {
	switch t {
	case TypeWithdrawal, TypeFee, TypeTransferOut, TypePayment:
		return true
	}
	return false
}

// Transaction is a single posting against one account. After ingestion
// Amount is signed: credits positive, debits negative.
type Transaction struct {
	Timestamp  time.Time
	EmployeeID *int64
	Type       TransactionType
	Amount     Money
	ID         int64
	AccountID  int64
}

// RecordID implements Record.
func (t Transaction) RecordID() int64 { return t.ID }

// Day returns the UTC calendar day the transaction posted.
func (t Transaction) Day() Date { return DateOf(t.Timestamp) }

// NormalizeTransaction applies the canonical sign convention. Credits become
// positive, debits negative, and unknown types keep their stored sign. It is
// idempotent.
func NormalizeTransaction(t Transaction) Transaction {
	switch {
	case t.Type.IsCredit():
		t.Amount = t.Amount.Abs()
	case t.Type.IsDebit():
		t.Amount = t.Amount.Abs().Neg()
	}
	return t
}

// CompareByTime orders transactions by (timestamp, id).
func CompareByTime(a, b Transaction) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return compareID(a.ID, b.ID)
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
