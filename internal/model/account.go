package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is implemented by every ledger record. The id is the default
// tie-break for orderings.
type Record interface {
	RecordID() int64
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

// Account statuses.
const (
	AccountActive  AccountStatus = "active"
	AccountDormant AccountStatus = "dormant"
	AccountClosed  AccountStatus = "closed"
)

// Account is a customer account snapshot.
type Account struct {
	OpenedAt time.Time
	Type     string
	Status   AccountStatus
	Balance  Money
	ID       int64
	BranchID int64
}

// RecordID implements Record.
func (a Account) RecordID() int64 { return a.ID }

// Transfer moves money between two accounts. FromAccountID may equal
// ToAccountID.
type Transfer struct {
	TransactionAt time.Time
	InitiatedAt   time.Time
	Amount        Money
	ID            int64
	FromAccountID int64
	ToAccountID   int64
}

// RecordID implements Record.
func (t Transfer) RecordID() int64 { return t.ID }

// Day returns the UTC calendar day of the transaction timestamp.
func (t Transfer) Day() Date { return DateOf(t.TransactionAt) }

// IsSelfTransfer reports whether money moved within one account.
func (t Transfer) IsSelfTransfer() bool { return t.FromAccountID == t.ToAccountID }

// Fee is a charge against an account. Amount is never negative.
type Fee struct {
	FeeDate   Date
	Type      string
	Amount    Money
	ID        int64
	AccountID int64
}

// RecordID implements Record.
func (f Fee) RecordID() int64 { return f.ID }

// LoanStatus is the repayment state of a loan.
type LoanStatus string

// Loan statuses.
const (
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

// Loan is a credit facility tied to an account and customer.
type Loan struct {
	StartDate    Date
	EndDate      Date
	Type         string
	Status       LoanStatus
	Principal    Money
	InterestRate decimal.Decimal
	ID           int64
	AccountID    int64
	CustomerID   int64
}

// RecordID implements Record.
func (l Loan) RecordID() int64 { return l.ID }

// Defaulted reports whether the loan is in default.
func (l Loan) Defaulted() bool { return l.Status == LoanDefaulted }

// Customer is referenced by accounts through AccountOwner links.
type Customer struct {
	FirstName string
	LastName  string
	ID        int64
	BranchID  int64
}

// RecordID implements Record.
func (c Customer) RecordID() int64 { return c.ID }

// Branch is a bank branch.
type Branch struct {
	Name string
	City string
	ID   int64
}

// RecordID implements Record.
func (b Branch) RecordID() int64 { return b.ID }

// Employee may create transactions.
type Employee struct {
	Name     string
	Position string
	ID       int64
	BranchID int64
}

// RecordID implements Record.
func (e Employee) RecordID() int64 { return e.ID }

// AccountOwner links a customer to an account.
type AccountOwner struct {
	AccountID  int64
	CustomerID int64
}
