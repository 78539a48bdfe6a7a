// Package storage persists ledger records in sqlite or postgres and loads
// them back for analysis.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/service"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidRecord    = errors.New("invalid record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecords checks a non-empty slice element by element.
func validateRecords[T any](records []T, name string, check func(T) error) error {
	if records == nil {
		return fmt.Errorf("%w: %s", ErrNilParameter, name)
	}
	if len(records) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySlice, name)
	}
	for i, r := range records {
		if err := check(r); err != nil {
			return fmt.Errorf("%s at index %d: %w", name, i, err)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

func validateBranch(b model.Branch) error {
	if b.ID == 0 {
		return invalid("branch missing ID")
	}
	return nil
}

func validateCustomer(c model.Customer) error {
	if c.ID == 0 {
		return invalid("customer missing ID")
	}
	return nil
}

func validateEmployee(e model.Employee) error {
	if e.ID == 0 {
		return invalid("employee missing ID")
	}
	return nil
}

func validateAccount(a model.Account) error {
	if a.ID == 0 {
		return invalid("account missing ID")
	}
	return nil
}

func validateOwner(o model.AccountOwner) error {
	if o.AccountID == 0 || o.CustomerID == 0 {
		return invalid("owner link missing account or customer")
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(t model.Transaction) error {
	if t.ID == 0 {
		return invalid("transaction missing ID")
	}
	if t.AccountID == 0 {
		return invalid("transaction %d missing account ID", t.ID)
	}
	if t.Timestamp.IsZero() {
		return invalid("transaction %d missing timestamp", t.ID)
	}
	if t.Type == "" {
		return invalid("transaction %d missing type", t.ID)
	}
	return nil
}

func validateTransfer(t model.Transfer) error {
	if t.ID == 0 {
		return invalid("transfer missing ID")
	}
	if t.FromAccountID == 0 || t.ToAccountID == 0 {
		return invalid("transfer %d missing account", t.ID)
	}
	if t.TransactionAt.IsZero() {
		return invalid("transfer %d missing transaction timestamp", t.ID)
	}
	return nil
}

func validateFee(f model.Fee) error {
	if f.ID == 0 {
		return invalid("fee missing ID")
	}
	if f.AccountID == 0 {
		return invalid("fee %d missing account ID", f.ID)
	}
	if f.FeeDate.IsZero() {
		return invalid("fee %d missing date", f.ID)
	}
	return nil
}

func validateLoan(l model.Loan) error {
	if l.ID == 0 {
		return invalid("loan missing ID")
	}
	if l.AccountID == 0 {
		return invalid("loan %d missing account ID", l.ID)
	}
	return nil
}

// validateFilter rejects inverted time ranges.
func validateFilter(f service.LedgerFilter) error {
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *f.End, *f.Start)
	}
	return nil
}
