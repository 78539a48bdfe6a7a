package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// table describes how records of one kind are written.
type table[T any] struct {
	args     func(T) []any
	validate func(T) error
	name     string
	columns  []string
}

func (t table[T]) insertQuery() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		t.name, strings.Join(t.columns, ", "), placeholders)
}

var (
	branchTable = table[model.Branch]{
		name:     "branches",
		columns:  []string{"id", "name", "city"},
		validate: validateBranch,
		args:     func(b model.Branch) []any { return []any{b.ID, b.Name, b.City} },
	}
	customerTable = table[model.Customer]{
		name:     "customers",
		columns:  []string{"id", "first_name", "last_name", "branch_id"},
		validate: validateCustomer,
		args: func(c model.Customer) []any {
			return []any{c.ID, c.FirstName, c.LastName, nullableID(c.BranchID)}
		},
	}
	employeeTable = table[model.Employee]{
		name:     "employees",
		columns:  []string{"id", "name", "position", "branch_id"},
		validate: validateEmployee,
		args: func(e model.Employee) []any {
			return []any{e.ID, e.Name, e.Position, nullableID(e.BranchID)}
		},
	}
	accountTable = table[model.Account]{
		name:     "accounts",
		columns:  []string{"id", "branch_id", "account_type", "status", "balance", "opened_at"},
		validate: validateAccount,
		args: func(a model.Account) []any {
			status := a.Status
			if status == "" {
				status = model.AccountActive
			}
			return []any{a.ID, nullableID(a.BranchID), a.Type, string(status),
				a.Balance.Decimal().String(), nullableTimestamp(a.OpenedAt)}
		},
	}
	ownerTable = table[model.AccountOwner]{
		name:     "account_owners",
		columns:  []string{"account_id", "customer_id"},
		validate: validateOwner,
		args:     func(o model.AccountOwner) []any { return []any{o.AccountID, o.CustomerID} },
	}
	transactionTable = table[model.Transaction]{
		name:     "transactions",
		columns:  []string{"id", "account_id", "employee_id", "transaction_type", "amount", "occurred_at"},
		validate: validateTransaction,
		args: func(t model.Transaction) []any {
			var employee any
			if t.EmployeeID != nil {
				employee = *t.EmployeeID
			}
			return []any{t.ID, t.AccountID, employee, string(t.Type),
				t.Amount.Decimal().String(), formatTimestamp(t.Timestamp)}
		},
	}
	transferTable = table[model.Transfer]{
		name:     "transfers",
		columns:  []string{"id", "from_account_id", "to_account_id", "amount", "initiated_at", "transaction_at"},
		validate: validateTransfer,
		args: func(t model.Transfer) []any {
			return []any{t.ID, t.FromAccountID, t.ToAccountID, t.Amount.Decimal().String(),
				nullableTimestamp(t.InitiatedAt), formatTimestamp(t.TransactionAt)}
		},
	}
	feeTable = table[model.Fee]{
		name:     "fees",
		columns:  []string{"id", "account_id", "fee_type", "amount", "fee_date"},
		validate: validateFee,
		args: func(f model.Fee) []any {
			return []any{f.ID, f.AccountID, f.Type, f.Amount.Decimal().String(), f.FeeDate.String()}
		},
	}
	loanTable = table[model.Loan]{
		name: "loans",
		columns: []string{"id", "account_id", "customer_id", "loan_type", "status",
			"principal", "interest_rate", "start_date", "end_date"},
		validate: validateLoan,
		args: func(l model.Loan) []any {
			status := l.Status
			if status == "" {
				status = model.LoanActive
			}
			return []any{l.ID, l.AccountID, nullableID(l.CustomerID), l.Type, string(status),
				l.Principal.Decimal().String(), l.InterestRate.String(),
				nullableDate(l.StartDate), nullableDate(l.EndDate)}
		},
	}
)

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullableDate(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// insertRows writes records inside tx. Rows whose key already exists are
// left untouched, so re-importing a file is harmless.
func insertRows[T any](ctx context.Context, s *Store, tx *sql.Tx, t table[T], records []T) error {
	if len(records) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(t.insertQuery()))
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", t.name, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, t.args(r)...); err != nil {
			return fmt.Errorf("failed to insert %s row %d: %w", t.name, i, err)
		}
	}
	return nil
}

// save validates records and writes them in their own transaction.
func save[T any](ctx context.Context, s *Store, t table[T], records []T) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records, t.name, t.validate); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, s, tx, t, records)
	})
}

// SaveBranches saves branches.
func (s *Store) SaveBranches(ctx context.Context, branches []model.Branch) error {
	return save(ctx, s, branchTable, branches)
}

// SaveCustomers saves customers.
func (s *Store) SaveCustomers(ctx context.Context, customers []model.Customer) error {
	return save(ctx, s, customerTable, customers)
}

// SaveEmployees saves employees.
func (s *Store) SaveEmployees(ctx context.Context, employees []model.Employee) error {
	return save(ctx, s, employeeTable, employees)
}

// SaveAccounts saves account snapshots.
func (s *Store) SaveAccounts(ctx context.Context, accounts []model.Account) error {
	return save(ctx, s, accountTable, accounts)
}

// SaveAccountOwners saves account to customer links.
func (s *Store) SaveAccountOwners(ctx context.Context, owners []model.AccountOwner) error {
	return save(ctx, s, ownerTable, owners)
}

// SaveTransactions saves multiple transactions to the database.
func (s *Store) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	return save(ctx, s, transactionTable, transactions)
}

// SaveTransfers saves transfers.
func (s *Store) SaveTransfers(ctx context.Context, transfers []model.Transfer) error {
	return save(ctx, s, transferTable, transfers)
}

// SaveFees saves fees.
func (s *Store) SaveFees(ctx context.Context, fees []model.Fee) error {
	return save(ctx, s, feeTable, fees)
}

// SaveLoans saves loans.
func (s *Store) SaveLoans(ctx context.Context, loans []model.Loan) error {
	return save(ctx, s, loanTable, loans)
}

// SaveLedger writes every non-empty record set of l in a single transaction.
func (s *Store) SaveLedger(ctx context.Context, l model.Ledger) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	checks := []error{
		validateOptional(l.Branches, branchTable),
		validateOptional(l.Customers, customerTable),
		validateOptional(l.Employees, employeeTable),
		validateOptional(l.Accounts, accountTable),
		validateOptional(l.Owners, ownerTable),
		validateOptional(l.Transactions, transactionTable),
		validateOptional(l.Transfers, transferTable),
		validateOptional(l.Fees, feeTable),
		validateOptional(l.Loans, loanTable),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		writes := []func() error{
			func() error { return insertRows(ctx, s, tx, branchTable, l.Branches) },
			func() error { return insertRows(ctx, s, tx, customerTable, l.Customers) },
			func() error { return insertRows(ctx, s, tx, employeeTable, l.Employees) },
			func() error { return insertRows(ctx, s, tx, accountTable, l.Accounts) },
			func() error { return insertRows(ctx, s, tx, ownerTable, l.Owners) },
			func() error { return insertRows(ctx, s, tx, transactionTable, l.Transactions) },
			func() error { return insertRows(ctx, s, tx, transferTable, l.Transfers) },
			func() error { return insertRows(ctx, s, tx, feeTable, l.Fees) },
			func() error { return insertRows(ctx, s, tx, loanTable, l.Loans) },
		}
		for _, write := range writes {
			if err := write(); err != nil {
				return err
			}
		}
		return nil
	})
}

func validateOptional[T any](records []T, t table[T]) error {
	if len(records) == 0 {
		return nil
	}
	return validateRecords(records, t.name, t.validate)
}
