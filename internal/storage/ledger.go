package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/service"
)

// where accumulates SQL conditions and their arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

// anyIn matches rows where any of columns is one of ids.
func (w *where) anyIn(ids []int64, columns ...string) {
	if len(ids) == 0 {
		return
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s IN (%s)", c, placeholders)
		for _, id := range ids {
			w.args = append(w.args, id)
		}
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// rowScanner collects parse failures as rejections instead of aborting
// the load.
type rowScanner struct {
	rejected []model.Rejection
}

func (r *rowScanner) reject(kind model.RecordKind, id int64, format string, args ...any) {
	r.rejected = append(r.rejected, model.NewRejection(kind, id, format, args...))
}

// LoadLedger returns the stored records matching filter, already passed
// through model.IngestLedger. Malformed rows are reported as rejections.
func (s *Store) LoadLedger(ctx context.Context, filter service.LedgerFilter) (model.Ledger, []model.Rejection, error) {
	if err := validateContext(ctx); err != nil {
		return model.Ledger{}, nil, err
	}
	if err := validateFilter(filter); err != nil {
		return model.Ledger{}, nil, err
	}

	var (
		raw  model.Ledger
		scan rowScanner
		err  error
	)

	if raw.Branches, err = s.loadBranches(ctx); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Customers, err = s.loadCustomers(ctx); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Employees, err = s.loadEmployees(ctx); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Accounts, err = s.loadAccounts(ctx, filter, &scan); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Owners, err = s.loadOwners(ctx, filter); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Transactions, err = s.loadTransactions(ctx, filter, &scan); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Transfers, err = s.loadTransfers(ctx, filter, &scan); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Fees, err = s.loadFees(ctx, filter, &scan); err != nil {
		return model.Ledger{}, nil, err
	}
	if raw.Loans, err = s.loadLoans(ctx, filter, &scan); err != nil {
		return model.Ledger{}, nil, err
	}

	ledger, rejected := model.IngestLedger(raw)
	return ledger, append(scan.rejected, rejected...), nil
}

// query runs a SELECT and calls fn for every row.
func (s *Store) query(ctx context.Context, q string, w *where, fn func(*sql.Rows) error) error {
	var args []any
	if w != nil {
		q += w.String()
		args = w.args
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q+" ORDER BY id"), args...)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	return rows.Err()
}

func (s *Store) loadBranches(ctx context.Context) ([]model.Branch, error) {
	var out []model.Branch
	err := s.query(ctx, `SELECT id, name, city FROM branches`, nil, func(rows *sql.Rows) error {
		var b model.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.City); err != nil {
			return err
		}
		out = append(out, b)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}
	return out, nil
}

func (s *Store) loadCustomers(ctx context.Context) ([]model.Customer, error) {
	var out []model.Customer
	err := s.query(ctx, `SELECT id, first_name, last_name, branch_id FROM customers`, nil, func(rows *sql.Rows) error {
		var (
			c      model.Customer
			branch sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &branch); err != nil {
			return err
		}
		c.BranchID = branch.Int64
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	return out, nil
}

func (s *Store) loadEmployees(ctx context.Context) ([]model.Employee, error) {
	var out []model.Employee
	err := s.query(ctx, `SELECT id, name, position, branch_id FROM employees`, nil, func(rows *sql.Rows) error {
		var (
			e      model.Employee
			branch sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &branch); err != nil {
			return err
		}
		e.BranchID = branch.Int64
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}
	return out, nil
}

func (s *Store) loadAccounts(ctx context.Context, f service.LedgerFilter, scan *rowScanner) ([]model.Account, error) {
	var w where
	w.anyIn(f.AccountIDs, "id")

	var out []model.Account
	err := s.query(ctx, `SELECT id, branch_id, account_type, status, balance, opened_at FROM accounts`, &w, func(rows *sql.Rows) error {
		var (
			a               model.Account
			branch          sql.NullInt64
			status, balance string
			opened          sql.NullString
		)
		if err := rows.Scan(&a.ID, &branch, &a.Type, &status, &balance, &opened); err != nil {
			return err
		}
		a.BranchID = branch.Int64
		a.Status = model.AccountStatus(status)

		var err error
		if a.Balance, err = model.ParseMoney(balance); err != nil {
			scan.reject(model.KindAccount, a.ID, "balance %q", balance)
			return nil
		}
		if opened.Valid {
			if a.OpenedAt, err = parseTimestamp(opened.String); err != nil {
				scan.reject(model.KindAccount, a.ID, "opened_at %q", opened.String)
				return nil
			}
		}
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return out, nil
}

func (s *Store) loadOwners(ctx context.Context, f service.LedgerFilter) ([]model.AccountOwner, error) {
	var w where
	w.anyIn(f.AccountIDs, "account_id")

	q := `SELECT account_id, customer_id FROM account_owners` + w.String() + ` ORDER BY account_id, customer_id`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load account owners: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AccountOwner
	for rows.Next() {
		var o model.AccountOwner
		if err := rows.Scan(&o.AccountID, &o.CustomerID); err != nil {
			return nil, fmt.Errorf("failed to scan account owner: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func timeRange(w *where, f service.LedgerFilter, column string) {
	if f.Start != nil {
		w.add(column+" >= ?", formatTimestamp(*f.Start))
	}
	if f.End != nil {
		w.add(column+" < ?", formatTimestamp(*f.End))
	}
}

func (s *Store) loadTransactions(ctx context.Context, f service.LedgerFilter, scan *rowScanner) ([]model.Transaction, error) {
	var w where
	w.anyIn(f.AccountIDs, "account_id")
	timeRange(&w, f, "occurred_at")

	var out []model.Transaction
	err := s.query(ctx, `SELECT id, account_id, employee_id, transaction_type, amount, occurred_at FROM transactions`, &w, func(rows *sql.Rows) error {
		var (
			t               model.Transaction
			employee        sql.NullInt64
			txnType, amount string
			occurred        string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &employee, &txnType, &amount, &occurred); err != nil {
			return err
		}
		t.Type = model.TransactionType(txnType)
		if employee.Valid {
			id := employee.Int64
			t.EmployeeID = &id
		}

		var err error
		if t.Amount, err = model.ParseMoney(amount); err != nil {
			scan.reject(model.KindTransaction, t.ID, "amount %q", amount)
			return nil
		}
		if t.Timestamp, err = parseTimestamp(occurred); err != nil {
			scan.reject(model.KindTransaction, t.ID, "occurred_at %q", occurred)
			return nil
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return out, nil
}

func (s *Store) loadTransfers(ctx context.Context, f service.LedgerFilter, scan *rowScanner) ([]model.Transfer, error) {
	var w where
	w.anyIn(f.AccountIDs, "from_account_id", "to_account_id")
	timeRange(&w, f, "transaction_at")

	var out []model.Transfer
	err := s.query(ctx, `SELECT id, from_account_id, to_account_id, amount, initiated_at, transaction_at FROM transfers`, &w, func(rows *sql.Rows) error {
		var (
			t           model.Transfer
			amount      string
			initiated   sql.NullString
			transaction string
		)
		if err := rows.Scan(&t.ID, &t.FromAccountID, &t.ToAccountID, &amount, &initiated, &transaction); err != nil {
			return err
		}

		var err error
		if t.Amount, err = model.ParseMoney(amount); err != nil {
			scan.reject(model.KindTransfer, t.ID, "amount %q", amount)
			return nil
		}
		if t.TransactionAt, err = parseTimestamp(transaction); err != nil {
			scan.reject(model.KindTransfer, t.ID, "transaction_at %q", transaction)
			return nil
		}
		if initiated.Valid {
			if t.InitiatedAt, err = parseTimestamp(initiated.String); err != nil {
				scan.reject(model.KindTransfer, t.ID, "initiated_at %q", initiated.String)
				return nil
			}
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transfers: %w", err)
	}
	return out, nil
}

func (s *Store) loadFees(ctx context.Context, f service.LedgerFilter, scan *rowScanner) ([]model.Fee, error) {
	var w where
	w.anyIn(f.AccountIDs, "account_id")
	if f.Start != nil {
		w.add("fee_date >= ?", model.DateOf(*f.Start).String())
	}
	if f.End != nil {
		w.add("fee_date < ?", model.DateOf(*f.End).String())
	}

	var out []model.Fee
	err := s.query(ctx, `SELECT id, account_id, fee_type, amount, fee_date FROM fees`, &w, func(rows *sql.Rows) error {
		var (
			fee          model.Fee
			amount, date string
		)
		if err := rows.Scan(&fee.ID, &fee.AccountID, &fee.Type, &amount, &date); err != nil {
			return err
		}

		var err error
		if fee.Amount, err = model.ParseMoney(amount); err != nil {
			scan.reject(model.KindFee, fee.ID, "amount %q", amount)
			return nil
		}
		if fee.FeeDate, err = model.ParseDate(date); err != nil {
			scan.reject(model.KindFee, fee.ID, "fee_date %q", date)
			return nil
		}
		out = append(out, fee)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load fees: %w", err)
	}
	return out, nil
}

func (s *Store) loadLoans(ctx context.Context, f service.LedgerFilter, scan *rowScanner) ([]model.Loan, error) {
	var w where
	w.anyIn(f.AccountIDs, "account_id")

	var out []model.Loan
	q := `SELECT id, account_id, customer_id, loan_type, status, principal, interest_rate, start_date, end_date FROM loans`
	err := s.query(ctx, q, &w, func(rows *sql.Rows) error {
		var (
			l                 model.Loan
			customer          sql.NullInt64
			status, principal string
			rate              string
			start, end        sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.AccountID, &customer, &l.Type, &status, &principal, &rate, &start, &end); err != nil {
			return err
		}
		l.CustomerID = customer.Int64
		l.Status = model.LoanStatus(status)

		var err error
		if l.Principal, err = model.ParseMoney(principal); err != nil {
			scan.reject(model.KindLoan, l.ID, "principal %q", principal)
			return nil
		}
		if l.InterestRate, err = decimal.NewFromString(rate); err != nil {
			scan.reject(model.KindLoan, l.ID, "interest_rate %q", rate)
			return nil
		}
		if start.Valid {
			if l.StartDate, err = model.ParseDate(start.String); err != nil {
				scan.reject(model.KindLoan, l.ID, "start_date %q", start.String)
				return nil
			}
		}
		if end.Valid {
			if l.EndDate, err = model.ParseDate(end.String); err != nil {
				scan.reject(model.KindLoan, l.ID, "end_date %q", end.String)
				return nil
			}
		}
		out = append(out, l)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	return out, nil
}
