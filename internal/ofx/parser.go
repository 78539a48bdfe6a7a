// Package ofx imports bank and credit card statements from OFX/QFX files.
package ofx

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/ledgerscope/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line that are missing their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Statement is one account's statement from an OFX file.
type Statement struct {
	Transactions []model.Transaction
	Account      model.Account
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file and returns its transactions, signed per
// model.NormalizeTransaction.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.Transaction, error) {
	stmts, err := p.ParseStatements(ctx, reader)
	if err != nil {
		return nil, err
	}
	var transactions []model.Transaction
	for _, s := range stmts {
		transactions = append(transactions, s.Transactions...)
	}
	return transactions, nil
}

// ParseStatements parses an OFX/QFX file into per-account statements.
func (p *Parser) ParseStatements(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var (
		stmts              []Statement
		bankStmts, ccStmts int
	)

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		bankStmts++
		acctType := "bank"
		if stmt.BankAcctFrom.AcctType.Valid() {
			acctType = strings.ToLower(stmt.BankAcctFrom.AcctType.String())
		}
		s, err := p.convertStatement(string(stmt.BankAcctFrom.AcctID), acctType, stmt.BalAmt, stmt.BankTranList)
		if err != nil {
			slog.Warn("Failed to process bank statement",
				"account", stmt.BankAcctFrom.AcctID,
				"error", err)
			continue
		}
		stmts = append(stmts, s)
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		ccStmts++
		s, err := p.convertStatement(string(stmt.CCAcctFrom.AcctID), "credit_card", stmt.BalAmt, stmt.BankTranList)
		if err != nil {
			slog.Warn("Failed to process credit card statement",
				"account", stmt.CCAcctFrom.AcctID,
				"error", err)
			continue
		}
		stmts = append(stmts, s)
	}

	total := 0
	for _, s := range stmts {
		total += len(s.Transactions)
	}
	slog.Info("Parsed OFX file",
		"total_transactions", total,
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return stmts, nil
}

func (p *Parser) convertStatement(acctID, acctType string, balance ofxgo.Amount, list *ofxgo.TransactionList) (Statement, error) {
	if acctID == "" {
		return Statement{}, fmt.Errorf("%w: statement without account id", model.ErrMalformedRecord)
	}
	accountID := AccountID(acctID)

	bal, err := amount(balance)
	if err != nil {
		return Statement{}, fmt.Errorf("ledger balance: %w", err)
	}

	s := Statement{
		Account: model.Account{
			ID:      accountID,
			Type:    acctType,
			Status:  model.AccountActive,
			Balance: bal,
		},
	}
	if list == nil {
		return s, nil
	}

	for _, ofxTx := range list.Transactions {
		tx, err := p.convertTransaction(ofxTx, acctID, accountID)
		if err != nil {
			slog.Warn("Skipping OFX transaction",
				"fitid", ofxTx.FiTID,
				"error", err)
			continue
		}
		s.Transactions = append(s.Transactions, tx)
	}
	return s, nil
}

// convertTransaction converts an OFX transaction to our model.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, acctID string, accountID int64) (model.Transaction, error) {
	amt, err := amount(ofxTx.TrnAmt)
	if err != nil {
		return model.Transaction{}, err
	}
	if ofxTx.DtPosted.IsZero() {
		return model.Transaction{}, fmt.Errorf("%w: missing posting date", model.ErrMalformedRecord)
	}

	tx := model.Transaction{
		ID:        hashID(acctID + "/" + string(ofxTx.FiTID)),
		AccountID: accountID,
		Type:      transactionType(ofxTx, amt),
		Amount:    amt,
		Timestamp: ofxTx.DtPosted.UTC(),
	}
	return model.NormalizeTransaction(tx), nil
}

// amount converts an OFX amount exactly. OFX amounts carry at most four
// decimal places.
func amount(a ofxgo.Amount) (model.Money, error) {
	return model.ParseMoney(a.FloatString(4))
}

// transactionType maps OFX transaction types to ledger types. Ambiguous
// types fall back to the sign of the amount.
func transactionType(tx ofxgo.Transaction, amt model.Money) model.TransactionType {
	switch tx.TrnType {
	case ofxgo.TrnTypeCredit, ofxgo.TrnTypeDep, ofxgo.TrnTypeDirectDep:
		return model.TypeDeposit
	case ofxgo.TrnTypeInt, ofxgo.TrnTypeDiv:
		return model.TypeInterest
	case ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return model.TypeFee
	case ofxgo.TrnTypePayment, ofxgo.TrnTypeRepeatPmt:
		return model.TypePayment
	case ofxgo.TrnTypeDebit, ofxgo.TrnTypeATM, ofxgo.TrnTypeCheck, ofxgo.TrnTypePOS,
		ofxgo.TrnTypeCash, ofxgo.TrnTypeDirectDebit:
		return model.TypeWithdrawal
	case ofxgo.TrnTypeXfer:
		if amt.Sign() < 0 {
			return model.TypeTransferOut
		}
		return model.TypeTransferIn
	}
	if amt.Sign() < 0 {
		return model.TypeWithdrawal
	}
	return model.TypeDeposit
}

// AccountID maps an OFX account string to a ledger account id. Numeric ids
// are used as is; anything else is hashed.
func AccountID(acctID string) int64 {
	if n, err := strconv.ParseInt(acctID, 10, 64); err == nil && n > 0 {
		return n
	}
	return hashID(acctID)
}

// hashID returns a stable positive id for s.
func hashID(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	id := int64(h.Sum64() & math.MaxInt64)
	if id == 0 {
		return 1
	}
	return id
}

// GetAccounts extracts the accounts present in the OFX file.
func (p *Parser) GetAccounts(ctx context.Context, reader io.Reader) ([]model.Account, error) {
	stmts, err := p.ParseStatements(ctx, reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	var accounts []model.Account
	for _, s := range stmts {
		if seen[s.Account.ID] {
			continue
		}
		seen[s.Account.ID] = true
		accounts = append(accounts, s.Account)
	}
	return accounts, nil
}
