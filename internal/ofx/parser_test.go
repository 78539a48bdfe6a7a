package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240131120000[0:GMT]
<TRNAMT>1.2345
<FITID>2024013101
<NAME>INTEREST PAID
</STMTTRN>
<STMTTRN>
<TRNTYPE>XFER
<DTPOSTED>20240131130000[0:GMT]
<TRNAMT>300.00
<FITID>2024013102
<NAME>TRANSFER FROM SAVINGS
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 5,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			transactions, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, transactions, tt.expectedCount)
			}
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser()

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, transactions, 5)

	tests := []struct {
		wantType   model.TransactionType
		wantAmount string
		wantDay    int
	}{
		{wantType: model.TypeWithdrawal, wantAmount: "-25.50", wantDay: 15},
		{wantType: model.TypeWithdrawal, wantAmount: "-125.00", wantDay: 20},
		{wantType: model.TypeWithdrawal, wantAmount: "-500.00", wantDay: 25},
		{wantType: model.TypeInterest, wantAmount: "1.2345", wantDay: 31},
		{wantType: model.TypeTransferIn, wantAmount: "300.00", wantDay: 31},
	}

	for i, tt := range tests {
		tx := transactions[i]
		assert.Equal(t, int64(1234567890), tx.AccountID)
		assert.Equal(t, tt.wantType, tx.Type, "transaction %d", i)
		assert.True(t, model.MustParseMoney(tt.wantAmount).Equal(tx.Amount),
			"transaction %d amount %s, want %s", i, tx.Amount.Decimal(), tt.wantAmount)
		assert.Equal(t, time.January, tx.Timestamp.Month())
		assert.Equal(t, tt.wantDay, tx.Timestamp.Day())
		assert.Equal(t, time.UTC, tx.Timestamp.Location())
		assert.NotZero(t, tx.ID)
	}
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser()

	stmts, err := parser.ParseStatements(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	stmt := stmts[0]
	assert.Equal(t, int64(4111111111111111), stmt.Account.ID)
	assert.Equal(t, "credit_card", stmt.Account.Type)
	assert.Equal(t, "-500.00", stmt.Account.Balance.String())

	require.Len(t, stmt.Transactions, 2)
	assert.Equal(t, "-45.99", stmt.Transactions[0].Amount.String())
	assert.Equal(t, "-15.00", stmt.Transactions[1].Amount.String())
}

func TestTransactionIDsAreStable(t *testing.T) {
	parser := NewParser()

	first, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	second, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.False(t, seen[first[i].ID], "duplicate id %d", first[i].ID)
		seen[first[i].ID] = true
	}
}

func TestTransactionType(t *testing.T) {
	credit := model.MustParseMoney("10")
	debit := model.MustParseMoney("-10")

	tests := []struct {
		name string
		amt  model.Money
		in   ofxgo.Transaction
		want model.TransactionType
	}{
		{name: "credit", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeCredit}, amt: credit, want: model.TypeDeposit},
		{name: "direct deposit", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeDirectDep}, amt: credit, want: model.TypeDeposit},
		{name: "dividend", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeDiv}, amt: credit, want: model.TypeInterest},
		{name: "service charge", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeSrvChg}, amt: debit, want: model.TypeFee},
		{name: "atm", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeATM}, amt: debit, want: model.TypeWithdrawal},
		{name: "payment", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypePayment}, amt: debit, want: model.TypePayment},
		{name: "outgoing transfer", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeXfer}, amt: debit, want: model.TypeTransferOut},
		{name: "other credit", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeOther}, amt: credit, want: model.TypeDeposit},
		{name: "other debit", in: ofxgo.Transaction{TrnType: ofxgo.TrnTypeOther}, amt: debit, want: model.TypeWithdrawal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transactionType(tt.in, tt.amt))
		})
	}
}

func TestAccountID(t *testing.T) {
	assert.Equal(t, int64(1234567890), AccountID("1234567890"))
	assert.Equal(t, AccountID("XXXX-1234"), AccountID("XXXX-1234"))
	assert.NotEqual(t, AccountID("XXXX-1234"), AccountID("XXXX-1235"))
	assert.Positive(t, AccountID("-42"))
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()
	got := parser.preprocessOFX("\n\n<SEVERITY>Info</SEVERITY>\n<BANKTRANLIST\n")
	assert.Equal(t, "<SEVERITY>INFO</SEVERITY>\n<BANKTRANLIST>\n", got)
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(1234567890), accounts[0].ID)
	assert.Equal(t, "checking", accounts[0].Type)
	assert.Equal(t, "1000.00", accounts[0].Balance.String())

	accounts, err = parser.GetAccounts(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(4111111111111111), accounts[0].ID)
}
