package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Format identifies the source-file format of an import.
type Format string

const (
	// FormatStatement is a line-oriented, tag-delimited bank statement (MT940 style).
	FormatStatement Format = "bank_statement"
	// FormatDelimited is positional delimited text with a role-to-column mapping.
	FormatDelimited Format = "delimited_text"
	// FormatFixedLayout is a fixed-cell-position settlement form.
	FormatFixedLayout Format = "settlement_form"
)

// DefaultCurrency is assumed for all source formats; none of them carries
// an explicit currency per line.
const DefaultCurrency = "PLN"

// RawEntry is one candidate transaction extracted from a source file,
// before account resolution. It is the common output of all three parsers.
type RawEntry struct {
	Description string

	PrimaryAmount   decimal.Decimal
	SecondaryAmount *decimal.Decimal // nil when the format carries a single amount

	// Account tokens as found in the source. Primary is the debit side,
	// secondary the credit side. Either may be empty.
	PrimaryAccountToken   string
	SecondaryAccountToken string

	Date time.Time

	// SourceRowIndex preserves the position of the entry in the source file.
	// Ordering is a correctness requirement: review screens match entries
	// against the uploaded file visually.
	SourceRowIndex int
}

// Valid reports whether the entry carries enough data to reach the resolver:
// at least one non-zero amount, and at least one of description/date.
func (e *RawEntry) Valid() bool {
	hasAmount := !e.PrimaryAmount.IsZero() ||
		(e.SecondaryAmount != nil && !e.SecondaryAmount.IsZero())
	hasIdentity := e.Description != "" || !e.Date.IsZero()
	return hasAmount && hasIdentity
}

// AccountType classifies a chart account.
type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
	AccountEquity    AccountType = "EQUITY"
)

// ChartAccount is one entry in the chart of accounts. Number is hierarchical
// and hyphen-segmented ("420-1-1-1"); hierarchy is expressed purely through
// string prefix containment, so "420-1" is an ancestor of "420-1-1".
type ChartAccount struct {
	ID     string
	Number string
	Name   string
	Type   AccountType
}

// ResolvedAccount is either a chart account or an explicit unresolved token.
// Absence is a first-class variant, never a silent nil.
type ResolvedAccount struct {
	Account *ChartAccount // nil when unresolved
	Token   string        // raw token as found in the source
}

// Resolved reports whether the token matched a chart account.
func (r ResolvedAccount) Resolved() bool {
	return r.Account != nil
}

// Resolve wraps a matched chart account.
func Resolve(account ChartAccount, token string) ResolvedAccount {
	a := account
	return ResolvedAccount{Account: &a, Token: token}
}

// Unresolved marks a token that matched nothing in the chart.
func Unresolved(token string) ResolvedAccount {
	return ResolvedAccount{Token: token}
}

// LedgerEntry is one synthesized, self-balancing double-entry transaction.
// DebitAmount always equals CreditAmount; multi-leg source structure is
// collapsed, not preserved.
type LedgerEntry struct {
	Description  string
	Date         time.Time
	Currency     string
	ExchangeRate decimal.Decimal // 1 for the local currency

	DebitAmount  decimal.Decimal
	CreditAmount decimal.Decimal

	DebitAccount  ResolvedAccount
	CreditAccount ResolvedAccount

	HasError    bool
	ErrorReason string

	DisplayOrder int
}

// Balanced reports the core invariant of every constructed entry.
func (e *LedgerEntry) Balanced() bool {
	return e.DebitAmount.Equal(e.CreditAmount)
}

// ImportBatch is the outcome of one import run: an ordered sequence of
// entries plus the blocking decision. It exists only for the duration of
// preview and commit; only its accepted entries are ever persisted.
type ImportBatch struct {
	BatchID    string
	DocumentID string
	Format     Format

	Entries []LedgerEntry

	// Blocked is set when the format's failure policy forbids committing
	// anything. MissingAccounts then lists every distinct unmatched token.
	Blocked         bool
	MissingAccounts []string

	// SkippedRows counts source rows dropped at parse time for structural
	// reasons (no amount, no description). Diagnostic only.
	SkippedRows int
}

// ErrorCount returns how many entries need manual account completion.
func (b *ImportBatch) ErrorCount() int {
	n := 0
	for i := range b.Entries {
		if b.Entries[i].HasError {
			n++
		}
	}
	return n
}
