// Package builder converts raw entries plus resolved accounts into balanced
// ledger entries.
package builder

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// Build synthesizes one ledger entry from a raw entry and its resolved
// account pair. The entry is always self-balancing: the larger of the two
// source-side amounts (or the single shared amount) is used for both sides.
// Multi-leg source structure is deliberately collapsed, not preserved.
//
// An unresolved account on either side does not prevent construction; the
// entry is flagged with a reason naming the token so it can be completed
// manually or block the batch, depending on the format's policy.
func Build(raw domain.RawEntry, debit, credit domain.ResolvedAccount) domain.LedgerEntry {
	amount := raw.PrimaryAmount
	if raw.SecondaryAmount != nil && raw.SecondaryAmount.GreaterThan(amount) {
		amount = *raw.SecondaryAmount
	}

	entry := domain.LedgerEntry{
		Description:   raw.Description,
		Date:          raw.Date,
		Currency:      domain.DefaultCurrency,
		ExchangeRate:  decimal.NewFromInt(1),
		DebitAmount:   amount,
		CreditAmount:  amount,
		DebitAccount:  debit,
		CreditAccount: credit,
		DisplayOrder:  raw.SourceRowIndex,
	}

	switch {
	case !debit.Resolved() && !credit.Resolved():
		entry.HasError = true
		entry.ErrorReason = fmt.Sprintf("unresolved debit account %q and credit account %q", debit.Token, credit.Token)
	case !debit.Resolved():
		entry.HasError = true
		entry.ErrorReason = fmt.Sprintf("unresolved debit account %q", debit.Token)
	case !credit.Resolved():
		entry.HasError = true
		entry.ErrorReason = fmt.Sprintf("unresolved credit account %q", credit.Token)
	}

	return entry
}
