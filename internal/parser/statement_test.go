package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

const sampleStatement = `:20:ST/2024/001
:25:PL61109010140000071219812874
:60F:C240101PLN1000,00
:61:2401020102C450,00NTRFNONREF
:86:~20Zapłata za fakturę~21FV 1/2024~32ACME Sp. z o.o.~38PL27114020040000300201355387
:61:240103D120,50NTRFNONREF
:86:~20Opłata za prowadzenie rachunku
:62F:C240131PLN1329,50
`

func TestStatementParserHeader(t *testing.T) {
	p := &StatementParser{}
	result, err := p.Parse(Source{Text: sampleStatement})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	h := result.Statement
	if h == nil {
		t.Fatal("expected statement header")
	}
	if h.Reference != "ST/2024/001" {
		t.Errorf("Reference = %q, want %q", h.Reference, "ST/2024/001")
	}
	if h.AccountReference != "PL61109010140000071219812874" {
		t.Errorf("AccountReference = %q", h.AccountReference)
	}

	if !h.OpeningBalance.Credit {
		t.Error("opening balance should be credit")
	}
	if h.OpeningBalance.Currency != "PLN" {
		t.Errorf("opening balance currency = %q, want PLN", h.OpeningBalance.Currency)
	}
	if h.OpeningBalance.Amount.String() != "1000" {
		t.Errorf("opening balance = %s, want 1000", h.OpeningBalance.Amount)
	}
	if h.ClosingBalance.Amount.String() != "1329.5" {
		t.Errorf("closing balance = %s, want 1329.5", h.ClosingBalance.Amount)
	}
}

func TestStatementParserEntries(t *testing.T) {
	p := &StatementParser{}
	result, err := p.Parse(Source{Text: sampleStatement})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}

	// Credit line: money arrived, so the local account is the debit side and
	// the counterparty account the credit side.
	first := result.Entries[0]
	if first.Description != "Zapłata za fakturę FV 1/2024" {
		t.Errorf("description = %q", first.Description)
	}
	if first.PrimaryAmount.String() != "450" {
		t.Errorf("amount = %s, want 450", first.PrimaryAmount)
	}
	if first.PrimaryAccountToken != "PL61109010140000071219812874" {
		t.Errorf("debit token = %q, want local account", first.PrimaryAccountToken)
	}
	if first.SecondaryAccountToken != "PL27114020040000300201355387" {
		t.Errorf("credit token = %q, want counterparty account", first.SecondaryAccountToken)
	}
	wantDate := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !first.Date.Equal(wantDate) {
		t.Errorf("date = %v, want %v", first.Date, wantDate)
	}

	// Debit line: the pair is reversed and there is no counterparty account.
	second := result.Entries[1]
	if second.Description != "Opłata za prowadzenie rachunku" {
		t.Errorf("description = %q", second.Description)
	}
	if second.PrimaryAccountToken != "" {
		t.Errorf("debit token = %q, want empty", second.PrimaryAccountToken)
	}
	if second.SecondaryAccountToken != "PL61109010140000071219812874" {
		t.Errorf("credit token = %q, want local account", second.SecondaryAccountToken)
	}
	if second.PrimaryAmount.String() != "120.5" {
		t.Errorf("amount = %s, want 120.5", second.PrimaryAmount)
	}
}

func TestStatementParserSourceOrder(t *testing.T) {
	p := &StatementParser{}
	result, err := p.Parse(Source{Text: sampleStatement})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for i, e := range result.Entries {
		if e.SourceRowIndex != i {
			t.Errorf("entry %d has SourceRowIndex %d", i, e.SourceRowIndex)
		}
	}
}

func TestStatementParserDetailContinuation(t *testing.T) {
	// The details field spans multiple physical lines; untagged lines are
	// continuations joined without a separator.
	text := strings.Join([]string{
		":25:PL61109010140000071219812874",
		":61:240105C75,00NTRF",
		":86:~20Przelew przy",
		"chodzący od na",
		"jemcy",
		":61:240106C80,00NTRF",
		":86:~20Kolejny",
	}, "\n")

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	if got := result.Entries[0].Description; got != "Przelew przychodzący od najemcy" {
		t.Errorf("description = %q", got)
	}
	if got := result.Entries[1].Description; got != "Kolejny" {
		t.Errorf("description = %q", got)
	}
}

func TestStatementParserFlushAtEndOfInput(t *testing.T) {
	// The last transaction has no closing tag after it; end of input flushes
	// it exactly like a new tag would.
	text := ":61:240110C10,00NTRF\n:86:~20Taca"

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(result.Entries))
	}
	if result.Entries[0].Description != "Taca" {
		t.Errorf("description = %q, want Taca", result.Entries[0].Description)
	}
}

func TestStatementParserPlaceholderDescription(t *testing.T) {
	// A transaction without a details field gets the placeholder description.
	text := ":61:240110C10,00NTRF\n:61:240111C20,00NTRF\n:86:~20Znany opis"

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	if result.Entries[0].Description != "Operacja bankowa" {
		t.Errorf("description = %q, want placeholder", result.Entries[0].Description)
	}
	if result.Entries[1].Description != "Znany opis" {
		t.Errorf("description = %q", result.Entries[1].Description)
	}
}

func TestStatementParserCounterpartyNameFallback(t *testing.T) {
	// No purpose sub-fields: the counterparty name serves as description.
	text := ":61:240110D33,00NTRF\n:86:~32Jan Kowalski~33ul. Polna 1"

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(result.Entries))
	}
	if got := result.Entries[0].Description; got != "Jan Kowalski ul. Polna 1" {
		t.Errorf("description = %q", got)
	}
}

func TestStatementParserAngleBracketSubTags(t *testing.T) {
	text := ":61:240110C99,99NTRF\n:86:<20Czynsz<38PL27114020040000300201355387"

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(result.Entries))
	}
	e := result.Entries[0]
	if e.Description != "Czynsz" {
		t.Errorf("description = %q, want Czynsz", e.Description)
	}
	if e.SecondaryAccountToken != "PL27114020040000300201355387" {
		t.Errorf("credit token = %q", e.SecondaryAccountToken)
	}
}

func TestStatementParserMalformedHeaderDegrades(t *testing.T) {
	// A malformed transaction header must not abort the parse; the entry
	// degrades to zero values and downstream validation drops it.
	text := ":61:garbage\n:86:~20Nieczytelne\n:61:240112C5,00NTRF\n:86:~20Dobre"

	p := &StatementParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	if !result.Entries[0].PrimaryAmount.IsZero() {
		t.Errorf("degraded entry amount = %s, want 0", result.Entries[0].PrimaryAmount)
	}
	if !result.Entries[0].Date.IsZero() {
		t.Errorf("degraded entry date = %v, want zero", result.Entries[0].Date)
	}
	if result.Entries[1].PrimaryAmount.String() != "5" {
		t.Errorf("second entry amount = %s, want 5", result.Entries[1].PrimaryAmount)
	}
}

func TestStatementParserBothAmountSidesEqual(t *testing.T) {
	p := &StatementParser{}
	result, err := p.Parse(Source{Text: sampleStatement})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	for i, e := range result.Entries {
		if e.SecondaryAmount == nil {
			t.Fatalf("entry %d has nil secondary amount", i)
		}
		if !e.PrimaryAmount.Equal(*e.SecondaryAmount) {
			t.Errorf("entry %d amounts differ: %s vs %s", i, e.PrimaryAmount, e.SecondaryAmount)
		}
	}
}

func TestStatementParserFormat(t *testing.T) {
	p := &StatementParser{}
	if p.Format() != domain.FormatStatement {
		t.Errorf("Format() = %q", p.Format())
	}
}
