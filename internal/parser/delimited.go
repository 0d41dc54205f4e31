package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// DelimitedParser handles loosely structured delimited text exports. Columns
// are positional: a ColumnMapping assigns logical roles to column positions,
// either supplied by the caller or guessed from the first row.
type DelimitedParser struct{}

func (p *DelimitedParser) Format() domain.Format {
	return domain.FormatDelimited
}

// ColumnMapping assigns logical roles to 1-based column positions.
// Zero means the role is absent.
type ColumnMapping struct {
	Description      int `json:"description"`
	Date             int `json:"date,omitempty"`
	Amount           int `json:"amount"`
	Account          int `json:"account,omitempty"`
	SecondaryAmount  int `json:"secondary_amount,omitempty"`
	SecondaryAccount int `json:"secondary_account,omitempty"`
}

// Empty reports whether no role is mapped at all.
func (m *ColumnMapping) Empty() bool {
	return m.Description == 0 && m.Date == 0 && m.Amount == 0 &&
		m.Account == 0 && m.SecondaryAmount == 0 && m.SecondaryAccount == 0
}

// roleSynonyms drives the auto-guess: case-insensitive substring match of a
// header cell against each synonym, Polish and English. Two-letter synonyms
// match only the whole cell, otherwise "ma" would hit "amount".
var roleSynonyms = []struct {
	assign   func(m *ColumnMapping, col int)
	assigned func(m *ColumnMapping) bool
	words    []string
}{
	{
		assign:   func(m *ColumnMapping, col int) { m.Date = col },
		assigned: func(m *ColumnMapping) bool { return m.Date != 0 },
		words:    []string{"data", "date"},
	},
	{
		assign:   func(m *ColumnMapping, col int) { m.Description = col },
		assigned: func(m *ColumnMapping) bool { return m.Description != 0 },
		words:    []string{"opis", "description", "tytuł", "tytul", "treść", "tresc", "nazwa"},
	},
	{
		assign:   func(m *ColumnMapping, col int) { m.SecondaryAmount = col },
		assigned: func(m *ColumnMapping) bool { return m.SecondaryAmount != 0 },
		words:    []string{"kwota ma", "credit", "ma"},
	},
	{
		assign:   func(m *ColumnMapping, col int) { m.Amount = col },
		assigned: func(m *ColumnMapping) bool { return m.Amount != 0 },
		words:    []string{"kwota", "amount", "wartość", "wartosc", "debet", "debit", "wn"},
	},
	{
		assign:   func(m *ColumnMapping, col int) { m.SecondaryAccount = col },
		assigned: func(m *ColumnMapping) bool { return m.SecondaryAccount != 0 },
		words:    []string{"konto ma", "konto 2"},
	},
	{
		assign:   func(m *ColumnMapping, col int) { m.Account = col },
		assigned: func(m *ColumnMapping) bool { return m.Account != 0 },
		words:    []string{"konto", "account", "rachunek"},
	},
}

// GuessMapping suggests a column mapping from a header row. The result is a
// suggestion to surface for confirmation, never a silent decision.
func GuessMapping(header []string) ColumnMapping {
	var m ColumnMapping
	for col, cell := range header {
		cell = strings.ToLower(strings.TrimSpace(cell))
		if cell == "" {
			continue
		}
		for _, role := range roleSynonyms {
			if role.assigned(&m) {
				continue
			}
			if matchesRole(cell, role.words) {
				role.assign(&m, col+1)
				break
			}
		}
	}
	return m
}

func matchesRole(cell string, words []string) bool {
	for _, w := range words {
		if len(w) <= 2 {
			if cell == w {
				return true
			}
			continue
		}
		if strings.Contains(cell, w) {
			return true
		}
	}
	return false
}

// dateLayouts accepted in a delimited date column.
var dateLayouts = []string{"2006-01-02", "02.01.2006", "02-01-2006", "02/01/2006"}

func (p *DelimitedParser) Parse(src Source) (*Result, error) {
	rows, err := readRows(src.Text)
	if err != nil {
		return nil, fmt.Errorf("delimited: %w", err)
	}

	mapping, dataRows, err := resolveMapping(src.Mapping, rows)
	if err != nil {
		return nil, err
	}

	result := &Result{Mapping: &mapping}
	for _, row := range dataRows {
		entry, ok := p.parseRow(row, mapping, len(result.Entries))
		if !ok {
			result.SkippedRows++
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// resolveMapping returns the mapping to use and the rows that carry data.
// With no caller-supplied mapping the first row is treated as a header and
// consumed by the guess.
func resolveMapping(supplied *ColumnMapping, rows [][]string) (ColumnMapping, [][]string, error) {
	if supplied != nil && !supplied.Empty() {
		return *supplied, rows, nil
	}
	if len(rows) == 0 {
		return ColumnMapping{}, nil, nil
	}
	guessed := GuessMapping(rows[0])
	if guessed.Empty() {
		return ColumnMapping{}, nil, fmt.Errorf("delimited: no column mapping supplied and none could be guessed from the first row")
	}
	return guessed, rows[1:], nil
}

// parseRow converts one delimited row into a RawEntry. A row is skipped, not
// erred, when its description is empty or both amounts resolve to zero.
func (p *DelimitedParser) parseRow(row []string, m ColumnMapping, index int) (domain.RawEntry, bool) {
	entry := domain.RawEntry{SourceRowIndex: index}

	entry.Description = strings.TrimSpace(cellAt(row, m.Description))
	entry.PrimaryAccountToken = strings.TrimSpace(cellAt(row, m.Account))
	entry.SecondaryAccountToken = strings.TrimSpace(cellAt(row, m.SecondaryAccount))

	if amount, err := ParseAmount(cellAt(row, m.Amount)); err == nil {
		entry.PrimaryAmount = amount
	}
	if m.SecondaryAmount != 0 {
		if amount, err := ParseAmount(cellAt(row, m.SecondaryAmount)); err == nil {
			entry.SecondaryAmount = &amount
		}
	}
	if m.Date != 0 {
		entry.Date = parseRowDate(cellAt(row, m.Date))
	}

	if entry.Description == "" {
		return domain.RawEntry{}, false
	}
	if entry.PrimaryAmount.IsZero() && (entry.SecondaryAmount == nil || entry.SecondaryAmount.IsZero()) {
		return domain.RawEntry{}, false
	}
	return entry, true
}

func parseRowDate(cell string) time.Time {
	cell = strings.TrimSpace(cell)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t
		}
	}
	return time.Time{}
}

// cellAt returns the 1-based column from a row, or "" when out of range.
func cellAt(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

// readRows splits the text into rows using the dominant separator of the
// first non-empty line (semicolon, tab or comma). Quoted fields are honored.
func readRows(text string) ([][]string, error) {
	sep := detectSeparator(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if emptyRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func detectSeparator(text string) rune {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		counts := map[rune]int{
			';':  strings.Count(line, ";"),
			'\t': strings.Count(line, "\t"),
			',':  strings.Count(line, ","),
		}
		best, bestCount := ';', 0
		for _, sep := range []rune{';', '\t', ','} {
			if counts[sep] > bestCount {
				best, bestCount = sep, counts[sep]
			}
		}
		return best
	}
	return ';'
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
