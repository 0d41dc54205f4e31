package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// FixedLayoutParser handles the settlement-form spreadsheet: meaning is
// determined by cell position, not headers. Header fields sit in fixed cells
// (with fallback cells for minor layout variants); line items sit in two
// parallel column bands, one for inflows and one for outflows, starting at a
// fixed row and continuing until the grid ends.
type FixedLayoutParser struct{}

func (p *FixedLayoutParser) Format() domain.Format {
	return domain.FormatFixedLayout
}

// CellRef addresses one grid cell, zero-based.
type CellRef struct {
	Row, Col int
}

// Band describes one line-item column band.
type Band struct {
	Description int
	Account     int
	Amount      int
}

// FormTemplate maps grid positions to semantic fields for a known external
// form. Fallbacks cover the minor layout variants circulating between
// locations.
type FormTemplate struct {
	Name          CellRef
	NameFallback  CellRef
	Location      CellRef
	PaymentMethod CellRef
	CashAccount   CellRef
	Month         CellRef
	MonthFallback CellRef
	Year          CellRef

	ItemsStartRow int
	Inflow        Band
	Outflow       Band
}

// DefaultSettlementTemplate reflects the settlement form as distributed to
// the locations.
var DefaultSettlementTemplate = FormTemplate{
	Name:          CellRef{Row: 1, Col: 2},
	NameFallback:  CellRef{Row: 1, Col: 3},
	Location:      CellRef{Row: 2, Col: 2},
	PaymentMethod: CellRef{Row: 3, Col: 2},
	CashAccount:   CellRef{Row: 4, Col: 2},
	Month:         CellRef{Row: 5, Col: 2},
	MonthFallback: CellRef{Row: 5, Col: 3},
	Year:          CellRef{Row: 5, Col: 4},

	ItemsStartRow: 8,
	Inflow:        Band{Description: 0, Account: 1, Amount: 2},
	Outflow:       Band{Description: 4, Account: 5, Amount: 6},
}

// FormHeader is the fixed-cell header of the settlement form.
type FormHeader struct {
	Name              string
	Location          string
	PaymentMethod     string
	CashAccountNumber string
	Month             int
	Year              int
}

// PeriodDate returns the first day of the form's month.
func (h *FormHeader) PeriodDate() time.Time {
	return time.Date(h.Year, time.Month(h.Month), 1, 0, 0, 0, 0, time.UTC)
}

// accountCodePattern gates line items: only strict 3-digit codes qualify.
var accountCodePattern = regexp.MustCompile(`^\d{3}$`)

func (p *FixedLayoutParser) Parse(src Source) (*Result, error) {
	template := DefaultSettlementTemplate
	if src.Template != nil {
		template = *src.Template
	}

	header := readHeader(src.Grid, template)
	result := &Result{Form: &header}
	date := header.PeriodDate()

	for row := template.ItemsStartRow; row < len(src.Grid); row++ {
		// Inflows debit the cash/bank account; outflows credit it.
		if entry, ok := readItem(src.Grid[row], template.Inflow, date, len(result.Entries)); ok {
			entry.SecondaryAccountToken = entry.PrimaryAccountToken
			entry.PrimaryAccountToken = header.CashAccountNumber
			result.Entries = append(result.Entries, entry)
		}
		if entry, ok := readItem(src.Grid[row], template.Outflow, date, len(result.Entries)); ok {
			entry.SecondaryAccountToken = header.CashAccountNumber
			result.Entries = append(result.Entries, entry)
		}
	}
	return result, nil
}

func readHeader(grid [][]string, t FormTemplate) FormHeader {
	now := time.Now()
	h := FormHeader{
		Name:              cellWithFallback(grid, t.Name, t.NameFallback),
		Location:          gridCell(grid, t.Location),
		PaymentMethod:     gridCell(grid, t.PaymentMethod),
		CashAccountNumber: gridCell(grid, t.CashAccount),
	}

	// Invalid month/year values fall back to the current period rather than
	// failing the parse.
	h.Month = int(now.Month())
	if m, err := strconv.Atoi(cellWithFallback(grid, t.Month, t.MonthFallback)); err == nil && m >= 1 && m <= 12 {
		h.Month = m
	}
	h.Year = now.Year()
	if y, err := strconv.Atoi(gridCell(grid, t.Year)); err == nil && y >= 1990 && y <= 2100 {
		h.Year = y
	}
	return h
}

// readItem reads one band of one row. A row contributes an item only when
// its account-code cell is a strict 3-digit code and its amount is non-zero.
func readItem(row []string, band Band, date time.Time, index int) (domain.RawEntry, bool) {
	code := strings.TrimSpace(rowCell(row, band.Account))
	if !accountCodePattern.MatchString(code) {
		return domain.RawEntry{}, false
	}
	amount, err := ParseAmount(rowCell(row, band.Amount))
	if err != nil || amount.IsZero() {
		return domain.RawEntry{}, false
	}

	return domain.RawEntry{
		Description:         strings.TrimSpace(rowCell(row, band.Description)),
		PrimaryAmount:       amount,
		PrimaryAccountToken: code,
		Date:                date,
		SourceRowIndex:      index,
	}, true
}

func cellWithFallback(grid [][]string, ref, fallback CellRef) string {
	if v := gridCell(grid, ref); v != "" {
		return v
	}
	return gridCell(grid, fallback)
}

func gridCell(grid [][]string, ref CellRef) string {
	if ref.Row < 0 || ref.Row >= len(grid) {
		return ""
	}
	return strings.TrimSpace(rowCell(grid[ref.Row], ref.Col))
}

func rowCell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
