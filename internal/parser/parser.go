// Package parser extracts candidate ledger transactions from decoded source
// files. Three interchangeable parsers, one per source format, produce the
// same intermediate type (domain.RawEntry) so that resolution, construction
// and validation downstream are written once.
package parser

import (
	"fmt"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// Source is the input to a parser. Statement and delimited parsers consume
// Text; the fixed-layout parser consumes Grid. Mapping and Template are
// format-specific options, both optional.
type Source struct {
	Text string
	Grid [][]string

	// Mapping assigns logical roles to column positions for the delimited
	// format. Nil means guess from the first row.
	Mapping *ColumnMapping

	// Template describes the fixed-layout form. Nil means the default
	// settlement-form template.
	Template *FormTemplate
}

// Result is the parser output: entries in source order plus format-specific
// header data and diagnostics.
type Result struct {
	Entries []domain.RawEntry

	// Statement carries account reference and opening/closing balances for
	// the bank-statement format, nil otherwise.
	Statement *StatementHeader

	// Form carries the header cells of the fixed-layout format, nil otherwise.
	Form *FormHeader

	// Mapping echoes the column mapping actually used by the delimited
	// parser, including a guessed one, so callers can surface it for
	// confirmation before committing.
	Mapping *ColumnMapping

	// SkippedRows counts rows dropped for structural reasons.
	SkippedRows int
}

// Parser is implemented by all three format parsers.
type Parser interface {
	Parse(src Source) (*Result, error)
	Format() domain.Format
}

// New returns the parser for the given format.
func New(format domain.Format) (Parser, error) {
	switch format {
	case domain.FormatStatement:
		return &StatementParser{}, nil
	case domain.FormatDelimited:
		return &DelimitedParser{}, nil
	case domain.FormatFixedLayout:
		return &FixedLayoutParser{}, nil
	default:
		return nil, fmt.Errorf("parser: unsupported format %q", format)
	}
}
