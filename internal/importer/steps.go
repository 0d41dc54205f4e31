package importer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/builder"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/encoding"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/parser"
	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/resolver"
)

// Step is a single stage of the import pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// State is shared across pipeline steps. Data flows strictly forward:
// bytes → text → raw entries → resolved entries → ledger entries → policy.
type State struct {
	Data []byte
	Opts Options
	Now  time.Time

	Text          string
	EncodingLabel string
	Grid          [][]string

	ParseResult *parser.Result
	Snapshot    *resolver.Snapshot

	Batch *domain.ImportBatch
}

// DecodeStep turns raw bytes into canonical text. It cannot fail; decode
// uncertainty only manifests as potentially garbled text downstream.
type DecodeStep struct{}

func (s *DecodeStep) Execute(ctx context.Context, state *State) error {
	state.Text, state.EncodingLabel = encoding.Decode(state.Data)
	return nil
}

// ParseStep runs the format's parser over the decoded input.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	p, err := parser.New(state.Opts.Format)
	if err != nil {
		return err
	}

	src := parser.Source{
		Text:    state.Text,
		Grid:    state.Grid,
		Mapping: state.Opts.Mapping,
	}
	if state.Opts.Format == domain.FormatFixedLayout && len(src.Grid) == 0 {
		src.Grid = gridFromText(state.Text)
	}

	result, err := p.Parse(src)
	if err != nil {
		return fmt.Errorf("parse %s: %w", state.Opts.Format, err)
	}
	state.ParseResult = result
	state.Batch.SkippedRows = result.SkippedRows
	return nil
}

// LoadChartStep fetches the chart of accounts and freezes it into a
// snapshot for this run. A failure here is an external-dependency failure
// and is propagated unchanged.
type LoadChartStep struct {
	Chart ChartRepository
}

func (s *LoadChartStep) Execute(ctx context.Context, state *State) error {
	accounts, err := s.Chart.ListChartAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load chart of accounts: %w", err)
	}
	state.Snapshot = resolver.NewSnapshot(accounts)
	return nil
}

// bareCode matches the generic 3-digit ledger codes of the fixed-layout
// form, which need the location suffix before resolution.
var bareCode = regexp.MustCompile(`^\d{3}$`)

// BuildEntriesStep resolves account tokens and synthesizes balanced ledger
// entries, preserving source order. Structurally invalid raw entries are
// dropped here with a diagnostic count.
type BuildEntriesStep struct{}

func (s *BuildEntriesStep) Execute(ctx context.Context, state *State) error {
	for _, raw := range state.ParseResult.Entries {
		if !raw.Valid() {
			state.Batch.SkippedRows++
			continue
		}
		if raw.Date.IsZero() {
			raw.Date = state.Now
		}

		debit := state.Snapshot.Resolve(s.token(raw.PrimaryAccountToken, state))
		credit := state.Snapshot.Resolve(s.token(raw.SecondaryAccountToken, state))

		entry := builder.Build(raw, debit, credit)
		entry.DisplayOrder = len(state.Batch.Entries)
		state.Batch.Entries = append(state.Batch.Entries, entry)
	}
	return nil
}

func (s *BuildEntriesStep) token(token string, state *State) string {
	if state.Opts.Format == domain.FormatFixedLayout && bareCode.MatchString(token) {
		return resolver.ExtendWithLocation(token, state.Opts.LocationSuffix)
	}
	return token
}

// ApplyPolicyStep applies the format's failure policy.
//
// Bank-statement and delimited imports allow partial success: flagged
// entries stay in the batch for later manual completion. Fixed-layout
// imports are all-or-nothing: the form is filled in by internal staff
// against a known chart, so any unresolved account indicates a data-entry
// or configuration error and blocks the whole batch.
type ApplyPolicyStep struct{}

func (s *ApplyPolicyStep) Execute(ctx context.Context, state *State) error {
	state.Batch.MissingAccounts = missingAccounts(state.Batch.Entries)
	// Blocking keys on the error flag, not the missing-account list: a blank
	// account cell produces a flagged entry with an empty token, which never
	// appears in the list but must still block the form.
	if state.Opts.Format == domain.FormatFixedLayout && state.Batch.ErrorCount() > 0 {
		state.Batch.Blocked = true
	}
	return nil
}

// missingAccounts collects the distinct unresolved tokens across the batch,
// sorted, so the operator can fix the chart or the source in one pass.
func missingAccounts(entries []domain.LedgerEntry) []string {
	seen := map[string]bool{}
	var missing []string
	for i := range entries {
		for _, side := range []domain.ResolvedAccount{entries[i].DebitAccount, entries[i].CreditAccount} {
			if side.Resolved() || side.Token == "" || seen[side.Token] {
				continue
			}
			seen[side.Token] = true
			missing = append(missing, side.Token)
		}
	}
	sort.Strings(missing)
	return missing
}

// Pipeline executes steps in order, stopping at the first failure.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially against the shared state.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("import step %d: %w", i+1, err)
		}
	}
	return nil
}

// NewImportPipeline assembles the standard pipeline for one uploaded file.
func NewImportPipeline(chart ChartRepository) *Pipeline {
	return NewPipeline(
		&DecodeStep{},
		&ParseStep{},
		&LoadChartStep{Chart: chart},
		&BuildEntriesStep{},
		&ApplyPolicyStep{},
	)
}

// gridFromText converts delimited text into a rectangular grid for the
// fixed-layout parser, covering forms exported as CSV rather than handed
// over as a spreadsheet grid.
func gridFromText(text string) [][]string {
	rows, err := parser.ReadGrid(text)
	if err != nil {
		return nil
	}
	return rows
}
