package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// StatementParser handles the tag-delimited bank-statement format (MT940
// style). Input is line-oriented: each line either begins with a
// colon-delimited tag or continues the previous multi-line field.
//
// The parser is an explicit finite-state machine with three states:
//
//	Idle                 before the first transaction tag
//	InTransactionHeader  after :61:, header parsed, no details yet
//	InDetailField        after :86:, accumulating the detail buffer
//
// Line-level malformation never aborts the parse. A bad date or amount
// degrades the affected entry to a zero value; downstream validation drops
// degenerate entries.
type StatementParser struct{}

func (p *StatementParser) Format() domain.Format {
	return domain.FormatStatement
}

// StatementHeader is statement-level data: the source account reference and
// the opening/closing balance lines.
type StatementHeader struct {
	AccountReference string
	Reference        string

	OpeningBalance StatementBalance
	ClosingBalance StatementBalance
}

// StatementBalance is one :60F:/:62F: balance line.
type StatementBalance struct {
	Credit   bool
	Date     time.Time
	Currency string
	Amount   decimal.Decimal
}

// defaultStatementDescription is used when a transaction never opened a
// details field.
const defaultStatementDescription = "Operacja bankowa"

type statementState int

const (
	stateIdle statementState = iota
	stateInTransactionHeader
	stateInDetailField
)

// tagPattern matches a recognized tag at the start of a line, e.g. ":61:".
var tagPattern = regexp.MustCompile(`^:(\d{2}[A-Z]?):`)

// txnHeaderPattern captures the :61: body: 6-digit value date, optional
// 4-digit booking date, optional reversal marker, direction letter, amount
// with comma decimal separator, trailing free-form reference.
var txnHeaderPattern = regexp.MustCompile(`^(\d{6})(\d{4})?(R?[DC])([\d,]+)(.*)$`)

// balancePattern captures a :60F:/:62F: body: direction, 6-digit date,
// currency, amount.
var balancePattern = regexp.MustCompile(`^([DC])(\d{6})([A-Z]{3})([\d,]+)$`)

// detailSubTag marks a 2-digit sub-field code inside the :86: buffer. Banks
// emit either "~" or "<" as the sub-field separator.
var detailSubTag = regexp.MustCompile(`[~<](\d{2})`)

func (p *StatementParser) Parse(src Source) (*Result, error) {
	m := &statementMachine{}
	for _, line := range strings.Split(src.Text, "\n") {
		m.feed(strings.TrimRight(line, "\r"))
	}
	m.finish()

	return &Result{
		Entries:   m.entries,
		Statement: &m.header,
	}, nil
}

// statementMachine holds everything that used to be implicit loop state:
// the current state, the pending transaction header and the detail buffer.
type statementMachine struct {
	state  statementState
	header StatementHeader

	pending *pendingTransaction
	detail  []string

	entries []domain.RawEntry
}

// pendingTransaction is a parsed :61: header waiting for its details.
type pendingTransaction struct {
	date      time.Time
	credit    bool
	amount    decimal.Decimal
	reference string
}

func (m *statementMachine) feed(line string) {
	tag := tagPattern.FindStringSubmatch(line)
	if tag == nil {
		// Untagged line: continuation of an open detail field, noise otherwise.
		if m.state == stateInDetailField {
			m.detail = append(m.detail, line)
		}
		return
	}

	// Any recognized tag closes an open detail field; the new tag is then
	// processed from the top of the transition table.
	if m.state == stateInDetailField {
		m.state = stateInTransactionHeader
	}

	body := line[len(tag[0]):]
	switch tag[1] {
	case "20":
		m.header.Reference = strings.TrimSpace(body)
	case "25":
		m.header.AccountReference = strings.TrimSpace(body)
	case "60F", "60M":
		m.header.OpeningBalance = parseBalance(body)
	case "62F", "62M":
		m.header.ClosingBalance = parseBalance(body)
	case "61":
		m.flush()
		m.pending = parseTransactionHeader(body)
		m.state = stateInTransactionHeader
	case "86":
		if m.state == stateInTransactionHeader {
			m.detail = append(m.detail, body)
			m.state = stateInDetailField
		}
	}
}

// finish flushes the pending entry exactly as a new-transaction tag would.
func (m *statementMachine) finish() {
	m.flush()
	m.state = stateIdle
}

// flush converts the accumulated header and detail buffer into one RawEntry.
func (m *statementMachine) flush() {
	if m.pending == nil {
		m.detail = nil
		return
	}

	description, counterparty, counterpartyAccount := parseDetailBuffer(m.detail)
	if description == "" {
		description = counterparty
	}
	if description == "" {
		description = defaultStatementDescription
	}

	amount := m.pending.amount
	entry := domain.RawEntry{
		Description:     description,
		PrimaryAmount:   amount,
		SecondaryAmount: &amount,
		Date:            m.pending.date,
		SourceRowIndex:  len(m.entries),
	}

	// Credit on the statement means money arrived on the local account:
	// the local account is debited, the counterparty side credited. Debit
	// lines reverse the pair.
	if m.pending.credit {
		entry.PrimaryAccountToken = m.header.AccountReference
		entry.SecondaryAccountToken = counterpartyAccount
	} else {
		entry.PrimaryAccountToken = counterpartyAccount
		entry.SecondaryAccountToken = m.header.AccountReference
	}

	m.entries = append(m.entries, entry)
	m.pending = nil
	m.detail = nil
}

// parseTransactionHeader parses a :61: body. Malformed date or amount
// substrings degrade to zero values rather than failing the parse.
func parseTransactionHeader(body string) *pendingTransaction {
	t := &pendingTransaction{}

	match := txnHeaderPattern.FindStringSubmatch(strings.TrimSpace(body))
	if match == nil {
		return t
	}

	if date, err := time.Parse("060102", match[1]); err == nil {
		t.date = date
	}
	t.credit = strings.HasSuffix(match[3], "C")
	if amount, err := ParseAmount(match[4]); err == nil {
		t.amount = amount
	}
	t.reference = strings.TrimSpace(match[5])
	return t
}

func parseBalance(body string) StatementBalance {
	b := StatementBalance{}
	match := balancePattern.FindStringSubmatch(strings.TrimSpace(body))
	if match == nil {
		return b
	}
	b.Credit = match[1] == "C"
	if date, err := time.Parse("060102", match[2]); err == nil {
		b.Date = date
	}
	b.Currency = match[3]
	if amount, err := ParseAmount(match[4]); err == nil {
		b.Amount = amount
	}
	return b
}

// parseDetailBuffer extracts the human-readable description, the counterparty
// name and the counterparty account number from a closed :86: buffer.
//
// Sub-fields are tagged with a 2-digit code: 20-25 carry the payment purpose,
// 32-33 the counterparty name, 38 the counterparty account number. A buffer
// without any sub-tags is treated as a plain description.
func parseDetailBuffer(lines []string) (description, name, account string) {
	if len(lines) == 0 {
		return "", "", ""
	}
	buf := strings.Join(lines, "")

	marks := detailSubTag.FindAllStringSubmatchIndex(buf, -1)
	if marks == nil {
		return strings.TrimSpace(buf), "", ""
	}

	var purpose, nameParts []string
	for i, mark := range marks {
		code := buf[mark[2]:mark[3]]
		end := len(buf)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		value := strings.TrimSpace(buf[mark[1]:end])
		if value == "" {
			continue
		}
		switch code {
		case "20", "21", "22", "23", "24", "25":
			purpose = append(purpose, value)
		case "32", "33":
			nameParts = append(nameParts, value)
		case "38":
			account = strings.ReplaceAll(value, " ", "")
		}
	}

	return strings.Join(purpose, " "), strings.Join(nameParts, " "), account
}
