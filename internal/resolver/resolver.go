// Package resolver maps free-form account tokens from source files onto the
// chart of accounts. Resolution runs against an immutable snapshot of the
// chart: concurrent imports each get their own value and never observe a
// torn read when the chart is edited mid-import.
package resolver

import (
	"sort"
	"strings"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

// Snapshot is a point-in-time copy of the chart of accounts, indexed for
// resolution.
type Snapshot struct {
	accounts []domain.ChartAccount
	byNumber map[string]int
}

// NewSnapshot copies and indexes the given accounts. The copy is sorted by
// account number so hierarchy matches are deterministic: among several
// prefix candidates the lowest number wins.
func NewSnapshot(accounts []domain.ChartAccount) *Snapshot {
	s := &Snapshot{
		accounts: make([]domain.ChartAccount, len(accounts)),
		byNumber: make(map[string]int, len(accounts)),
	}
	copy(s.accounts, accounts)
	sort.Slice(s.accounts, func(i, j int) bool {
		return s.accounts[i].Number < s.accounts[j].Number
	})
	for i, a := range s.accounts {
		s.byNumber[a.Number] = i
	}
	return s
}

// Len returns the number of accounts in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.accounts)
}

// Resolve matches a raw token against the chart. Matching order, first
// match wins:
//
//  1. exact equality with an account number,
//  2. hierarchy match via hyphen-prefix containment in either direction:
//     the token may be an ancestor of an account ("420" selecting
//     "420-1-1") or a descendant of one ("420-1-1" against a chart that
//     only carries "420"),
//  3. no match, returned as an explicit Unresolved value.
//
// The directional ambiguity in step 2 is intentional: callers supply either
// a parent code expecting auto-selection of a child, or a fully qualified
// child code.
func (s *Snapshot) Resolve(token string) domain.ResolvedAccount {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Unresolved(token)
	}

	if i, ok := s.byNumber[token]; ok {
		return domain.Resolve(s.accounts[i], token)
	}

	for _, a := range s.accounts {
		if strings.HasPrefix(a.Number, token+"-") || strings.HasPrefix(token, a.Number+"-") {
			return domain.Resolve(a, token)
		}
	}

	return domain.Unresolved(token)
}

// ExtendWithLocation appends a location-specific suffix to a base account
// code, producing the analytical sub-account token ("420" + "3" → "420-3").
// The fixed-layout form encodes only the generic ledger code per line and
// carries the location separately in its header.
func ExtendWithLocation(code, locationSuffix string) string {
	locationSuffix = strings.TrimSpace(locationSuffix)
	if locationSuffix == "" {
		return code
	}
	return code + "-" + locationSuffix
}
