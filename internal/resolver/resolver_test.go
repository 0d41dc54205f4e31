package resolver

import (
	"testing"

	"github.com/szpilki111/omi-financial-compass-91-sub001/internal/domain"
)

func chart(numbers ...string) []domain.ChartAccount {
	accounts := make([]domain.ChartAccount, len(numbers))
	for i, n := range numbers {
		accounts[i] = domain.ChartAccount{ID: "id-" + n, Number: n, Name: "Konto " + n}
	}
	return accounts
}

func TestSnapshotResolveExact(t *testing.T) {
	s := NewSnapshot(chart("100", "420", "420-1-1-1"))

	got := s.Resolve("420")
	if !got.Resolved() {
		t.Fatal("expected a match")
	}
	// Exact equality wins even though "420-1-1-1" is also a prefix candidate.
	if got.Account.Number != "420" {
		t.Errorf("matched %q, want 420", got.Account.Number)
	}
	if got.Token != "420" {
		t.Errorf("token = %q, want 420", got.Token)
	}
}

func TestSnapshotResolveTokenAsAncestor(t *testing.T) {
	s := NewSnapshot(chart("100", "420-1-1"))

	got := s.Resolve("420")
	if !got.Resolved() {
		t.Fatal("expected a match")
	}
	if got.Account.Number != "420-1-1" {
		t.Errorf("matched %q, want 420-1-1", got.Account.Number)
	}
}

func TestSnapshotResolveTokenAsDescendant(t *testing.T) {
	s := NewSnapshot(chart("100", "420"))

	got := s.Resolve("420-1-1")
	if !got.Resolved() {
		t.Fatal("expected a match")
	}
	if got.Account.Number != "420" {
		t.Errorf("matched %q, want 420", got.Account.Number)
	}
	if got.Token != "420-1-1" {
		t.Errorf("token = %q, want the original token", got.Token)
	}
}

func TestSnapshotResolveDeterministicTieBreak(t *testing.T) {
	// Several descendants qualify; the lowest account number wins, regardless
	// of input order.
	s := NewSnapshot(chart("420-2", "420-1-5", "420-1"))

	for i := 0; i < 10; i++ {
		got := s.Resolve("420")
		if !got.Resolved() || got.Account.Number != "420-1" {
			t.Fatalf("matched %v, want 420-1", got.Account)
		}
	}
}

func TestSnapshotResolveNoMatch(t *testing.T) {
	s := NewSnapshot(chart("100", "420"))

	tests := []string{"999", "", "  ", "42", "4200"}
	for _, token := range tests {
		got := s.Resolve(token)
		if got.Resolved() {
			t.Errorf("Resolve(%q) matched %q, want unresolved", token, got.Account.Number)
		}
	}
}

func TestSnapshotResolveNoBarePrefixMatch(t *testing.T) {
	// Hierarchy is expressed through hyphen segments, not raw string prefixes:
	// "42" must not select "420".
	s := NewSnapshot(chart("420"))
	if got := s.Resolve("42"); got.Resolved() {
		t.Errorf("Resolve(42) matched %q, want unresolved", got.Account.Number)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	accounts := chart("100", "420")
	s := NewSnapshot(accounts)

	accounts[1].Number = "999"

	got := s.Resolve("420")
	if !got.Resolved() {
		t.Error("snapshot must not observe later mutation of the source slice")
	}
}

func TestExtendWithLocation(t *testing.T) {
	tests := []struct {
		code   string
		suffix string
		want   string
	}{
		{"420", "3", "420-3"},
		{"420", "", "420"},
		{"420", "  ", "420"},
		{"701", "12", "701-12"},
	}
	for _, tt := range tests {
		if got := ExtendWithLocation(tt.code, tt.suffix); got != tt.want {
			t.Errorf("ExtendWithLocation(%q, %q) = %q, want %q", tt.code, tt.suffix, got, tt.want)
		}
	}
}
