package docnum

import (
	"context"
	"testing"
)

func TestMemoryAllocatorSequences(t *testing.T) {
	a := NewMemoryAllocator()
	ctx := context.Background()

	first, err := a.Allocate(ctx, "P1", 3, 2024)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if first != "RK/P1/03/2024/1" {
		t.Errorf("first number = %q, want RK/P1/03/2024/1", first)
	}

	second, _ := a.Allocate(ctx, "P1", 3, 2024)
	if second != "RK/P1/03/2024/2" {
		t.Errorf("second number = %q, want RK/P1/03/2024/2", second)
	}

	// Sequences are independent per location and period.
	other, _ := a.Allocate(ctx, "P2", 3, 2024)
	if other != "RK/P2/03/2024/1" {
		t.Errorf("other location = %q, want RK/P2/03/2024/1", other)
	}
	nextMonth, _ := a.Allocate(ctx, "P1", 4, 2024)
	if nextMonth != "RK/P1/04/2024/1" {
		t.Errorf("next month = %q, want RK/P1/04/2024/1", nextMonth)
	}
}

func TestNumberPrefixPadsMonth(t *testing.T) {
	if got := numberPrefix("P1", 3, 2024); got != "RK/P1/03/2024/" {
		t.Errorf("numberPrefix = %q", got)
	}
	if got := numberPrefix("P1", 11, 2024); got != "RK/P1/11/2024/" {
		t.Errorf("numberPrefix = %q", got)
	}
}
