package parser

import (
	"strings"
	"testing"
	"time"
)

func TestGuessMapping(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   ColumnMapping
	}{
		{
			name:   "Polish headers",
			header: []string{"Data", "Opis", "Kwota", "Konto"},
			want:   ColumnMapping{Date: 1, Description: 2, Amount: 3, Account: 4},
		},
		{
			name:   "English headers",
			header: []string{"Date", "Description", "Amount", "Account"},
			want:   ColumnMapping{Date: 1, Description: 2, Amount: 3, Account: 4},
		},
		{
			name:   "debit and credit pair",
			header: []string{"Opis", "Wn", "Ma"},
			want:   ColumnMapping{Description: 1, Amount: 2, SecondaryAmount: 3},
		},
		{
			name:   "two-letter synonym does not match inside longer words",
			header: []string{"Nazwa", "Suma"},
			want:   ColumnMapping{Description: 1},
		},
		{
			name:   "double account columns",
			header: []string{"Opis", "Kwota", "Konto", "Konto Ma"},
			want:   ColumnMapping{Description: 1, Amount: 2, Account: 3, SecondaryAccount: 4},
		},
		{
			name:   "nothing recognized",
			header: []string{"Furta", "6.020,00", "420-1-1-1"},
			want:   ColumnMapping{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GuessMapping(tt.header)
			if got != tt.want {
				t.Errorf("GuessMapping() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDelimitedParserSuppliedMapping(t *testing.T) {
	text := "Furta;\"6.020,00\";420-1-1-1\nZa zakupy;\"150,00\";411\n"
	mapping := &ColumnMapping{Description: 1, Amount: 2, Account: 3}

	p := &DelimitedParser{}
	result, err := p.Parse(Source{Text: text, Mapping: mapping})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	first := result.Entries[0]
	if first.Description != "Furta" {
		t.Errorf("description = %q", first.Description)
	}
	if first.PrimaryAmount.String() != "6020" {
		t.Errorf("amount = %s, want 6020", first.PrimaryAmount)
	}
	if first.PrimaryAccountToken != "420-1-1-1" {
		t.Errorf("account token = %q", first.PrimaryAccountToken)
	}
	if result.Mapping == nil || *result.Mapping != *mapping {
		t.Errorf("echoed mapping = %+v, want %+v", result.Mapping, mapping)
	}
}

func TestDelimitedParserGuessedMappingConsumesHeader(t *testing.T) {
	text := "Opis;Kwota;Konto\nFurta;\"6.020,00\";420-1-1-1\n"

	p := &DelimitedParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1: header row must be consumed by the guess", len(result.Entries))
	}
	want := ColumnMapping{Description: 1, Amount: 2, Account: 3}
	if result.Mapping == nil || *result.Mapping != want {
		t.Errorf("echoed mapping = %+v, want %+v", result.Mapping, want)
	}
}

func TestDelimitedParserNoMappingGuessable(t *testing.T) {
	text := "Furta;\"6.020,00\";420-1-1-1\n"

	p := &DelimitedParser{}
	_, err := p.Parse(Source{Text: text})
	if err == nil {
		t.Fatal("expected an error when no mapping is supplied and none can be guessed")
	}
}

func TestDelimitedParserSkipsDegenerateRows(t *testing.T) {
	text := strings.Join([]string{
		"Opis;Kwota;Konto",
		"Furta;\"6.020,00\";420-1-1-1",
		";\"100,00\";411",  // no description
		"Puste;\"0,00\";411", // zero amount
		"",
		"Taca;\"50,00\";701",
	}, "\n")

	p := &DelimitedParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	if result.SkippedRows != 2 {
		t.Errorf("SkippedRows = %d, want 2", result.SkippedRows)
	}
	if result.Entries[0].SourceRowIndex != 0 || result.Entries[1].SourceRowIndex != 1 {
		t.Errorf("entries not in source order: %d, %d",
			result.Entries[0].SourceRowIndex, result.Entries[1].SourceRowIndex)
	}
}

func TestDelimitedParserDateColumn(t *testing.T) {
	text := "Data;Opis;Kwota\n02.01.2024;Furta;\"100,00\"\n2024-01-03;Taca;\"50,00\"\n"

	p := &DelimitedParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(result.Entries))
	}
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !result.Entries[0].Date.Equal(want) {
		t.Errorf("date = %v, want %v", result.Entries[0].Date, want)
	}
	want = time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	if !result.Entries[1].Date.Equal(want) {
		t.Errorf("date = %v, want %v", result.Entries[1].Date, want)
	}
}

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{name: "semicolon", text: "Opis;Kwota;Konto\n", want: ';'},
		{name: "tab", text: "Opis\tKwota\tKonto\n", want: '\t'},
		{name: "comma", text: "Opis,Kwota,Konto\n", want: ','},
		{name: "semicolon wins over comma in amounts", text: "Furta;6,00;420\n", want: ';'},
		{name: "empty defaults to semicolon", text: "", want: ';'},
		{name: "leading blank lines are skipped", text: "\n\na\tb\n", want: '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectSeparator(tt.text); got != tt.want {
				t.Errorf("detectSeparator() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDelimitedParserSecondaryAmount(t *testing.T) {
	text := "Opis;Wn;Ma;Konto;Konto Ma\nPrzelew;\"100,00\";\"100,00\";100;201-1\n"

	p := &DelimitedParser{}
	result, err := p.Parse(Source{Text: text})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(result.Entries))
	}
	e := result.Entries[0]
	if e.SecondaryAmount == nil || e.SecondaryAmount.String() != "100" {
		t.Errorf("secondary amount = %v, want 100", e.SecondaryAmount)
	}
	if e.PrimaryAccountToken != "100" || e.SecondaryAccountToken != "201-1" {
		t.Errorf("tokens = %q/%q", e.PrimaryAccountToken, e.SecondaryAccountToken)
	}
}
