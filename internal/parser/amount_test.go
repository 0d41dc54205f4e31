package parser

import "testing"

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "6020,00", want: "6020"},
		{input: "6.020,00", want: "6020"},
		{input: "6 020,00", want: "6020"},
		{input: "6020.00", want: "6020"},
		{input: "1,234.56", want: "1234.56"},
		{input: "1.234,56", want: "1234.56"},
		{input: "1,234,56", want: "1234.56"}, // malformed comma grouping
		{input: "1,234,567,89", want: "1234567.89"},
		{input: "1 234,56", want: "1234.56"}, // non-breaking space grouping
		{input: "0,50", want: "0.5"},
		{input: "-120,50", want: "-120.5"},
		{input: "450", want: "450"},
		{input: "  450,00  ", want: "450"},
		{input: "", wantErr: true},
		{input: "-", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}
