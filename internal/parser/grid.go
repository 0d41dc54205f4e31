package parser

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// ReadGrid converts delimited text into a rectangular grid with row and
// column positions preserved, for use with the fixed-layout parser. Unlike
// readRows, blank lines stay in place as empty rows: cell addressing in a
// form template depends on the physical layout.
func ReadGrid(text string) ([][]string, error) {
	sep := detectSeparator(text)

	var grid [][]string
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			grid = append(grid, nil)
			continue
		}
		r := csv.NewReader(strings.NewReader(line))
		r.Comma = sep
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		row, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("read grid line %d: %w", i+1, err)
		}
		grid = append(grid, row)
	}
	return grid, nil
}
