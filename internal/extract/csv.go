package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/dfarias/escrow-etl/internal/table"
)

// readCSV parses a semicolon-delimited CSV export. Files that are not valid
// UTF-8 are decoded as ISO-8859-1 first, which is what the upstream bank
// systems emit.
func readCSV(data []byte) (*table.Table, error) {
	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("decode ISO-8859-1 source: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ';'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV source: %w", err)
	}
	return tableFromRecords(records)
}
