// Package parse implements the locale-specific value parsers: Brazilian
// monetary strings, reference dates embedded in column headers, and date
// cells in the formats the source systems emit.
package parse

import (
	"strings"

	"github.com/dfarias/escrow-etl/internal/table"
	"github.com/shopspring/decimal"
)

// Money converts a raw monetary cell of the form "R$ 1.234,56" into a
// numeric value. "." is the thousands separator and "," the decimal mark.
//
// Null in, Null out (absent is never coerced to zero). Already-numeric cells
// pass through unchanged. An empty string after cleaning becomes Null. The
// second return is false only when a non-empty string could not be converted;
// callers count those failures, they are never raised as errors.
func Money(v table.Value) (table.Value, bool) {
	switch v.Kind() {
	case table.KindString:
		// continue below
	default:
		return v, true
	}

	s := v.Str()
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.TrimSpace(s)

	if s == "" {
		return table.Null(), true
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return table.Null(), false
	}
	return table.Number(d), true
}
