// Package transform implements the transformation engine: the wide-to-long
// balance reshape, in-place withdrawal cleaning, canonical column renaming
// and the dimensional modeling step that wires surrogate and foreign keys.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/dfarias/escrow-etl/internal/classify"
	"github.com/dfarias/escrow-etl/internal/parse"
	"github.com/dfarias/escrow-etl/internal/runlog"
	"github.com/dfarias/escrow-etl/internal/table"
)

// ErrNoMonetaryColumns means the balance source carries no column the
// classifier recognizes as a value: there is nothing to model, so the run
// aborts.
var ErrNoMonetaryColumns = errors.New("no monetary columns identified in balance source")

// BalanceReport summarizes one reshape for logging and verification.
type BalanceReport struct {
	InputRows          int
	IdentifierColumns  []string
	IdentifierFallback bool
	MonetaryColumns    []string
	FailedMoney        int
	DroppedNullValues  int
	DroppedBadDates    int
}

// ReshapeBalances pivots the raw balance table (one column per reference
// month) into the canonical balance fact shape: one row per account, parcel
// and month, with reference_date resolved from the column header and
// final_balance parsed from the cell.
//
// Rows whose balance is absent after monetary parsing are dropped, as are
// rows whose header yields no reference date; both drops are counted, never
// fatal. The only fatal condition is a source with zero monetary columns.
func ReshapeBalances(src *table.Table, rec *runlog.Recorder) (*table.Table, BalanceReport, error) {
	rep := BalanceReport{InputRows: src.Len()}

	if n := src.TrimColumnNames(); n > 0 {
		rec.Info(fmt.Sprintf("column cleanup: %d balance headers trimmed", n))
	}
	rec.Info(fmt.Sprintf("balance source: %d rows, %d columns", src.Len(), len(src.Columns)))

	cls := classify.Columns(src.Columns, classify.BalanceRules)

	ids, fallback := cls.Identifiers()
	rep.IdentifierColumns = ids
	rep.IdentifierFallback = fallback
	if fallback {
		rec.Warning("no identifier columns recognized in balance source, using all non-monetary columns")
	}
	rec.Info("identifier columns: " + strings.Join(ids, ", "))

	monetary := cls.ByRole(classify.Monetary)
	rep.MonetaryColumns = monetary
	if len(monetary) == 0 {
		rec.Error("no balance/value columns identified in balance source")
		return nil, rep, ErrNoMonetaryColumns
	}
	rec.Info("monetary columns: " + strings.Join(monetary, ", "))

	// Resolve each monetary header to its reference month once.
	refDates := make(map[string]civil.Date, len(monetary))
	for _, col := range monetary {
		d, ok := parse.HeaderDate(col)
		if !ok {
			rec.Warning(fmt.Sprintf("could not resolve a reference date from column %q, its rows will be dropped", col))
			continue
		}
		refDates[col] = d
	}

	outCols := append(append([]string(nil), ids...), ColReferenceDate, ColFinalBalance)
	out := table.New(outCols...)

	for _, row := range src.Rows {
		for _, col := range monetary {
			balance, ok := parse.Money(row.Get(col))
			if !ok {
				rep.FailedMoney++
			}
			if balance.IsNull() {
				rep.DroppedNullValues++
				continue
			}
			refDate, ok := refDates[col]
			if !ok {
				rep.DroppedBadDates++
				continue
			}

			nr := make(table.Row, len(outCols))
			for _, id := range ids {
				nr[id] = row.Get(id)
			}
			nr[ColReferenceDate] = table.Date(refDate)
			nr[ColFinalBalance] = balance
			out.Append(nr)
		}
	}

	if rep.FailedMoney > 0 {
		rec.Warning(fmt.Sprintf("monetary conversion: %d balance cells could not be converted", rep.FailedMoney))
	}
	if rep.DroppedNullValues > 0 {
		rec.Info(fmt.Sprintf("dropped %d rows with absent balances", rep.DroppedNullValues))
	}
	if rep.DroppedBadDates > 0 {
		rec.Warning(fmt.Sprintf("dropped %d rows with unresolvable reference dates", rep.DroppedBadDates))
	}

	renames := ResolveCanonicalNames(ids, BalanceTargets)
	for oldName, canonical := range renames {
		out.RenameColumn(oldName, canonical)
	}
	if len(renames) > 0 {
		rec.Info(fmt.Sprintf("renamed %d balance identifier columns to canonical names", len(renames)))
	}

	rec.Success(fmt.Sprintf("balance reshape complete: %d fact rows", out.Len()))
	return out, rep, nil
}
