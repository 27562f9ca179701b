package transform

import (
	"fmt"
	"strings"

	"github.com/dfarias/escrow-etl/internal/classify"
	"github.com/dfarias/escrow-etl/internal/parse"
	"github.com/dfarias/escrow-etl/internal/runlog"
	"github.com/dfarias/escrow-etl/internal/table"
)

// WithdrawalReport summarizes one normalization pass.
type WithdrawalReport struct {
	MonetaryColumns []string
	DateColumns     []string
	FailedMoney     int
	FailedDates     int
	Renamed         map[string]string
}

// NormalizeWithdrawals cleans the raw withdrawal table in place: monetary
// columns are parsed with the extended keyword list, date columns are parsed
// per their declared format, and known header variants are renamed to
// canonical names. The output has exactly the input's row count; withdrawal
// rows are never dropped, failed cells just become absent.
func NormalizeWithdrawals(src *table.Table, rec *runlog.Recorder) (*table.Table, WithdrawalReport) {
	rep := WithdrawalReport{Renamed: make(map[string]string)}

	out := table.New(src.Columns...)
	for _, row := range src.Rows {
		out.Append(row.Clone())
	}

	if n := out.TrimColumnNames(); n > 0 {
		rec.Info(fmt.Sprintf("column cleanup: %d withdrawal headers trimmed", n))
	}
	rec.Info(fmt.Sprintf("withdrawal source: %d rows, %d columns", out.Len(), len(out.Columns)))

	cls := classify.Columns(out.Columns, classify.WithdrawalRules)

	rep.MonetaryColumns = cls.ByRole(classify.Monetary)
	if len(rep.MonetaryColumns) == 0 {
		// Unlike the balance source this is survivable: some transaction
		// extracts carry no detectable monetary column.
		rec.Warning("no monetary columns identified in withdrawal source")
	} else {
		rec.Info("monetary columns: " + strings.Join(rep.MonetaryColumns, ", "))
	}

	for _, col := range rep.MonetaryColumns {
		for _, row := range out.Rows {
			cleaned, ok := parse.Money(row.Get(col))
			if !ok {
				rep.FailedMoney++
			}
			row[col] = cleaned
		}
	}
	if rep.FailedMoney > 0 {
		rec.Warning(fmt.Sprintf("monetary conversion: %d withdrawal cells could not be converted", rep.FailedMoney))
	}

	rep.DateColumns = cls.ByRole(classify.Date)
	if len(rep.DateColumns) > 0 {
		rec.Info("date columns: " + strings.Join(rep.DateColumns, ", "))
	}
	for _, col := range rep.DateColumns {
		layouts := dateLayoutsFor(col)
		valid := 0
		for _, row := range out.Rows {
			parsed, ok := parse.CellDate(row.Get(col), layouts...)
			if !ok {
				rep.FailedDates++
			}
			if !parsed.IsNull() {
				valid++
			}
			row[col] = parsed
		}
		rec.Info(fmt.Sprintf("column %s: %d/%d valid dates", col, valid, out.Len()))
	}

	rep.Renamed = ResolveCanonicalNames(out.Columns, WithdrawalTargets)
	for oldName, canonical := range rep.Renamed {
		out.RenameColumn(oldName, canonical)
	}
	if len(rep.Renamed) > 0 {
		rec.Info(fmt.Sprintf("renamed %d withdrawal columns to canonical names", len(rep.Renamed)))
	}

	rec.Success(fmt.Sprintf("withdrawal normalization complete: %d rows", out.Len()))
	return out, rep
}

// Competency columns carry a strict day/month/four-digit-year format; every
// other date column goes through the permissive layout list.
func dateLayoutsFor(column string) []string {
	lower := normalizeHeader(column)
	if strings.Contains(lower, "competencia") || strings.Contains(lower, "competency") {
		return []string{parse.CompetencyLayout}
	}
	return nil
}
