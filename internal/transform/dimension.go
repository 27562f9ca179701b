package transform

import (
	"errors"
	"fmt"

	"github.com/dfarias/escrow-etl/internal/runlog"
	"github.com/dfarias/escrow-etl/internal/table"
)

// ErrNoAccountData means neither fact source yielded identifier rows, so no
// dimension (and therefore no usable fact tables) can be produced.
var ErrNoAccountData = errors.New("no account data available to build the dimension")

// naturalKeyColumns are the dimension's natural key, shared with both fact
// tables.
var naturalKeyColumns = []string{ColAccountID, ColParcelID}

// BuildAccountDimension derives the deduplicated account dimension from both
// canonical fact sets and assigns the run-local surrogate key.
//
// The two identifier projections are combined with a full outer union keyed
// on their shared columns: a pair seen in only one source still yields one
// dimension row, with the other source's exclusive columns absent. When the
// projections share no columns at all the sets are concatenated and
// deduplicated instead (degenerate fallback, logged). Surrogate IDs are a
// dense 1-based sequence over the union order. When duplicate withdrawal
// rows carry different transfer agreements for one pair, the first
// occurrence wins.
func BuildAccountDimension(balances, withdrawals *table.Table, rec *runlog.Recorder) (*table.Table, error) {
	balProj := projectIdentifiers(balances, ColAccountID, ColParcelID)
	if balProj.Len() > 0 {
		rec.Info(fmt.Sprintf("distinct account pairs from balances: %d", balProj.Len()))
	} else {
		rec.Warning("no account identifier columns found in balance facts")
	}

	wdProj := projectIdentifiers(withdrawals, ColAccountID, ColParcelID, ColAgreementID)
	if wdProj.Len() > 0 {
		rec.Info(fmt.Sprintf("distinct account pairs from withdrawals: %d", wdProj.Len()))
	} else {
		rec.Warning("no account identifier columns found in withdrawal facts")
	}

	var merged *table.Table
	switch {
	case balProj.Len() == 0 && wdProj.Len() == 0:
		rec.Error("cannot build account dimension: both identifier projections are empty")
		return nil, ErrNoAccountData
	case balProj.Len() == 0:
		merged = wdProj
	case wdProj.Len() == 0:
		merged = balProj
	default:
		shared := table.Intersect(balProj.Columns, wdProj.Columns)
		if len(shared) == 0 {
			rec.Warning("identifier projections share no columns, concatenating instead of merging")
			merged = concatDistinct(balProj, wdProj)
		} else {
			merged = outerUnion(balProj, wdProj, shared)
		}
	}

	merged = dedupeByNaturalKey(merged)

	dim := table.New(append([]string{ColSurrogateID}, merged.Columns...)...)
	for i, row := range merged.Rows {
		nr := row.Clone()
		nr[ColSurrogateID] = table.Int(int64(i + 1))
		dim.Append(nr)
	}

	rec.Success(fmt.Sprintf("account dimension built: %d distinct accounts", dim.Len()))
	return dim, nil
}

// projectIdentifiers selects whichever of the given columns exist and
// deduplicates. A source without any of the columns projects to empty.
func projectIdentifiers(t *table.Table, columns ...string) *table.Table {
	proj := t.Select(columns...)
	if len(proj.Columns) == 0 {
		return table.New()
	}
	return proj.Distinct()
}

// outerUnion merges two deduplicated projections keyed on their shared
// columns. Left rows come first in output order, then right-only keys in
// their source order. Columns exclusive to one side stay absent on rows
// contributed only by the other. For a key present on both sides, exclusive
// right-side columns fill in only while absent (first occurrence wins).
func outerUnion(left, right *table.Table, shared []string) *table.Table {
	columns := append([]string(nil), left.Columns...)
	for _, c := range right.Columns {
		exists := false
		for _, have := range columns {
			if have == c {
				exists = true
				break
			}
		}
		if !exists {
			columns = append(columns, c)
		}
	}

	out := table.New(columns...)
	index := make(map[string]int)

	for _, row := range left.Rows {
		out.Append(row.Clone())
		index[table.Key(row, shared)] = out.Len() - 1
	}

	for _, row := range right.Rows {
		key := table.Key(row, shared)
		if at, ok := index[key]; ok {
			existing := out.Rows[at]
			for _, c := range right.Columns {
				if existing.Get(c).IsNull() && !row.Get(c).IsNull() {
					existing[c] = row.Get(c)
				}
			}
			continue
		}
		out.Append(row.Clone())
		index[key] = out.Len() - 1
	}

	return out
}

// dedupeByNaturalKey enforces one dimension row per (account, parcel) pair.
// When duplicates disagree on other columns (a withdrawal pair recorded
// under two transfer agreements), the first occurrence wins.
func dedupeByNaturalKey(t *table.Table) *table.Table {
	keyCols := table.Intersect(t.Columns, naturalKeyColumns)
	if len(keyCols) == 0 {
		return t
	}
	out := table.New(t.Columns...)
	seen := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		key := table.Key(row, keyCols)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Append(row.Clone())
	}
	return out
}

func concatDistinct(a, b *table.Table) *table.Table {
	columns := append([]string(nil), a.Columns...)
	for _, c := range b.Columns {
		if !a.HasColumn(c) {
			columns = append(columns, c)
		}
	}
	out := table.New(columns...)
	for _, row := range a.Rows {
		out.Append(row.Clone())
	}
	for _, row := range b.Rows {
		out.Append(row.Clone())
	}
	return out.Distinct()
}

// AttachSurrogateKeys left-joins the dimension's surrogate key onto a fact
// table via the shared natural-key columns. Fact rows without a dimension
// match keep an absent surrogate_id; they are counted and logged, never
// dropped. The returned count is the number of unmatched rows.
func AttachSurrogateKeys(fact, dim *table.Table, rec *runlog.Recorder) (*table.Table, int) {
	joinCols := table.Intersect(table.Intersect(fact.Columns, dim.Columns), naturalKeyColumns)
	if len(joinCols) == 0 {
		rec.Warning("no shared identifier columns, surrogate keys not attached")
		return fact, fact.Len()
	}

	surrogates := make(map[string]table.Value, dim.Len())
	for _, row := range dim.Rows {
		key := table.Key(row, joinCols)
		if _, ok := surrogates[key]; !ok {
			surrogates[key] = row.Get(ColSurrogateID)
		}
	}

	out := table.New(append(append([]string(nil), fact.Columns...), ColSurrogateID)...)
	misses := 0
	for _, row := range fact.Rows {
		nr := row.Clone()
		if sk, ok := surrogates[table.Key(row, joinCols)]; ok {
			nr[ColSurrogateID] = sk
		} else {
			nr[ColSurrogateID] = table.Null()
			misses++
		}
		out.Append(nr)
	}

	if misses > 0 {
		rec.Warning(fmt.Sprintf("%d fact rows could not be matched to an account", misses))
	}
	return out, misses
}
