package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dfarias/escrow-etl/internal/table"
)

// monthToken maps a Portuguese month token to its month number. Tokens are
// matched by substring against the word captured from a header, in slice
// order, so abbreviations sit before full names the way the source system
// writes them. MARÇO appears with and without the cedilla.
type monthToken struct {
	token string
	month time.Month
}

var monthTokens = []monthToken{
	{"JAN", time.January}, {"JANEIRO", time.January},
	{"FEV", time.February}, {"FEVEREIRO", time.February},
	{"MAR", time.March}, {"MARÇO", time.March}, {"MARCO", time.March},
	{"ABR", time.April}, {"ABRIL", time.April},
	{"MAI", time.May}, {"MAIO", time.May},
	{"JUN", time.June}, {"JUNHO", time.June},
	{"JUL", time.July}, {"JULHO", time.July},
	{"AGO", time.August}, {"AGOSTO", time.August},
	{"SET", time.September}, {"SETEMBRO", time.September},
	{"OUT", time.October}, {"OUTUBRO", time.October},
	{"NOV", time.November}, {"NOVEMBRO", time.November},
	{"DEZ", time.December}, {"DEZEMBRO", time.December},
}

// headerDatePatterns are tried in order against the uppercased header:
// word immediately followed by the year, then separated by space, slash
// and dash. \p{L} rather than \w so accented month names match.
var headerDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`([\p{L}]+)(\d{2,4})`),
	regexp.MustCompile(`([\p{L}]+)\s+(\d{2,4})`),
	regexp.MustCompile(`([\p{L}]+)/(\d{2,4})`),
	regexp.MustCompile(`([\p{L}]+)-(\d{2,4})`),
}

// HeaderDate resolves a reference date from a balance column header such as
// "Saldo MARÇO23", "Saldo MARÇO/23" or "Saldo Março 23". The day is fixed at
// 1. A two-digit year is expanded to 20YY; longer years are used as-is.
// The second return is false when no pattern matches or the month token is
// unrecognized; the caller drops the affected rows, never halts.
func HeaderDate(header string) (civil.Date, bool) {
	upper := strings.ToUpper(header)

	for _, pat := range headerDatePatterns {
		m := pat.FindStringSubmatch(upper)
		if m == nil {
			continue
		}
		word, year := m[1], m[2]

		month, ok := resolveMonth(word)
		if !ok {
			continue
		}

		if len(year) == 2 {
			year = "20" + year
		}
		y, err := strconv.Atoi(year)
		if err != nil {
			continue
		}

		return civil.Date{Year: y, Month: month, Day: 1}, true
	}

	return civil.Date{}, false
}

func resolveMonth(word string) (time.Month, bool) {
	for _, mt := range monthTokens {
		if strings.Contains(word, mt.token) {
			return mt.month, true
		}
	}
	return 0, false
}

// CompetencyLayout is the strict day/month/four-digit-year format used by
// columns carrying a competency date.
const CompetencyLayout = "02/01/2006"

// permissiveLayouts are tried in order for date cells without a declared
// format.
var permissiveLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02/01/06",
	"2006-01-02 15:04:05",
}

// CellDate parses a date cell using the given layouts. Null passes through
// and already-parsed dates are left alone. An unparseable cell becomes Null
// with a false second return so the caller can count it; withdrawal rows are
// never dropped for date failures.
func CellDate(v table.Value, layouts ...string) (table.Value, bool) {
	switch v.Kind() {
	case table.KindNull, table.KindDate:
		return v, true
	case table.KindNumber:
		return table.Null(), false
	}

	s := strings.TrimSpace(v.Str())
	if s == "" {
		return table.Null(), true
	}
	if len(layouts) == 0 {
		layouts = permissiveLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return table.Date(civil.DateOf(t)), true
		}
	}
	return table.Null(), false
}
