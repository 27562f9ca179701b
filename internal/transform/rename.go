package transform

import (
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical column names shared by the fact and dimension tables.
const (
	ColAccountID     = "account_id"
	ColParcelID      = "parcel_id"
	ColAgreementID   = "transfer_agreement_id"
	ColReferenceDate = "reference_date"
	ColFinalBalance  = "final_balance"
	ColSurrogateID   = "surrogate_id"
)

// canonicalTarget describes how a canonical column is recognized in raw
// headers: known exact spellings first, then token matching (primary token
// plus, where defined, a secondary token), then a closest-match pass over
// the known spellings for typo'd variants.
type canonicalTarget struct {
	Canonical string
	Exact     []string
	Primary   []string
	Secondary []string
}

var accountTarget = canonicalTarget{
	Canonical: ColAccountID,
	Exact:     []string{"Número da Conta Judicial", "Numero da Conta Judicial", "Conta Judicial"},
	Primary:   []string{"conta", "account"},
	Secondary: []string{"judicial"},
}

var parcelTarget = canonicalTarget{
	Canonical: ColParcelID,
	Exact:     []string{"Número da Parcela", "Numero da Parcela", "Parcela"},
	Primary:   []string{"parcela", "parcel"},
}

var agreementTarget = canonicalTarget{
	Canonical: ColAgreementID,
	Exact:     []string{"Número do Convênio de Repasse", "Numero do Convenio de Repasse", "Convênio de Repasse"},
	Primary:   []string{"convenio", "agreement"},
	Secondary: []string{"repasse", "transfer"},
}

// BalanceTargets are the canonical columns the balance source carries.
var BalanceTargets = []canonicalTarget{accountTarget, parcelTarget}

// WithdrawalTargets adds the transfer agreement column only withdrawals have.
var WithdrawalTargets = []canonicalTarget{accountTarget, parcelTarget, agreementTarget}

// foldAccents strips diacritics so "Convênio" matches the token "convenio".
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeHeader(h string) string {
	folded, _, err := transform.String(foldAccents, h)
	if err != nil {
		folded = h
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ResolveCanonicalNames computes the header renaming as a pure function of
// the headers: no rule table is mutated while matching. Each canonical name
// consumes at most one header (first match wins) and each header is renamed
// at most once.
func ResolveCanonicalNames(headers []string, targets []canonicalTarget) map[string]string {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	mapping := make(map[string]string)
	used := make(map[int]bool)

	for _, target := range targets {
		if i, ok := matchTarget(normalized, used, target); ok {
			mapping[headers[i]] = target.Canonical
			used[i] = true
		}
	}
	return mapping
}

func matchTarget(normalized []string, used map[int]bool, target canonicalTarget) (int, bool) {
	// Exact spellings first.
	for _, exact := range target.Exact {
		want := normalizeHeader(exact)
		for i, h := range normalized {
			if !used[i] && h == want {
				return i, true
			}
		}
	}

	// Token pass: primary token plus secondary where the target defines one.
	for i, h := range normalized {
		if used[i] {
			continue
		}
		if containsAny(h, target.Primary) && (len(target.Secondary) == 0 || containsAny(h, target.Secondary)) {
			return i, true
		}
	}

	// Closest-match pass for misspelled variants. The candidate must still
	// carry a primary token and sit within a few edits of the variant it
	// matched, so an unrelated header is never consumed.
	variants := make([]string, 0, len(target.Exact))
	for _, exact := range target.Exact {
		variants = append(variants, normalizeHeader(exact))
	}
	cm := closestmatch.New(variants, []int{2, 3})
	for i, h := range normalized {
		if used[i] || !containsAny(h, target.Primary) {
			continue
		}
		closest := cm.Closest(h)
		if closest != "" && editDistance(h, closest) <= 3 {
			return i, true
		}
	}

	return 0, false
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
