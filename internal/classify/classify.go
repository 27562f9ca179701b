// Package classify assigns a semantic role to each raw column by matching
// its name against small fixed token lists. The rule tables are data, not
// code, evaluated in priority order: an identifier column is never
// miscategorized as monetary even when its name also carries a value-like
// token.
package classify

import "strings"

// Role is the semantic role of a raw column.
type Role int

const (
	Unclassified Role = iota
	Identifier
	Monetary
	Date
)

func (r Role) String() string {
	switch r {
	case Identifier:
		return "identifier"
	case Monetary:
		return "monetary"
	case Date:
		return "date"
	default:
		return "unclassified"
	}
}

// Rule maps name tokens to a role. Rules earlier in a rule set win.
type Rule struct {
	Role   Role
	Tokens []string
}

// BalanceRules classifies the balance source: identifier tokens first, then
// the one-per-month balance columns.
var BalanceRules = []Rule{
	{Identifier, []string{"conta", "parcela", "account", "parcel"}},
	{Monetary, []string{"saldo", "valor", "balance", "value"}},
	{Date, []string{"dt_", "data", "competencia", "referencia", "reference", "competency"}},
}

// WithdrawalRules uses the extended monetary token list the transaction
// extracts need (transferred, withdrawn, capital, interest,
// monetary-correction and total columns).
var WithdrawalRules = []Rule{
	{Identifier, []string{"conta", "parcela", "convenio", "account", "parcel", "agreement"}},
	{Monetary, []string{"saldo", "valor", "vl_", "repassado", "resgatado", "cptl", "jur", "cm", "total", "balance", "value", "transferred", "withdrawn"}},
	{Date, []string{"dt_", "data", "competencia", "referencia", "reference", "competency"}},
}

// Classification holds the role assigned to every column of a source.
type Classification struct {
	columns []string
	roles   map[string]Role
}

// Columns classifies each column name against the rule set. Matching is
// case-insensitive substring matching; the first rule whose token appears in
// the name decides the role.
func Columns(columns []string, rules []Rule) Classification {
	c := Classification{
		columns: append([]string(nil), columns...),
		roles:   make(map[string]Role, len(columns)),
	}
	for _, col := range columns {
		c.roles[col] = classifyOne(col, rules)
	}
	return c
}

func classifyOne(name string, rules []Rule) Role {
	lower := strings.ToLower(name)
	for _, rule := range rules {
		for _, token := range rule.Tokens {
			if strings.Contains(lower, token) {
				return rule.Role
			}
		}
	}
	return Unclassified
}

// Role returns the role assigned to a column.
func (c Classification) Role(column string) Role {
	return c.roles[column]
}

// ByRole returns the columns carrying the given role, in source order.
func (c Classification) ByRole(role Role) []string {
	var out []string
	for _, col := range c.columns {
		if c.roles[col] == role {
			out = append(out, col)
		}
	}
	return out
}

// Identifiers returns the identifier columns. When no column classified as
// an identifier it falls back to every non-monetary column, so a source
// without recognizable ID headers still reshapes instead of failing.
func (c Classification) Identifiers() (columns []string, fallback bool) {
	ids := c.ByRole(Identifier)
	if len(ids) > 0 {
		return ids, false
	}
	for _, col := range c.columns {
		if c.roles[col] != Monetary {
			columns = append(columns, col)
		}
	}
	return columns, true
}
