package classify

import (
	"reflect"
	"testing"
)

func TestColumnsBalanceRules(t *testing.T) {
	cols := []string{
		"Número da Conta Judicial",
		"Número da Parcela",
		"Saldo MARÇO23",
		"Saldo ABRIL23",
		"Observações",
	}

	c := Columns(cols, BalanceRules)

	tests := []struct {
		column string
		want   Role
	}{
		{"Número da Conta Judicial", Identifier},
		{"Número da Parcela", Identifier},
		{"Saldo MARÇO23", Monetary},
		{"Saldo ABRIL23", Monetary},
		{"Observações", Unclassified},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			if got := c.Role(tt.column); got != tt.want {
				t.Errorf("Role(%q) = %v, want %v", tt.column, got, tt.want)
			}
		})
	}

	if got := c.ByRole(Monetary); !reflect.DeepEqual(got, []string{"Saldo MARÇO23", "Saldo ABRIL23"}) {
		t.Errorf("ByRole(Monetary) = %v", got)
	}
}

// A column whose name carries both identifier and monetary tokens must
// classify as identifier: identifier rules are checked first.
func TestIdentifierPriorityOverMonetary(t *testing.T) {
	c := Columns([]string{"Saldo da Conta"}, BalanceRules)
	if got := c.Role("Saldo da Conta"); got != Identifier {
		t.Errorf("Role = %v, want Identifier", got)
	}
}

func TestWithdrawalExtendedMonetaryTokens(t *testing.T) {
	cols := []string{
		"Vl_Repassado",
		"Valor Resgatado",
		"Total Cptl",
		"Jur Acumulado",
		"CM Periodo",
		"Dt_Liquidacao",
		"Data Competencia",
	}
	c := Columns(cols, WithdrawalRules)

	for _, col := range cols[:5] {
		if got := c.Role(col); got != Monetary {
			t.Errorf("Role(%q) = %v, want Monetary", col, got)
		}
	}
	for _, col := range cols[5:] {
		if got := c.Role(col); got != Date {
			t.Errorf("Role(%q) = %v, want Date", col, got)
		}
	}
}

func TestIdentifiersFallback(t *testing.T) {
	c := Columns([]string{"Ref", "Saldo MARÇO23", "Observações"}, BalanceRules)

	ids, fallback := c.Identifiers()
	if !fallback {
		t.Fatal("expected fallback identifier selection")
	}
	want := []string{"Ref", "Observações"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("Identifiers() = %v, want %v", ids, want)
	}
}

func TestIdentifiersNoFallback(t *testing.T) {
	c := Columns([]string{"Conta", "Saldo MARÇO23"}, BalanceRules)

	ids, fallback := c.Identifiers()
	if fallback {
		t.Fatal("unexpected fallback")
	}
	if !reflect.DeepEqual(ids, []string{"Conta"}) {
		t.Errorf("Identifiers() = %v", ids)
	}
}
