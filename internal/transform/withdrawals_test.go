package transform

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dfarias/escrow-etl/internal/table"
)

func withdrawalFixture() *table.Table {
	t := table.New(
		"Número da Conta Judicial",
		"Número da Parcela",
		"Número do Convênio de Repasse",
		"Valor Resgatado",
		"Data Competencia",
		"Dt_Liquidacao",
		"Observação",
	)
	t.Append(table.Row{
		"Número da Conta Judicial":      table.String("12345"),
		"Número da Parcela":             table.String("1"),
		"Número do Convênio de Repasse": table.String("CV-001"),
		"Valor Resgatado":               table.String("R$ 543,21"),
		"Data Competencia":              table.String("01/03/2023"),
		"Dt_Liquidacao":                 table.String("2023-03-15"),
		"Observação":                    table.String("parcial"),
	})
	t.Append(table.Row{
		"Número da Conta Judicial":      table.String("12346"),
		"Número da Parcela":             table.String("1"),
		"Número do Convênio de Repasse": table.String("CV-002"),
		"Valor Resgatado":               table.String("inválido"),
		"Data Competencia":              table.String("2023-03-01"), // wrong format for competency
		"Dt_Liquidacao":                 table.String("16/03/2023"),
		"Observação":                    table.String(""),
	})
	return t
}

func TestNormalizeWithdrawalsKeepsRowCount(t *testing.T) {
	src := withdrawalFixture()
	out, _ := NormalizeWithdrawals(src, testRecorder())
	if out.Len() != src.Len() {
		t.Fatalf("row count changed: %d -> %d", src.Len(), out.Len())
	}
}

func TestNormalizeWithdrawalsCleansMonetaryInPlace(t *testing.T) {
	out, rep := NormalizeWithdrawals(withdrawalFixture(), testRecorder())

	d, ok := out.Rows[0].Get("Valor Resgatado").Decimal()
	if !ok || !d.Equal(decimal.RequireFromString("543.21")) {
		t.Errorf("Valor Resgatado = %v, want 543.21", out.Rows[0].Get("Valor Resgatado"))
	}
	// Failed conversion becomes absent, row survives.
	if !out.Rows[1].Get("Valor Resgatado").IsNull() {
		t.Errorf("failed monetary cell should be absent, got %v", out.Rows[1].Get("Valor Resgatado"))
	}
	if rep.FailedMoney != 1 {
		t.Errorf("FailedMoney = %d, want 1", rep.FailedMoney)
	}
}

func TestNormalizeWithdrawalsDates(t *testing.T) {
	out, rep := NormalizeWithdrawals(withdrawalFixture(), testRecorder())

	// Competency column parsed with the strict dd/mm/yyyy layout.
	d, ok := out.Rows[0].Get("Data Competencia").CivilDate()
	if !ok || (d != civil.Date{Year: 2023, Month: 3, Day: 1}) {
		t.Errorf("competency date = %v", out.Rows[0].Get("Data Competencia"))
	}
	// ISO input is invalid for the competency layout: cell nulled, row kept.
	if !out.Rows[1].Get("Data Competencia").IsNull() {
		t.Errorf("invalid competency cell should be absent, got %v", out.Rows[1].Get("Data Competencia"))
	}
	// Permissive parsing for other date columns accepts both layouts.
	for i, want := range []civil.Date{
		{Year: 2023, Month: 3, Day: 15},
		{Year: 2023, Month: 3, Day: 16},
	} {
		d, ok := out.Rows[i].Get("Dt_Liquidacao").CivilDate()
		if !ok || d != want {
			t.Errorf("row %d Dt_Liquidacao = %v, want %v", i, out.Rows[i].Get("Dt_Liquidacao"), want)
		}
	}
	if rep.FailedDates != 1 {
		t.Errorf("FailedDates = %d, want 1", rep.FailedDates)
	}
}

func TestNormalizeWithdrawalsCanonicalRenames(t *testing.T) {
	out, rep := NormalizeWithdrawals(withdrawalFixture(), testRecorder())

	for _, want := range []string{ColAccountID, ColParcelID, ColAgreementID} {
		if !out.HasColumn(want) {
			t.Errorf("missing canonical column %q in %v", want, out.Columns)
		}
	}
	// Non-identifying columns are preserved.
	if !out.HasColumn("Observação") || !out.HasColumn("Valor Resgatado") {
		t.Errorf("original columns lost: %v", out.Columns)
	}
	if len(rep.Renamed) != 3 {
		t.Errorf("Renamed = %v, want 3 entries", rep.Renamed)
	}
}

func TestNormalizeWithdrawalsNoMonetaryIsWarningOnly(t *testing.T) {
	src := table.New("Número da Conta Judicial", "Descrição")
	src.Append(table.Row{
		"Número da Conta Judicial": table.String("1"),
		"Descrição":                table.String("sem valores"),
	})

	out, rep := NormalizeWithdrawals(src, testRecorder())
	if out.Len() != 1 {
		t.Fatalf("row dropped: %d", out.Len())
	}
	if len(rep.MonetaryColumns) != 0 {
		t.Errorf("MonetaryColumns = %v, want none", rep.MonetaryColumns)
	}
}

func TestNormalizeWithdrawalsDoesNotMutateInput(t *testing.T) {
	src := withdrawalFixture()
	NormalizeWithdrawals(src, testRecorder())

	if got := src.Rows[0].Get("Valor Resgatado").Str(); got != "R$ 543,21" {
		t.Errorf("input table mutated: %q", got)
	}
}
