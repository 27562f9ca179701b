package table

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestValueKinds(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		wantKind Kind
		wantNull bool
		wantStr  string
	}{
		{"null", Null(), KindNull, true, ""},
		{"string", String("abc"), KindString, false, "abc"},
		{"empty string", String(""), KindString, false, ""},
		{"number", Number(decimal.RequireFromString("1234.56")), KindNumber, false, "1234.56"},
		{"int", Int(42), KindNumber, false, "42"},
		{"date", Date(civil.Date{Year: 2023, Month: 3, Day: 1}), KindDate, false, "2023-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Kind(); got != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", got, tt.wantKind)
			}
			if got := tt.value.IsNull(); got != tt.wantNull {
				t.Errorf("IsNull() = %v, want %v", got, tt.wantNull)
			}
			if got := tt.value.String(); got != tt.wantStr {
				t.Errorf("String() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	if !Number(decimal.RequireFromString("1.50")).Equal(Number(decimal.RequireFromString("1.5"))) {
		t.Error("expected 1.50 and 1.5 to compare equal")
	}
	if String("").Equal(Null()) {
		t.Error("empty string must not equal null")
	}
}

func TestRenameColumn(t *testing.T) {
	tbl := New("Conta", "Parcela")
	tbl.Append(Row{"Conta": String("12345"), "Parcela": String("1")})

	tbl.RenameColumn("Conta", "account_id")

	if tbl.Columns[0] != "account_id" {
		t.Errorf("column order broken: %v", tbl.Columns)
	}
	if got := tbl.Rows[0].Get("account_id").Str(); got != "12345" {
		t.Errorf("cell did not move with rename, got %q", got)
	}
	if _, ok := tbl.Rows[0]["Conta"]; ok {
		t.Error("old cell key still present after rename")
	}
}

func TestTrimColumnNames(t *testing.T) {
	tbl := New("  Conta ", "Parcela", " Saldo MARÇO23")
	tbl.Append(Row{"  Conta ": String("1"), "Parcela": String("2"), " Saldo MARÇO23": String("3")})

	changed := tbl.TrimColumnNames()
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	// Idempotent.
	if again := tbl.TrimColumnNames(); again != 0 {
		t.Errorf("second trim changed %d names, want 0", again)
	}
	if got := tbl.Rows[0].Get("Conta").Str(); got != "1" {
		t.Errorf("cell lost after trim, got %q", got)
	}
}

func TestDistinct(t *testing.T) {
	tbl := New("a", "b")
	tbl.Append(Row{"a": String("1"), "b": String("x")})
	tbl.Append(Row{"a": String("1"), "b": String("x")})
	tbl.Append(Row{"a": String("1"), "b": Null()})
	tbl.Append(Row{"a": String("2"), "b": String("x")})

	got := tbl.Distinct()
	if got.Len() != 3 {
		t.Fatalf("Distinct() kept %d rows, want 3", got.Len())
	}
	// First occurrence order is preserved.
	if got.Rows[0].Get("b").Str() != "x" || !got.Rows[1].Get("b").IsNull() {
		t.Errorf("Distinct() reordered rows: %v", got.Rows)
	}
}

func TestSelectMissingColumns(t *testing.T) {
	tbl := New("a", "b")
	tbl.Append(Row{"a": String("1"), "b": String("2")})

	got := tbl.Select("a", "missing")
	if len(got.Columns) != 1 || got.Columns[0] != "a" {
		t.Errorf("Select() columns = %v, want [a]", got.Columns)
	}
	if got.Rows[0].Get("a").Str() != "1" {
		t.Error("Select() dropped cell content")
	}
}

func TestKeyDistinguishesNullFromEmpty(t *testing.T) {
	cols := []string{"a"}
	withNull := Key(Row{"a": Null()}, cols)
	withEmpty := Key(Row{"a": String("")}, cols)
	if withNull == withEmpty {
		t.Error("Key() must distinguish null from empty string")
	}
}
