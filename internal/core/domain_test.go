package core

import (
	"reflect"
	"testing"
	"time"
)

func TestTransactionTypeValid(t *testing.T) {
	tests := []struct {
		typ  TransactionType
		want bool
	}{
		{Income, true},
		{Expense, true},
		{Transfer, true},
		{TransactionType("refund"), false},
		{TransactionType(""), false},
	}

	for _, tt := range tests {
		if got := tt.typ.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestTransactionTypeKinds(t *testing.T) {
	tests := []struct {
		typ      TransactionType
		fromKind EntityKind
		toKind   EntityKind
	}{
		{Income, KindIncomeCategory, KindAccount},
		{Expense, KindAccount, KindExpenseCategory},
		{Transfer, KindAccount, KindAccount},
	}

	for _, tt := range tests {
		if got := tt.typ.FromKind(); got != tt.fromKind {
			t.Errorf("%s.FromKind() = %q, want %q", tt.typ, got, tt.fromKind)
		}
		if got := tt.typ.ToKind(); got != tt.toKind {
			t.Errorf("%s.ToKind() = %q, want %q", tt.typ, got, tt.toKind)
		}
	}
}

func TestTransactionTypeDeltas(t *testing.T) {
	amount := Money{Cents: 450000}

	tests := []struct {
		name string
		typ  TransactionType
		want []AccountDelta
	}{
		{
			name: "income credits the target account",
			typ:  Income,
			want: []AccountDelta{{AccountID: 2, Cents: 450000}},
		},
		{
			name: "expense debits the source account",
			typ:  Expense,
			want: []AccountDelta{{AccountID: 1, Cents: -450000}},
		},
		{
			name: "transfer moves between accounts",
			typ:  Transfer,
			want: []AccountDelta{
				{AccountID: 1, Cents: -450000},
				{AccountID: 2, Cents: 450000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.typ.Deltas(amount, 1, 2)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Deltas() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransferDeltasConserveTotal(t *testing.T) {
	deltas := Transfer.Deltas(Money{Cents: 12345}, 7, 8)
	var sum int64
	for _, d := range deltas {
		sum += d.Cents
	}
	if sum != 0 {
		t.Errorf("transfer deltas sum to %d, want 0", sum)
	}
}

func TestNegate(t *testing.T) {
	deltas := Transfer.Deltas(Money{Cents: 500}, 1, 2)
	reversed := Negate(deltas)

	for i := range deltas {
		if reversed[i].AccountID != deltas[i].AccountID {
			t.Errorf("Negate changed account id at %d", i)
		}
		if reversed[i].Cents != -deltas[i].Cents {
			t.Errorf("Negate()[%d].Cents = %d, want %d", i, reversed[i].Cents, -deltas[i].Cents)
		}
	}

	// Applying a delta set and its negation must cancel out.
	double := Negate(reversed)
	if !reflect.DeepEqual(double, deltas) {
		t.Errorf("Negate(Negate(d)) = %v, want %v", double, deltas)
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Title: "Cash"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Account{Title: "  "}).Validate(); err != ErrEmptyTitle {
		t.Errorf("Validate() = %v, want ErrEmptyTitle", err)
	}
}

func TestMonthRange(t *testing.T) {
	start, end := MonthRange(2024, time.February)

	if got := start.Format("2006-01-02 15:04:05"); got != "2024-02-01 00:00:00" {
		t.Errorf("start = %s", got)
	}
	// 2024 is a leap year.
	if end.Day() != 29 || end.Month() != time.February {
		t.Errorf("end = %v, want last nanosecond of Feb 29", end)
	}
	if !end.Before(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end %v is not before March 1", end)
	}

	inside := time.Date(2024, time.February, 15, 12, 0, 0, 0, time.UTC)
	if inside.Before(start) || inside.After(end) {
		t.Errorf("mid-month date %v outside [%v, %v]", inside, start, end)
	}
}
