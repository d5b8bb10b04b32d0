package core

import (
	"testing"
	"time"
)

func confirmations(cents ...int64) []Confirmation {
	out := make([]Confirmation, len(cents))
	for i, c := range cents {
		out[i] = Confirmation{
			ID:           int64(i + 1),
			ObligationID: 1,
			Amount:       Money{Cents: c},
			ConfirmedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func TestSumConfirmations(t *testing.T) {
	if got := SumConfirmations(nil); got.Cents != 0 {
		t.Fatalf("empty history should sum to zero, got %d", got.Cents)
	}
	if got := SumConfirmations(confirmations(600, 600)); got.Cents != 1200 {
		t.Fatalf("sum = %d, want 1200", got.Cents)
	}
}

func TestRemainingAmount(t *testing.T) {
	amount := Money{Cents: 1000}

	tests := []struct {
		name      string
		confirmed int64
		want      int64
	}{
		{"nothing confirmed", 0, 1000},
		{"partial", 400, 600},
		{"exact", 1000, 0},
		{"overpaid clamps at zero", 1500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemainingAmount(amount, Money{Cents: tt.confirmed})
			if got.Cents != tt.want {
				t.Errorf("RemainingAmount = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestRemainingIsMonotonicallyNonIncreasing(t *testing.T) {
	amount := Money{Cents: 1000}
	var history []Confirmation
	prev := amount

	for _, c := range []int64{100, 250, 1, 900} {
		history = append(history, Confirmation{ObligationID: 1, Amount: Money{Cents: c}})
		remaining := RemainingAmount(amount, SumConfirmations(history))
		if remaining.Cents > prev.Cents {
			t.Fatalf("remaining increased from %d to %d", prev.Cents, remaining.Cents)
		}
		prev = remaining
	}
}

func TestIsFullySettled(t *testing.T) {
	amount := Money{Cents: 1000}
	if IsFullySettled(amount, Money{Cents: 999}) {
		t.Fatal("999 of 1000 is not settled")
	}
	if !IsFullySettled(amount, Money{Cents: 1000}) {
		t.Fatal("exact coverage is settled")
	}
	// A single overpaying entry settles too.
	if !IsFullySettled(amount, SumConfirmations(confirmations(2500))) {
		t.Fatal("overpayment is settled")
	}
}
