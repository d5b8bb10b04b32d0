package core

import "testing"

func resolved(kind Kind, cents int64, due Date, status Status, category string) ResolvedObligation {
	return ResolvedObligation{
		Obligation: Obligation{
			Kind:        kind,
			Amount:      Money{Cents: cents},
			Category:    category,
			DueDate:     due,
			Description: "x",
		},
		EffectiveStatus: status,
	}
}

func TestSummarize(t *testing.T) {
	due := NewDate(2024, 1, 10)
	records := []ResolvedObligation{
		resolved(Income, 100000, due, StatusPending, "Salary"),
		resolved(Expense, 30000, due, StatusPending, "Housing"),
		resolved(Reserve, 20000, due, StatusPending, "Emergency"),
	}

	s := Summarize(records)
	if s.Income.Cents != 100000 || s.Expense.Cents != 30000 || s.Reserve.Cents != 20000 {
		t.Fatalf("totals = %+v", s)
	}
	if s.Net.Cents != 50000 {
		t.Fatalf("net = %d, want 50000 (reserve deducted from balance)", s.Net.Cents)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Income.Cents != 0 || s.Expense.Cents != 0 || s.Reserve.Cents != 0 || s.Net.Cents != 0 {
		t.Fatalf("empty summary should be all zero, got %+v", s)
	}
}

func TestFilterMatches(t *testing.T) {
	rec := resolved(Expense, 5000, NewDate(2024, 3, 15), StatusOverdue, "Housing")

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter matches all", Filter{}, true},
		{"in range", Filter{From: NewDate(2024, 3, 1), To: NewDate(2024, 3, 31)}, true},
		{"before range", Filter{From: NewDate(2024, 4, 1)}, false},
		{"after range", Filter{To: NewDate(2024, 2, 28)}, false},
		{"range boundary inclusive", Filter{From: NewDate(2024, 3, 15), To: NewDate(2024, 3, 15)}, true},
		{"category match", Filter{Category: "Housing"}, true},
		{"category mismatch", Filter{Category: "Food"}, false},
		{"kind match", Filter{Kind: Expense}, true},
		{"kind mismatch", Filter{Kind: Income}, false},
		{"status match", Filter{Status: StatusOverdue}, true},
		{"status mismatch", Filter{Status: StatusPending}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(rec); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterRecords(t *testing.T) {
	records := []ResolvedObligation{
		resolved(Income, 1000, NewDate(2024, 1, 5), StatusSettled, "Salary"),
		resolved(Expense, 2000, NewDate(2024, 1, 10), StatusPending, "Food"),
		resolved(Expense, 3000, NewDate(2024, 2, 10), StatusPending, "Food"),
	}

	got := FilterRecords(records, Filter{To: NewDate(2024, 1, 31)})
	if len(got) != 2 {
		t.Fatalf("expected 2 January records, got %d", len(got))
	}

	got = FilterRecords(records, Filter{Kind: Expense, Status: StatusPending})
	if len(got) != 2 {
		t.Fatalf("expected 2 pending expenses, got %d", len(got))
	}
}
