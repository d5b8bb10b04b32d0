package core

// PeriodSummary aggregates a filtered set of obligations. Net treats
// reserves as a deduction: money set aside is not money on hand.
type PeriodSummary struct {
	Income  Money
	Expense Money
	Reserve Money
	Net     Money
}

// Filter narrows a listing before aggregation. Zero values mean "any".
// From/To and Category/Kind are pushed down to storage; Status applies to
// the effective status and is therefore evaluated after resolution.
type Filter struct {
	From     Date
	To       Date
	Category string
	Kind     Kind
	Status   Status
}

// Matches reports whether a resolved record passes every set predicate.
func (f Filter) Matches(r ResolvedObligation) bool {
	if !f.From.IsZero() && r.DueDate.BeforeDay(f.From) {
		return false
	}
	if !f.To.IsZero() && r.DueDate.AfterDay(f.To) {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Status != "" && r.EffectiveStatus != f.Status {
		return false
	}
	return true
}

// FilterRecords returns the records matching f, preserving order.
func FilterRecords(records []ResolvedObligation, f Filter) []ResolvedObligation {
	out := make([]ResolvedObligation, 0, len(records))
	for _, r := range records {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize computes the period totals over already-filtered,
// already-resolved records. It is pure: callers recompute it whenever the
// filter changes instead of caching across filters.
func Summarize(records []ResolvedObligation) PeriodSummary {
	var s PeriodSummary
	for _, r := range records {
		switch r.Kind {
		case Income:
			s.Income.Cents += r.Amount.Cents
		case Expense:
			s.Expense.Cents += r.Amount.Cents
		case Reserve:
			s.Reserve.Cents += r.Amount.Cents
		}
	}
	s.Net.Cents = s.Income.Cents - s.Expense.Cents - s.Reserve.Cents
	return s
}
