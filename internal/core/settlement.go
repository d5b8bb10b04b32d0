package core

// SumConfirmations totals every confirmation amount. The sum is always
// computed from the full entry list, never from a cached remaining figure.
func SumConfirmations(entries []Confirmation) Money {
	var total int64
	for _, e := range entries {
		total += e.Amount.Cents
	}
	return Money{Cents: total}
}

// RemainingAmount returns how much of the obligation is still open,
// clamped at zero. Overpayment is tolerated: the surplus stays visible in
// the confirmation history while the remaining balance reads as zero.
func RemainingAmount(amount, confirmed Money) Money {
	remaining := amount.Cents - confirmed.Cents
	if remaining < 0 {
		remaining = 0
	}
	return Money{Cents: remaining}
}

// IsFullySettled reports whether the confirmation sum covers the obligation.
func IsFullySettled(amount, confirmed Money) bool {
	return confirmed.Cents >= amount.Cents
}
