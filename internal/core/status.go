package core

// ResolveStatus derives an obligation's effective lifecycle status at read
// time. Nothing flips stored statuses in the background; every read path is
// expected to run the stored status through this function.
//
// Resolution order:
//  1. A stored Settled is terminal.
//  2. A fully settled confirmation sum promotes to Settled even when the
//     stored status is stale.
//  3. A Pending obligation past its due date reads as Overdue. The overdue
//     state is derived, never persisted.
//  4. Anything else passes through unchanged.
func ResolveStatus(stored Status, dueDate, today Date, fullySettled bool) Status {
	if stored == StatusSettled {
		return StatusSettled
	}
	if fullySettled {
		return StatusSettled
	}
	if stored == StatusPending && dueDate.BeforeDay(today) {
		return StatusOverdue
	}
	return stored
}

// ResolvedObligation pairs a record with its read-time effective status and
// the confirmation total the resolution was based on.
type ResolvedObligation struct {
	Obligation
	EffectiveStatus Status
	Confirmed       Money
}

// Resolve wraps an obligation with its effective status for a given day.
func Resolve(o Obligation, confirmed Money, today Date) ResolvedObligation {
	settled := confirmed.Cents >= o.Amount.Cents
	return ResolvedObligation{
		Obligation:      o,
		EffectiveStatus: ResolveStatus(o.StoredStatus, o.DueDate, today, settled),
		Confirmed:       confirmed,
	}
}
