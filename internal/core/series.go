package core

// SeriesState describes one open-ended recurrence series for the extension
// worker: how many occurrences exist, how many are still in the future, and
// the template to clone when topping the window back up.
type SeriesState struct {
	SeriesID    string
	OwnerID     string
	Frequency   Frequency
	Lookahead   int
	Anchor      Date // due date of the first occurrence
	Total       int64
	FutureCount int64
	Template    Obligation
}

// ObligationWithTotal pairs a record with its freshly summed confirmations,
// the shape every read path needs before status resolution.
type ObligationWithTotal struct {
	Obligation
	Confirmed Money
}
