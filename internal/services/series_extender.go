package services

import (
	"context"
	"log/slog"

	"contas/internal/core"
)

// DefaultExtendThreshold is the minimum number of future occurrences an
// open-ended series keeps before the extender tops it back up.
const DefaultExtendThreshold = 3

// SeriesExtender keeps open-ended series topped up: whenever a Forever
// series has fewer than threshold occurrences left in the future, it
// appends enough new ones to refill the lookahead window.
type SeriesExtender struct {
	store     ExtensionStore
	threshold int64
}

func NewSeriesExtender(store ExtensionStore, threshold int64) *SeriesExtender {
	if threshold <= 0 {
		threshold = DefaultExtendThreshold
	}
	return &SeriesExtender{
		store:     store,
		threshold: threshold,
	}
}

// ExtendDueSeries scans every open-ended series and extends the ones whose
// future window ran low. A failure on one series is logged and does not
// stop the others. Returns the number of series extended.
func (e *SeriesExtender) ExtendDueSeries(ctx context.Context, today core.Date) (int, error) {
	states, err := e.store.ListOpenEndedSeries(ctx, today)
	if err != nil {
		return 0, err
	}

	extended := 0
	for _, st := range states {
		if st.FutureCount >= e.threshold {
			continue
		}
		n := st.Lookahead - int(st.FutureCount)
		if n <= 0 {
			continue
		}

		batch, err := ExtendSeries(st.Template, st.Frequency, st.Anchor, int(st.Total), n)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to build series extension",
				"series_id", st.SeriesID, "error", err)
			continue
		}
		if _, err := e.store.AppendToSeries(ctx, st.OwnerID, batch); err != nil {
			slog.ErrorContext(ctx, "Failed to append series extension",
				"series_id", st.SeriesID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Extended open-ended series",
			"series_id", st.SeriesID,
			"added", len(batch),
			"future_count", st.FutureCount)
		extended++
	}
	return extended, nil
}
