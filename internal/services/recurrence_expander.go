package services

import (
	"fmt"

	"github.com/google/uuid"

	"contas/internal/core"
)

// maxExpansionIterations is the hard safety cap on until-date expansion.
// A rule whose end date lies further out simply stops at the cap.
const maxExpansionIterations = 500

// ExpandRecurrence turns one draft plus a recurrence rule into an ordered
// batch of obligations sharing a freshly generated series id. The first
// element keeps the draft's stored status; every subsequent element starts
// pending. The function is pure apart from the series id draw: persistence
// of the batch is the caller's job and should happen as one bulk write.
func ExpandRecurrence(draft core.ObligationDraft, rule core.RecurrenceRule) ([]core.Obligation, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("validate draft: %w", err)
	}
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("validate rule: %w", err)
	}
	stepper, err := GetDateStepper(rule.Frequency)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.NewString()
	anchor := core.DateOf(draft.DueDate.Time)

	var count int
	switch rule.Termination {
	case core.ByCount:
		count = rule.Count
	case core.Forever:
		count = rule.EffectiveLookahead()
	case core.UntilDate:
		// The anchor occurrence is always produced, even when the end date
		// precedes it; that degenerate rule yields a single-element batch.
		count = 1
		for count < maxExpansionIterations {
			next := stepper.Occurrence(anchor, count)
			if next.AfterDay(rule.Until) {
				break
			}
			count++
		}
	}

	batch := make([]core.Obligation, 0, count)
	for i := 0; i < count; i++ {
		rec := draft.Record()
		rec.DueDate = stepper.Occurrence(anchor, i)
		rec.IsRecurring = true
		rec.SeriesID = seriesID
		if i > 0 {
			rec.StoredStatus = core.StatusPending
		}
		if rule.Termination == core.ByCount {
			rec.Description = fmt.Sprintf("%s (%d/%d)", draft.Description, i+1, count)
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// ExtendSeries generates n further occurrences of an existing series.
// Occurrences are computed from the series anchor (its first due date) at
// offsets existing..existing+n-1, so a clamped month never shifts the
// anchor day for later occurrences. Used by the open-ended series worker
// to top a Forever series back up to its lookahead window.
func ExtendSeries(template core.Obligation, frequency core.Frequency, anchor core.Date, existing, n int) ([]core.Obligation, error) {
	if n <= 0 {
		return nil, nil
	}
	stepper, err := GetDateStepper(frequency)
	if err != nil {
		return nil, err
	}

	batch := make([]core.Obligation, 0, n)
	for i := 0; i < n; i++ {
		rec := template
		rec.ID = 0
		rec.DueDate = stepper.Occurrence(anchor, existing+i)
		rec.StoredStatus = core.StatusPending
		rec.SettlementDate = core.Date{}
		batch = append(batch, rec)
	}
	return batch, nil
}
