package services

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
)

// ObligationService orchestrates obligation writes and reads across the
// store and the AMQP event bus.
type ObligationService struct {
	store            ObligationStore
	confirmations    ConfirmationStore
	amqpClient       *amqp.Client
	foreverLookahead int
}

func NewObligationService(store ObligationStore, confirmations ConfirmationStore, amqpClient *amqp.Client) *ObligationService {
	return &ObligationService{
		store:         store,
		confirmations: confirmations,
		amqpClient:    amqpClient,
	}
}

// SetDefaultLookahead overrides the window used for open-ended rules that do
// not name one. Zero keeps the package default.
func (s *ObligationService) SetDefaultLookahead(n int) {
	s.foreverLookahead = n
}

// Create persists a draft as a single obligation, or as a whole series when
// a recurrence rule is given. It returns the stored records with their
// assigned ids; for a series, all records share one series id.
func (s *ObligationService) Create(ctx context.Context, ownerID string, draft core.ObligationDraft, rule *core.RecurrenceRule) ([]core.Obligation, error) {
	if rule == nil {
		if err := draft.Validate(); err != nil {
			return nil, err
		}
		rec := draft.Record()
		id, err := s.store.CreateObligation(ctx, ownerID, rec)
		if err != nil {
			return nil, fmt.Errorf("save obligation: %w", err)
		}
		rec.ID = id

		s.publishEvent(ctx, amqp.EventObligationCreated, ownerID, id, "")
		return []core.Obligation{rec}, nil
	}

	if rule.Termination == core.Forever && rule.Lookahead == 0 && s.foreverLookahead > 0 {
		configured := *rule
		configured.Lookahead = s.foreverLookahead
		rule = &configured
	}
	batch, err := ExpandRecurrence(draft, *rule)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.CreateSeries(ctx, ownerID, batch, *rule)
	if err != nil {
		return nil, fmt.Errorf("save series: %w", err)
	}
	for i := range batch {
		batch[i].ID = ids[i]
	}

	s.publishEvent(ctx, amqp.EventSeriesCreated, ownerID, batch[0].ID, batch[0].SeriesID)
	return batch, nil
}

// Get returns one obligation with its status resolved as of today.
func (s *ObligationService) Get(ctx context.Context, ownerID string, id int64, today core.Date) (core.ResolvedObligation, error) {
	rec, err := s.store.GetObligation(ctx, ownerID, id)
	if err != nil {
		return core.ResolvedObligation{}, err
	}
	confirmed, err := s.confirmations.SumConfirmations(ctx, ownerID, id)
	if err != nil {
		return core.ResolvedObligation{}, fmt.Errorf("sum confirmations: %w", err)
	}
	return core.Resolve(rec, confirmed, today), nil
}

// List returns the obligations matching the filter, each with its status
// resolved as of today, plus the period totals over the matching set.
func (s *ObligationService) List(ctx context.Context, ownerID string, f core.Filter, today core.Date) ([]core.ResolvedObligation, core.PeriodSummary, error) {
	rows, err := s.store.ListObligations(ctx, ownerID, f)
	if err != nil {
		return nil, core.PeriodSummary{}, fmt.Errorf("list obligations: %w", err)
	}

	resolved := make([]core.ResolvedObligation, 0, len(rows))
	for _, row := range rows {
		resolved = append(resolved, core.Resolve(row.Obligation, row.Confirmed, today))
	}
	// Status matching has to wait until after resolution; the store only
	// narrows by date, category and kind.
	resolved = core.FilterRecords(resolved, f)
	return resolved, core.Summarize(resolved), nil
}

// Update overwrites an obligation's mutable fields.
func (s *ObligationService) Update(ctx context.Context, ownerID string, rec core.Obligation) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateObligation(ctx, ownerID, rec); err != nil {
		return err
	}

	s.publishEvent(ctx, amqp.EventObligationUpdated, ownerID, rec.ID, rec.SeriesID)
	return nil
}

// publishEvent publishes best effort: a broker outage never fails the write
// that already landed in SQLite.
func (s *ObligationService) publishEvent(ctx context.Context, event, ownerID string, id int64, seriesID string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event", "event", event)
		return
	}
	msg := amqp.NewObligationEventMessage(event, ownerID, id, seriesID)
	if err := s.amqpClient.PublishObligationEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish obligation event",
			"event", event, "id", id, "error", err)
	}
}
