package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contas/internal/amqp"
	"contas/internal/core"
)

// ConfirmationResult reports the state of an obligation right after a
// confirmation landed.
type ConfirmationResult struct {
	Confirmation    core.Confirmation
	Total           core.Money
	Remaining       core.Money
	EffectiveStatus core.Status
	Promoted        bool
}

// ConfirmationLedger appends partial settlements against obligations. The
// ledger is append-only: entries are never edited or removed, and the
// running total only moves by inserting new rows.
type ConfirmationLedger struct {
	store       ConfirmationStore
	obligations ObligationStore
	amqpClient  *amqp.Client
	now         func() time.Time
}

func NewConfirmationLedger(store ConfirmationStore, obligations ObligationStore, amqpClient *amqp.Client) *ConfirmationLedger {
	return &ConfirmationLedger{
		store:       store,
		obligations: obligations,
		amqpClient:  amqpClient,
		now:         time.Now,
	}
}

// RecordConfirmation appends one settlement entry. The amount is validated
// before anything is written; an invalid amount leaves the ledger untouched.
// When the fresh total reaches the obligation's amount the store promotes
// the record to settled in the same transaction. Amounts past the remaining
// balance are accepted as-is.
func (l *ConfirmationLedger) RecordConfirmation(ctx context.Context, ownerID string, obligationID int64, amount core.Money, today core.Date) (ConfirmationResult, error) {
	if err := amount.Validate(); err != nil {
		return ConfirmationResult{}, err
	}

	rec, err := l.obligations.GetObligation(ctx, ownerID, obligationID)
	if err != nil {
		return ConfirmationResult{}, err
	}

	at := l.now()
	total, promoted, err := l.store.ConfirmObligation(ctx, ownerID, obligationID, amount, at)
	if err != nil {
		return ConfirmationResult{}, fmt.Errorf("record confirmation: %w", err)
	}

	if promoted {
		rec.StoredStatus = core.StatusSettled
		rec.SettlementDate = today
	}
	resolved := core.ResolveStatus(rec.StoredStatus, rec.DueDate, today, core.IsFullySettled(rec.Amount, total))

	l.publishEvent(ctx, amqp.EventConfirmationAdded, ownerID, obligationID, rec.SeriesID)
	if promoted {
		l.publishEvent(ctx, amqp.EventObligationSettled, ownerID, obligationID, rec.SeriesID)
	}

	return ConfirmationResult{
		Confirmation: core.Confirmation{
			ObligationID: obligationID,
			Amount:       amount,
			ConfirmedAt:  at,
		},
		Total:           total,
		Remaining:       core.RemainingAmount(rec.Amount, total),
		EffectiveStatus: resolved,
		Promoted:        promoted,
	}, nil
}

// History returns every confirmation recorded against an obligation, oldest
// first.
func (l *ConfirmationLedger) History(ctx context.Context, ownerID string, obligationID int64) ([]core.Confirmation, error) {
	if _, err := l.obligations.GetObligation(ctx, ownerID, obligationID); err != nil {
		return nil, err
	}
	return l.store.ListConfirmations(ctx, ownerID, obligationID)
}

func (l *ConfirmationLedger) publishEvent(ctx context.Context, event, ownerID string, id int64, seriesID string) {
	if l.amqpClient == nil {
		return
	}
	msg := amqp.NewObligationEventMessage(event, ownerID, id, seriesID)
	if err := l.amqpClient.PublishObligationEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish confirmation event",
			"event", event, "id", id, "error", err)
	}
}
