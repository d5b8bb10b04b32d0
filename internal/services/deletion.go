package services

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
)

// DeletionCoordinator removes single obligations or whole series, together
// with their confirmation entries.
type DeletionCoordinator struct {
	store      DeletionStore
	amqpClient *amqp.Client
}

func NewDeletionCoordinator(store DeletionStore, amqpClient *amqp.Client) *DeletionCoordinator {
	return &DeletionCoordinator{
		store:      store,
		amqpClient: amqpClient,
	}
}

// DeleteSingle removes one obligation and its confirmations. Siblings in
// the same series are untouched.
func (d *DeletionCoordinator) DeleteSingle(ctx context.Context, ownerID string, id int64) error {
	rec, err := d.store.GetObligation(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := d.store.DeleteObligation(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}

	d.publishEvent(ctx, amqp.EventObligationDeleted, ownerID, id, rec.SeriesID)
	return nil
}

// DeleteSeries removes the obligation and every record sharing its series
// id. A non-recurring obligation degrades to a single delete. When the bulk
// delete removes fewer rows than the series held, the partial state is
// reported as an InconsistentSeriesError.
func (d *DeletionCoordinator) DeleteSeries(ctx context.Context, ownerID string, id int64) error {
	rec, err := d.store.GetObligation(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if rec.SeriesID == "" {
		return d.DeleteSingle(ctx, ownerID, id)
	}

	expected, err := d.store.CountSeries(ctx, ownerID, rec.SeriesID)
	if err != nil {
		return fmt.Errorf("count series: %w", err)
	}
	deleted, err := d.store.DeleteSeries(ctx, ownerID, rec.SeriesID)
	if err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	if deleted != expected {
		return &core.InconsistentSeriesError{
			SeriesID: rec.SeriesID,
			Expected: expected,
			Deleted:  deleted,
		}
	}

	d.publishEvent(ctx, amqp.EventSeriesDeleted, ownerID, id, rec.SeriesID)
	return nil
}

func (d *DeletionCoordinator) publishEvent(ctx context.Context, event, ownerID string, id int64, seriesID string) {
	if d.amqpClient == nil {
		return
	}
	msg := amqp.NewObligationEventMessage(event, ownerID, id, seriesID)
	if err := d.amqpClient.PublishObligationEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish deletion event",
			"event", event, "id", id, "error", err)
	}
}
