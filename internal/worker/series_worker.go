package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/core"
	applog "contas/internal/log"
)

// SeriesExtender tops up open-ended recurrence series whose future window has
// shrunk below the configured threshold.
type SeriesExtender interface {
	ExtendDueSeries(ctx context.Context, today core.Date) (int, error)
}

// EventConsumer delivers obligation lifecycle events until the context ends.
type EventConsumer interface {
	ConsumeObligationEvents(ctx context.Context, handler func(*amqp.ObligationEventMessage) error) error
}

// SeriesWorker keeps open-ended series topped up and tails the obligation
// event stream. The consumer is optional; without one only the extension loop
// runs.
type SeriesWorker struct {
	extender SeriesExtender
	consumer EventConsumer
	interval time.Duration
	logger   *applog.StructuredLogger
}

func NewSeriesWorker(extender SeriesExtender, consumer EventConsumer, interval time.Duration) *SeriesWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SeriesWorker{
		extender: extender,
		consumer: consumer,
		interval: interval,
		logger:   applog.NewStructuredLogger(applog.New(applog.Config{Component: applog.ComponentWorker})),
	}
}

// Run blocks until the context is cancelled. Extension failures are logged
// and retried on the next tick; only a failed consumer start tears the worker
// down.
func (w *SeriesWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.runExtensionLoop(ctx)
	})

	if w.consumer != nil {
		g.Go(func() error {
			err := w.consumer.ConsumeObligationEvents(ctx, w.HandleObligationEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("consume obligation events: %w", err)
			}
			return err
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SeriesWorker) runExtensionLoop(ctx context.Context) error {
	// Extend once on startup so a long interval cannot delay recovery after
	// worker downtime.
	w.extendOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.extendOnce(ctx)
		}
	}
}

func (w *SeriesWorker) extendOnce(ctx context.Context) {
	today := core.DateOf(time.Now())
	extended, err := w.extender.ExtendDueSeries(ctx, today)
	if err != nil {
		w.logger.LogError(ctx, "Series extension failed", err, applog.ComponentWorker, applog.OpExtend, applog.NewFields())
		return
	}
	if extended > 0 {
		slog.InfoContext(ctx, "Extended open-ended series",
			"series_extended", extended,
			"next_check", time.Now().Add(w.interval).Format("15:04:05"))
	}
}

// HandleObligationEvent processes one obligation lifecycle event. The worker
// only observes the stream; mutations all happen in the API process.
func (w *SeriesWorker) HandleObligationEvent(msg *amqp.ObligationEventMessage) error {
	switch msg.Event {
	case amqp.EventObligationSettled:
		slog.Info("Obligation settled",
			"obligation_id", msg.ObligationID,
			"owner_id", msg.OwnerID)
	case amqp.EventSeriesCreated, amqp.EventSeriesDeleted:
		slog.Info("Series lifecycle event",
			"event", msg.Event,
			"series_id", msg.SeriesID,
			"owner_id", msg.OwnerID)
	default:
		slog.Debug("Obligation event",
			"event", msg.Event,
			"obligation_id", msg.ObligationID,
			"owner_id", msg.OwnerID)
	}
	return nil
}
