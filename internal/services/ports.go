package services

import (
	"context"
	"time"

	"contas/internal/core"
)

// Store interfaces consumed by the services. The SQLite repository
// satisfies all of them; tests substitute in-memory fakes. Every method is
// scoped by the owning user id, which the caller receives from the external
// auth context and threads through explicitly.

// ObligationStore persists obligation records.
type ObligationStore interface {
	CreateObligation(ctx context.Context, ownerID string, o core.Obligation) (int64, error)
	// CreateSeries bulk-persists one expansion batch plus its series
	// metadata in a single transaction.
	CreateSeries(ctx context.Context, ownerID string, batch []core.Obligation, rule core.RecurrenceRule) ([]int64, error)
	GetObligation(ctx context.Context, ownerID string, id int64) (core.Obligation, error)
	ListObligations(ctx context.Context, ownerID string, f core.Filter) ([]core.ObligationWithTotal, error)
	UpdateObligation(ctx context.Context, ownerID string, o core.Obligation) error
}

// ConfirmationStore appends settlement confirmations.
type ConfirmationStore interface {
	// ConfirmObligation appends one entry and returns the fresh aggregate
	// sum plus whether the write promoted the obligation to settled.
	// Insert, sum and promotion run in one storage transaction.
	ConfirmObligation(ctx context.Context, ownerID string, obligationID int64, amount core.Money, at time.Time) (core.Money, bool, error)
	ListConfirmations(ctx context.Context, ownerID string, obligationID int64) ([]core.Confirmation, error)
	SumConfirmations(ctx context.Context, ownerID string, obligationID int64) (core.Money, error)
}

// DeletionStore removes obligations and whole series.
type DeletionStore interface {
	GetObligation(ctx context.Context, ownerID string, id int64) (core.Obligation, error)
	CountSeries(ctx context.Context, ownerID, seriesID string) (int64, error)
	DeleteObligation(ctx context.Context, ownerID string, id int64) error
	// DeleteSeries removes every sibling and their confirmations in one
	// bulk statement, returning the number of obligation rows removed.
	DeleteSeries(ctx context.Context, ownerID, seriesID string) (int64, error)
}

// ExtensionStore feeds the open-ended series worker.
type ExtensionStore interface {
	ListOpenEndedSeries(ctx context.Context, today core.Date) ([]core.SeriesState, error)
	AppendToSeries(ctx context.Context, ownerID string, batch []core.Obligation) ([]int64, error)
}
