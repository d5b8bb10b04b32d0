package http

import (
	"context"

	"contas/internal/core"
	"contas/internal/services"
)

// Service interfaces the transport depends on. The concrete services in
// internal/services satisfy them; tests substitute stubs.

type ObligationAPI interface {
	Create(ctx context.Context, ownerID string, draft core.ObligationDraft, rule *core.RecurrenceRule) ([]core.Obligation, error)
	Get(ctx context.Context, ownerID string, id int64, today core.Date) (core.ResolvedObligation, error)
	List(ctx context.Context, ownerID string, f core.Filter, today core.Date) ([]core.ResolvedObligation, core.PeriodSummary, error)
	Update(ctx context.Context, ownerID string, rec core.Obligation) error
}

type LedgerAPI interface {
	RecordConfirmation(ctx context.Context, ownerID string, obligationID int64, amount core.Money, today core.Date) (services.ConfirmationResult, error)
	History(ctx context.Context, ownerID string, obligationID int64) ([]core.Confirmation, error)
}

type DeletionAPI interface {
	DeleteSingle(ctx context.Context, ownerID string, id int64) error
	DeleteSeries(ctx context.Context, ownerID string, id int64) error
}
