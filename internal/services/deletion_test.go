package services

import (
	"context"
	"errors"
	"testing"

	"contas/internal/core"
)

func seedSeries(t *testing.T, store *fakeStore, count int) []core.Obligation {
	t.Helper()
	svc := NewObligationService(store, store, nil)
	recs, err := svc.Create(context.Background(), testOwner, testDraft(core.NewDate(2024, 1, 10)), &core.RecurrenceRule{
		Frequency:   core.Monthly,
		Termination: core.ByCount,
		Count:       count,
	})
	if err != nil {
		t.Fatalf("seed series: %v", err)
	}
	return recs
}

func TestDeleteSingleKeepsSiblings(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ctx := context.Background()

	recs := seedSeries(t, store, 3)
	if err := coord.DeleteSingle(ctx, testOwner, recs[1].ID); err != nil {
		t.Fatalf("DeleteSingle() error = %v", err)
	}

	if _, err := store.GetObligation(ctx, testOwner, recs[1].ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted record still readable, error = %v", err)
	}
	for _, id := range []int64{recs[0].ID, recs[2].ID} {
		if _, err := store.GetObligation(ctx, testOwner, id); err != nil {
			t.Errorf("sibling %d gone: %v", id, err)
		}
	}
}

func TestDeleteSingleRemovesConfirmations(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ledger := newTestLedger(store)
	ctx := context.Background()

	id, _ := store.CreateObligation(ctx, testOwner, testDraft(core.NewDate(2024, 6, 1)).Record())
	if _, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: 100}, core.NewDate(2024, 5, 20)); err != nil {
		t.Fatalf("RecordConfirmation() error = %v", err)
	}

	if err := coord.DeleteSingle(ctx, testOwner, id); err != nil {
		t.Fatalf("DeleteSingle() error = %v", err)
	}
	if len(store.confirmations[id]) != 0 {
		t.Error("confirmations should go with their obligation")
	}
}

func TestDeleteSeriesCascades(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ctx := context.Background()

	recs := seedSeries(t, store, 3)
	if err := coord.DeleteSeries(ctx, testOwner, recs[1].ID); err != nil {
		t.Fatalf("DeleteSeries() error = %v", err)
	}
	for _, rec := range recs {
		if _, err := store.GetObligation(ctx, testOwner, rec.ID); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("record %d survived cascade, error = %v", rec.ID, err)
		}
	}
}

func TestDeleteSeriesOnStandalone(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ctx := context.Background()

	id, _ := store.CreateObligation(ctx, testOwner, testDraft(core.NewDate(2024, 6, 1)).Record())
	if err := coord.DeleteSeries(ctx, testOwner, id); err != nil {
		t.Fatalf("DeleteSeries() error = %v", err)
	}
	if _, err := store.GetObligation(ctx, testOwner, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("standalone record survived, error = %v", err)
	}
}

func TestDeleteSeriesInconsistent(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ctx := context.Background()

	recs := seedSeries(t, store, 3)
	store.deleteSeriesShort = true

	err := coord.DeleteSeries(ctx, testOwner, recs[0].ID)
	var inconsistent *core.InconsistentSeriesError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("DeleteSeries() error = %v, want InconsistentSeriesError", err)
	}
	if inconsistent.Expected != 3 || inconsistent.Deleted != 2 {
		t.Errorf("error counts = %d/%d, want 2/3", inconsistent.Deleted, inconsistent.Expected)
	}
	if inconsistent.SeriesID != recs[0].SeriesID {
		t.Errorf("SeriesID = %q, want %q", inconsistent.SeriesID, recs[0].SeriesID)
	}
}

func TestDeleteNotFound(t *testing.T) {
	store := newFakeStore()
	coord := NewDeletionCoordinator(store, nil)
	ctx := context.Background()

	if err := coord.DeleteSingle(ctx, testOwner, 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteSingle() error = %v, want ErrNotFound", err)
	}
	if err := coord.DeleteSeries(ctx, testOwner, 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteSeries() error = %v, want ErrNotFound", err)
	}
}
