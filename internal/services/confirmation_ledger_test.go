package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"contas/internal/core"
)

func newTestLedger(store *fakeStore) *ConfirmationLedger {
	ledger := NewConfirmationLedger(store, store, nil)
	ledger.now = func() time.Time {
		return time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	}
	return ledger
}

func TestRecordConfirmationPartial(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	draft := testDraft(core.NewDate(2024, 6, 1))
	draft.Amount = core.Money{Cents: 100000}
	id, _ := store.CreateObligation(ctx, testOwner, draft.Record())

	res, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: 60000}, core.NewDate(2024, 5, 20))
	if err != nil {
		t.Fatalf("RecordConfirmation() error = %v", err)
	}
	if res.Total.Cents != 60000 {
		t.Errorf("Total = %d, want 60000", res.Total.Cents)
	}
	if res.Remaining.Cents != 40000 {
		t.Errorf("Remaining = %d, want 40000", res.Remaining.Cents)
	}
	if res.Promoted {
		t.Error("partial confirmation should not promote")
	}
	if res.EffectiveStatus != core.StatusPending {
		t.Errorf("EffectiveStatus = %q, want pending", res.EffectiveStatus)
	}
}

func TestRecordConfirmationPromotes(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	draft := testDraft(core.NewDate(2024, 6, 1))
	draft.Amount = core.Money{Cents: 100000}
	id, _ := store.CreateObligation(ctx, testOwner, draft.Record())

	if _, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: 50000}, core.NewDate(2024, 5, 20)); err != nil {
		t.Fatalf("first RecordConfirmation() error = %v", err)
	}
	res, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: 50000}, core.NewDate(2024, 5, 21))
	if err != nil {
		t.Fatalf("second RecordConfirmation() error = %v", err)
	}
	if !res.Promoted {
		t.Error("reaching the full amount should promote")
	}
	if res.Remaining.Cents != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining.Cents)
	}
	if res.EffectiveStatus != core.StatusSettled {
		t.Errorf("EffectiveStatus = %q, want settled", res.EffectiveStatus)
	}

	stored, _ := store.GetObligation(ctx, testOwner, id)
	if stored.StoredStatus != core.StatusSettled {
		t.Errorf("StoredStatus = %q, want settled persisted", stored.StoredStatus)
	}
	if stored.SettlementDate.IsEmpty() {
		t.Error("SettlementDate should be set on promotion")
	}
}

func TestRecordConfirmationOverpayment(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	draft := testDraft(core.NewDate(2024, 6, 1))
	draft.Amount = core.Money{Cents: 100000}
	id, _ := store.CreateObligation(ctx, testOwner, draft.Record())

	res, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: 150000}, core.NewDate(2024, 5, 20))
	if err != nil {
		t.Fatalf("RecordConfirmation() error = %v", err)
	}
	if !res.Promoted {
		t.Error("overpayment should still promote")
	}
	if res.Total.Cents != 150000 {
		t.Errorf("Total = %d, want full recorded amount 150000", res.Total.Cents)
	}
	if res.Remaining.Cents != 0 {
		t.Errorf("Remaining = %d, want clamped 0", res.Remaining.Cents)
	}
}

func TestRecordConfirmationInvalidAmount(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	id, _ := store.CreateObligation(ctx, testOwner, testDraft(core.NewDate(2024, 6, 1)).Record())

	for _, cents := range []int64{0, -500} {
		if _, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: cents}, core.NewDate(2024, 5, 20)); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("RecordConfirmation(%d) error = %v, want ErrInvalidAmount", cents, err)
		}
	}
	if len(store.confirmations[id]) != 0 {
		t.Error("rejected amounts must not be written")
	}
}

func TestRecordConfirmationNotFound(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)

	_, err := ledger.RecordConfirmation(context.Background(), testOwner, 42, core.Money{Cents: 100}, core.NewDate(2024, 5, 20))
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("RecordConfirmation() error = %v, want ErrNotFound", err)
	}
}

func TestConfirmationHistory(t *testing.T) {
	store := newFakeStore()
	ledger := newTestLedger(store)
	ctx := context.Background()

	draft := testDraft(core.NewDate(2024, 6, 1))
	draft.Amount = core.Money{Cents: 100000}
	id, _ := store.CreateObligation(ctx, testOwner, draft.Record())

	for _, cents := range []int64{25000, 25000, 10000} {
		if _, err := ledger.RecordConfirmation(ctx, testOwner, id, core.Money{Cents: cents}, core.NewDate(2024, 5, 20)); err != nil {
			t.Fatalf("RecordConfirmation() error = %v", err)
		}
	}

	history, err := ledger.History(ctx, testOwner, id)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	if got := core.SumConfirmations(history); got.Cents != 60000 {
		t.Errorf("sum = %d, want 60000", got.Cents)
	}

	if _, err := ledger.History(ctx, testOwner, 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("History() missing error = %v, want ErrNotFound", err)
	}
}

// Mirrors the full flow: a three-element monthly series where two partial
// confirmations settle only the first occurrence.
func TestSeriesSettlementScenario(t *testing.T) {
	store := newFakeStore()
	svc := NewObligationService(store, store, nil)
	ledger := newTestLedger(store)
	ctx := context.Background()

	draft := testDraft(core.NewDate(2024, 1, 10))
	draft.Amount = core.Money{Cents: 120000}
	recs, err := svc.Create(ctx, testOwner, draft, &core.RecurrenceRule{
		Frequency:   core.Monthly,
		Termination: core.ByCount,
		Count:       3,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	today := core.NewDate(2024, 1, 20)
	if _, err := ledger.RecordConfirmation(ctx, testOwner, recs[0].ID, core.Money{Cents: 60000}, today); err != nil {
		t.Fatalf("RecordConfirmation() error = %v", err)
	}
	res, err := ledger.RecordConfirmation(ctx, testOwner, recs[0].ID, core.Money{Cents: 60000}, today)
	if err != nil {
		t.Fatalf("RecordConfirmation() error = %v", err)
	}
	if !res.Promoted {
		t.Fatal("first occurrence should be settled")
	}

	listed, _, err := svc.List(ctx, testOwner, core.Filter{}, core.NewDate(2024, 2, 15))
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("len(listed) = %d, want 3", len(listed))
	}
	wantStatuses := []core.Status{core.StatusSettled, core.StatusOverdue, core.StatusPending}
	for i, rec := range listed {
		if rec.EffectiveStatus != wantStatuses[i] {
			t.Errorf("listed[%d].EffectiveStatus = %q, want %q", i, rec.EffectiveStatus, wantStatuses[i])
		}
	}
}
