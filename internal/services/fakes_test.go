package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"contas/internal/core"
)

// fakeStore is an in-memory stand-in for the SQLite repository, covering
// every store interface the services consume.
type fakeStore struct {
	mu            sync.Mutex
	nextID        int64
	owners        map[int64]string
	obligations   map[int64]core.Obligation
	confirmations map[int64][]core.Confirmation
	seriesRules   map[string]core.RecurrenceRule
	seriesOwners  map[string]string

	// deleteSeriesShort makes DeleteSeries leave one row behind, simulating
	// a partial cascade.
	deleteSeriesShort bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		owners:        make(map[int64]string),
		obligations:   make(map[int64]core.Obligation),
		confirmations: make(map[int64][]core.Confirmation),
		seriesRules:   make(map[string]core.RecurrenceRule),
		seriesOwners:  make(map[string]string),
	}
}

func (f *fakeStore) insert(ownerID string, o core.Obligation) int64 {
	f.nextID++
	o.ID = f.nextID
	f.obligations[o.ID] = o
	f.owners[o.ID] = ownerID
	return o.ID
}

func (f *fakeStore) CreateObligation(_ context.Context, ownerID string, o core.Obligation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(ownerID, o), nil
}

func (f *fakeStore) CreateSeries(_ context.Context, ownerID string, batch []core.Obligation, rule core.RecurrenceRule) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(batch))
	for _, o := range batch {
		ids = append(ids, f.insert(ownerID, o))
	}
	if len(batch) > 0 {
		f.seriesRules[batch[0].SeriesID] = rule
		f.seriesOwners[batch[0].SeriesID] = ownerID
	}
	return ids, nil
}

func (f *fakeStore) GetObligation(_ context.Context, ownerID string, id int64) (core.Obligation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.obligations[id]
	if !ok || f.owners[id] != ownerID {
		return core.Obligation{}, core.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) ListObligations(_ context.Context, ownerID string, filter core.Filter) ([]core.ObligationWithTotal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.ObligationWithTotal
	for id, o := range f.obligations {
		if f.owners[id] != ownerID {
			continue
		}
		if !filter.From.IsEmpty() && o.DueDate.BeforeDay(filter.From) {
			continue
		}
		if !filter.To.IsEmpty() && o.DueDate.AfterDay(filter.To) {
			continue
		}
		if filter.Category != "" && o.Category != filter.Category {
			continue
		}
		if filter.Kind != "" && o.Kind != filter.Kind {
			continue
		}
		out = append(out, core.ObligationWithTotal{
			Obligation: o,
			Confirmed:  core.SumConfirmations(f.confirmations[id]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate.Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.BeforeDay(out[j].DueDate)
	})
	return out, nil
}

func (f *fakeStore) UpdateObligation(_ context.Context, ownerID string, o core.Obligation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.obligations[o.ID]; !ok || f.owners[o.ID] != ownerID {
		return core.ErrNotFound
	}
	f.obligations[o.ID] = o
	return nil
}

func (f *fakeStore) ConfirmObligation(_ context.Context, ownerID string, obligationID int64, amount core.Money, at time.Time) (core.Money, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.obligations[obligationID]
	if !ok || f.owners[obligationID] != ownerID {
		return core.Money{}, false, core.ErrNotFound
	}
	f.nextID++
	f.confirmations[obligationID] = append(f.confirmations[obligationID], core.Confirmation{
		ID:           f.nextID,
		ObligationID: obligationID,
		Amount:       amount,
		ConfirmedAt:  at,
	})
	total := core.SumConfirmations(f.confirmations[obligationID])
	promoted := false
	if core.IsFullySettled(o.Amount, total) && o.StoredStatus != core.StatusSettled {
		o.StoredStatus = core.StatusSettled
		o.SettlementDate = core.DateOf(at)
		f.obligations[obligationID] = o
		promoted = true
	}
	return total, promoted, nil
}

func (f *fakeStore) ListConfirmations(_ context.Context, ownerID string, obligationID int64) ([]core.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners[obligationID] != ownerID {
		return nil, core.ErrNotFound
	}
	return append([]core.Confirmation(nil), f.confirmations[obligationID]...), nil
}

func (f *fakeStore) SumConfirmations(_ context.Context, ownerID string, obligationID int64) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners[obligationID] != ownerID {
		return core.Money{}, core.ErrNotFound
	}
	return core.SumConfirmations(f.confirmations[obligationID]), nil
}

func (f *fakeStore) CountSeries(_ context.Context, ownerID, seriesID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, o := range f.obligations {
		if f.owners[id] == ownerID && o.SeriesID == seriesID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteObligation(_ context.Context, ownerID string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.obligations[id]; !ok || f.owners[id] != ownerID {
		return core.ErrNotFound
	}
	delete(f.obligations, id)
	delete(f.owners, id)
	delete(f.confirmations, id)
	return nil
}

func (f *fakeStore) DeleteSeries(_ context.Context, ownerID, seriesID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, o := range f.obligations {
		if f.owners[id] == ownerID && o.SeriesID == seriesID {
			ids = append(ids, id)
		}
	}
	if f.deleteSeriesShort && len(ids) > 0 {
		ids = ids[:len(ids)-1]
	}
	for _, id := range ids {
		delete(f.obligations, id)
		delete(f.owners, id)
		delete(f.confirmations, id)
	}
	return int64(len(ids)), nil
}

func (f *fakeStore) ListOpenEndedSeries(_ context.Context, today core.Date) ([]core.SeriesState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.SeriesState
	for seriesID, rule := range f.seriesRules {
		if rule.Termination != core.Forever {
			continue
		}
		st := core.SeriesState{
			SeriesID:  seriesID,
			OwnerID:   f.seriesOwners[seriesID],
			Frequency: rule.Frequency,
			Lookahead: rule.EffectiveLookahead(),
		}
		for id, o := range f.obligations {
			if f.owners[id] != st.OwnerID || o.SeriesID != seriesID {
				continue
			}
			if st.Total == 0 || o.DueDate.BeforeDay(st.Anchor) {
				st.Anchor = o.DueDate
			}
			st.Total++
			if o.DueDate.AfterDay(today) {
				st.FutureCount++
			}
			st.Template = o
		}
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeStore) AppendToSeries(_ context.Context, ownerID string, batch []core.Obligation) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(batch))
	for _, o := range batch {
		ids = append(ids, f.insert(ownerID, o))
	}
	return ids, nil
}
