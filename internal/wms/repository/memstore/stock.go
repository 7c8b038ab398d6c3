package memstore

import (
	"context"
	"sort"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
)

type stockStore struct{ s *Store }

// withCode fills in the joined location code. Callers hold s.mu.
func (r *stockStore) withCode(rec repository.StockRecord) *repository.StockRecord {
	if loc, ok := r.s.st.locations[rec.LocationID]; ok {
		rec.LocationCode = loc.Code
	}
	return &rec
}

func (r *stockStore) Create(ctx context.Context, rec *repository.StockRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.locations[rec.LocationID]; !ok {
		return errors.BadRequest("referenced record does not exist")
	}
	if rec.QuantityCases < 0 || rec.AvailableCases < 0 || rec.AvailableCases > rec.QuantityCases {
		return errors.BadRequest("invalid quantity")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := r.s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.s.st.stock[rec.ID] = *rec
	return nil
}

func (r *stockStore) GetByID(ctx context.Context, id string) (*repository.StockRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.st.stock[id]
	if !ok {
		return nil, errors.NotFound("stock record")
	}
	return r.withCode(rec), nil
}

func (r *stockStore) GetForUpdate(ctx context.Context, id string) (*repository.StockRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *stockStore) FindForMerge(ctx context.Context, locationID, lwin18, ownerID, lot string) (*repository.StockRecord, error) {
	matches := r.filter(func(rec repository.StockRecord) bool {
		return rec.LocationID == locationID && rec.LWIN18 == lwin18 && rec.OwnerID == ownerID && rec.LotNumber == lot
	})
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	return matches[0], nil
}

func (r *stockStore) filter(keep func(repository.StockRecord) bool) []*repository.StockRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.StockRecord{}
	for _, rec := range r.s.st.stock {
		if keep(rec) {
			out = append(out, r.withCode(rec))
		}
	}
	return out
}

func (r *stockStore) ListByLocation(ctx context.Context, locationID string) ([]*repository.StockRecord, error) {
	out := r.filter(func(rec repository.StockRecord) bool { return rec.LocationID == locationID })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LWIN18 != b.LWIN18 {
			return a.LWIN18 < b.LWIN18
		}
		if a.LotNumber != b.LotNumber {
			return a.LotNumber < b.LotNumber
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *stockStore) ListByLWIN(ctx context.Context, lwin18 string) ([]*repository.StockRecord, error) {
	out := r.filter(func(rec repository.StockRecord) bool { return rec.LWIN18 == lwin18 })
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationCode != out[j].LocationCode {
			return out[i].LocationCode < out[j].LocationCode
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *stockStore) AllocationCandidates(ctx context.Context, lwin18 string) ([]*repository.StockRecord, error) {
	r.s.mu.Lock()
	storage := map[string]bool{}
	for id, loc := range r.s.st.locations {
		storage[id] = repository.IsStorageType(loc.Type)
	}
	r.s.mu.Unlock()

	out := r.filter(func(rec repository.StockRecord) bool {
		return rec.LWIN18 == lwin18 && rec.AvailableCases > 0 && storage[rec.LocationID]
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AvailableCases != b.AvailableCases {
			return a.AvailableCases < b.AvailableCases
		}
		if a.LocationCode != b.LocationCode {
			return a.LocationCode < b.LocationCode
		}
		return a.ID < b.ID
	})
	return out, nil
}

// update applies fn to a record when guard holds, otherwise returns failed(rec).
func (r *stockStore) update(id string, guard func(repository.StockRecord) bool, fn func(*repository.StockRecord), failed func(repository.StockRecord) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.st.stock[id]
	if !ok {
		return errors.NotFound("stock record")
	}
	if !guard(rec) {
		return failed(rec)
	}
	fn(&rec)
	rec.UpdatedAt = r.s.now()
	r.s.st.stock[id] = rec
	return nil
}

func insufficient(requested int) func(repository.StockRecord) error {
	return func(rec repository.StockRecord) error {
		return errors.InsufficientStock(requested, rec.AvailableCases)
	}
}

func (r *stockStore) Reserve(ctx context.Context, id string, cases int) error {
	return r.update(id,
		func(rec repository.StockRecord) bool { return rec.AvailableCases >= cases },
		func(rec *repository.StockRecord) { rec.AvailableCases -= cases },
		insufficient(cases))
}

func (r *stockStore) Release(ctx context.Context, id string, cases int) error {
	return r.update(id,
		func(rec repository.StockRecord) bool { return rec.AvailableCases+cases <= rec.QuantityCases },
		func(rec *repository.StockRecord) { rec.AvailableCases += cases },
		func(repository.StockRecord) error { return errors.Conflict("cannot release more cases than are reserved") })
}

func (r *stockStore) TakeAvailable(ctx context.Context, id string, cases int) error {
	return r.update(id,
		func(rec repository.StockRecord) bool { return rec.AvailableCases >= cases },
		func(rec *repository.StockRecord) {
			rec.QuantityCases -= cases
			rec.AvailableCases -= cases
		},
		insufficient(cases))
}

func (r *stockStore) TakeReserved(ctx context.Context, id string, cases int) error {
	return r.update(id,
		func(rec repository.StockRecord) bool { return rec.QuantityCases-cases >= rec.AvailableCases },
		func(rec *repository.StockRecord) { rec.QuantityCases -= cases },
		func(repository.StockRecord) error { return errors.Conflict("not enough reserved cases on stock record") })
}

func (r *stockStore) Add(ctx context.Context, id string, quantity, available int) error {
	return r.update(id,
		func(repository.StockRecord) bool { return true },
		func(rec *repository.StockRecord) {
			rec.QuantityCases += quantity
			rec.AvailableCases += available
		},
		nil)
}

func (r *stockStore) DeleteIfEmpty(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec, ok := r.s.st.stock[id]; ok && rec.QuantityCases == 0 {
		delete(r.s.st.stock, id)
	}
	return nil
}

type movementStore struct{ s *Store }

func (r *movementStore) Create(ctx context.Context, m *repository.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.QuantityCases <= 0 {
		return errors.BadRequest("invalid quantity")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	r.s.st.seq++
	m.Seq = r.s.st.seq
	r.s.st.movements = append(r.s.st.movements, *m)
	return nil
}

func (r *movementStore) list(keep func(repository.StockMovement) bool) []*repository.StockMovement {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.StockMovement{}
	for _, m := range r.s.st.movements {
		if keep(m) {
			mv := m
			out = append(out, &mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].PerformedAt.Before(out[j].PerformedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

func (r *movementStore) ListByLWIN(ctx context.Context, lwin18 string) ([]*repository.StockMovement, error) {
	return r.list(func(m repository.StockMovement) bool { return m.LWIN18 == lwin18 }), nil
}

func (r *movementStore) ListByPickList(ctx context.Context, pickListID string) ([]*repository.StockMovement, error) {
	return r.list(func(m repository.StockMovement) bool {
		return m.PickListID != nil && *m.PickListID == pickListID
	}), nil
}
