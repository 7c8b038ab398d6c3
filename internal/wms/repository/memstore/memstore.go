// Package memstore is an in-memory repository.Store for tests and demos.
// Transactions are serialized and rolled back by restoring a snapshot, which
// gives the same all-or-nothing behaviour as the SQL store.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
)

type state struct {
	locations map[string]repository.Location
	stock     map[string]repository.StockRecord
	movements []repository.StockMovement
	pickLists map[string]repository.PickList
	lines     map[string]repository.PickListLine
	items     map[string]repository.PickListItem
	labels    map[string]repository.CaseLabel
	receipts  []repository.ShipmentReceipt
	seq       int64
}

func newState() *state {
	return &state{
		locations: map[string]repository.Location{},
		stock:     map[string]repository.StockRecord{},
		pickLists: map[string]repository.PickList{},
		lines:     map[string]repository.PickListLine{},
		items:     map[string]repository.PickListItem{},
		labels:    map[string]repository.CaseLabel{},
	}
}

func (s *state) clone() *state {
	c := &state{
		locations: make(map[string]repository.Location, len(s.locations)),
		stock:     make(map[string]repository.StockRecord, len(s.stock)),
		movements: append([]repository.StockMovement(nil), s.movements...),
		pickLists: make(map[string]repository.PickList, len(s.pickLists)),
		lines:     make(map[string]repository.PickListLine, len(s.lines)),
		items:     make(map[string]repository.PickListItem, len(s.items)),
		labels:    make(map[string]repository.CaseLabel, len(s.labels)),
		receipts:  append([]repository.ShipmentReceipt(nil), s.receipts...),
		seq:       s.seq,
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.pickLists {
		c.pickLists[k] = v
	}
	for k, v := range s.lines {
		c.lines[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.labels {
		c.labels[k] = v
	}
	return c
}

// Store is an in-memory repository.Store
type Store struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	st    *state
	clock time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{st: newState(), clock: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)}
}

// now returns a strictly increasing timestamp so ordering by time is deterministic.
// Callers hold s.mu.
func (s *Store) now() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// Repositories returns repositories over the live state
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Locations: &locationStore{s},
		Stock:     &stockStore{s},
		Movements: &movementStore{s},
		PickLists: &pickListStore{s},
		Labels:    &labelStore{s},
		Receipts:  &receiptStore{s},
	}
}

// InTx runs fn serialized with other transactions; state is restored if fn fails.
func (s *Store) InTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s.Repositories()); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// StockRecords returns every stock record
func (s *Store) StockRecords() []repository.StockRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.StockRecord, 0, len(s.st.stock))
	for _, v := range s.st.stock {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Movements returns the whole ledger in insertion order
func (s *Store) Movements() []repository.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.StockMovement(nil), s.st.movements...)
}

// CaseLabels returns every case label ordered by barcode
func (s *Store) CaseLabels() []repository.CaseLabel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.CaseLabel, 0, len(s.st.labels))
	for _, v := range s.st.labels {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Barcode < out[j].Barcode })
	return out
}

// Receipts returns every shipment receipt
func (s *Store) Receipts() []repository.ShipmentReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]repository.ShipmentReceipt(nil), s.st.receipts...)
}

type locationStore struct{ s *Store }

func (r *locationStore) Create(ctx context.Context, loc *repository.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.locations {
		if existing.Code == loc.Code || existing.Barcode == loc.Barcode {
			return errors.Conflict("a location with this code already exists")
		}
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	loc.CreatedAt = r.s.now()
	r.s.st.locations[loc.ID] = *loc
	return nil
}

func (r *locationStore) GetByID(ctx context.Context, id string) (*repository.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.st.locations[id]
	if !ok {
		return nil, errors.NotFound("location")
	}
	return &loc, nil
}

func (r *locationStore) GetByBarcode(ctx context.Context, barcode string) (*repository.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, loc := range r.s.st.locations {
		if loc.Barcode == barcode {
			l := loc
			return &l, nil
		}
	}
	return nil, errors.NotFound("location")
}

func (r *locationStore) List(ctx context.Context, locationType string) ([]*repository.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.Location{}
	for _, loc := range r.s.st.locations {
		if locationType == "" || loc.Type == locationType {
			l := loc
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *locationStore) FirstByType(ctx context.Context, locationType string) (*repository.Location, error) {
	locs, _ := r.List(ctx, locationType)
	if len(locs) == 0 {
		return nil, errors.NotFound(locationType + " location")
	}
	return locs[0], nil
}
