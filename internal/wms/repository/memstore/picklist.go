package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
)

type pickListStore struct{ s *Store }

func (r *pickListStore) Create(ctx context.Context, pl *repository.PickList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.pickLists {
		if existing.PickListNumber == pl.PickListNumber {
			return errors.Conflict("a pick list with this number already exists")
		}
		if existing.OrderID == pl.OrderID && existing.Status != repository.PickListCancelled {
			return errors.Conflict("an open pick list already exists for this order")
		}
	}
	if pl.ID == "" {
		pl.ID = uuid.New().String()
	}
	pl.CreatedAt = r.s.now()
	stored := *pl
	stored.Lines, stored.Items = nil, nil
	r.s.st.pickLists[pl.ID] = stored
	return nil
}

func (r *pickListStore) CreateLine(ctx context.Context, line *repository.PickListLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.pickLists[line.PickListID]; !ok {
		return errors.BadRequest("referenced record does not exist")
	}
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	r.s.st.lines[line.ID] = *line
	return nil
}

func (r *pickListStore) CreateItem(ctx context.Context, item *repository.PickListItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.lines[item.LineID]; !ok {
		return errors.BadRequest("referenced record does not exist")
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.PickStatus == "" {
		item.PickStatus = repository.PickNotPicked
	}
	r.s.st.items[item.ID] = *item
	return nil
}

// header copies a stored list and fills in the item counts. Callers hold s.mu.
func (r *pickListStore) header(pl repository.PickList) *repository.PickList {
	pl.TotalItems, pl.PickedItems = 0, 0
	for _, item := range r.s.st.items {
		if item.PickListID != pl.ID {
			continue
		}
		pl.TotalItems++
		if item.PickStatus != repository.PickNotPicked {
			pl.PickedItems++
		}
	}
	return &pl
}

func (r *pickListStore) GetByID(ctx context.Context, id string) (*repository.PickList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pl, ok := r.s.st.pickLists[id]
	if !ok {
		return nil, errors.NotFound("pick list")
	}
	return r.header(pl), nil
}

func (r *pickListStore) GetForUpdate(ctx context.Context, id string) (*repository.PickList, error) {
	return r.GetByID(ctx, id)
}

func (r *pickListStore) FindOpenByOrder(ctx context.Context, orderID string) (*repository.PickList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pl := range r.s.st.pickLists {
		if pl.OrderID == orderID && pl.Status != repository.PickListCancelled {
			return r.header(pl), nil
		}
	}
	return nil, nil
}

func (r *pickListStore) List(ctx context.Context, status string) ([]*repository.PickList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.PickList{}
	for _, pl := range r.s.st.pickLists {
		if status == "" || pl.Status == status {
			out = append(out, r.header(pl))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *pickListStore) ListLines(ctx context.Context, pickListID string) ([]*repository.PickListLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.PickListLine{}
	for _, line := range r.s.st.lines {
		if line.PickListID == pickListID {
			l := line
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out, nil
}

func (r *pickListStore) ListItems(ctx context.Context, pickListID string) ([]*repository.PickListItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type keyed struct {
		item *repository.PickListItem
		line int
		code string
	}
	var rows []keyed
	for _, item := range r.s.st.items {
		if item.PickListID != pickListID {
			continue
		}
		it := item
		rows = append(rows, keyed{
			item: &it,
			line: r.s.st.lines[item.LineID].LineNumber,
			code: r.s.st.locations[item.SuggestedLocationID].Code,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.line != b.line {
			return a.line < b.line
		}
		if a.code != b.code {
			return a.code < b.code
		}
		return a.item.ID < b.item.ID
	})
	out := make([]*repository.PickListItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.item)
	}
	return out, nil
}

func (r *pickListStore) GetItemForUpdate(ctx context.Context, itemID string) (*repository.PickListItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.st.items[itemID]
	if !ok {
		return nil, errors.NotFound("pick list item")
	}
	return &item, nil
}

func (r *pickListStore) RecordPick(ctx context.Context, item *repository.PickListItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.st.items[item.ID]
	if !ok || stored.PickStatus != repository.PickNotPicked {
		return errors.Conflict("pick list item already picked")
	}
	stored.PickedFromLocationID = item.PickedFromLocationID
	stored.PickedQuantity = item.PickedQuantity
	stored.PickStatus = item.PickStatus
	stored.PickedAt = item.PickedAt
	stored.PickedBy = item.PickedBy
	r.s.st.items[item.ID] = stored
	return nil
}

func (r *pickListStore) Transition(ctx context.Context, id string, from []string, to string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pl, ok := r.s.st.pickLists[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if pl.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	stamp := at
	switch to {
	case repository.PickListInProgress:
		pl.StartedAt = &stamp
	case repository.PickListCompleted:
		pl.CompletedAt = &stamp
	case repository.PickListCancelled:
		pl.CancelledAt = &stamp
	default:
		return false, fmt.Errorf("no transition into status %q", to)
	}
	pl.Status = to
	r.s.st.pickLists[id] = pl
	return true, nil
}

func (r *pickListStore) MarkDispatched(ctx context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pl, ok := r.s.st.pickLists[id]
	if !ok || pl.Status != repository.PickListCompleted || pl.DispatchedAt != nil {
		return false, nil
	}
	stamp := at
	pl.DispatchedAt = &stamp
	r.s.st.pickLists[id] = pl
	return true, nil
}

type labelStore struct{ s *Store }

func (r *labelStore) NextSequence(ctx context.Context, lwin18 string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	next := 1
	for _, label := range r.s.st.labels {
		if label.LWIN18 == lwin18 && label.Sequence >= next {
			next = label.Sequence + 1
		}
	}
	return next, nil
}

func (r *labelStore) Create(ctx context.Context, label *repository.CaseLabel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.labels {
		if existing.Barcode == label.Barcode || (existing.LWIN18 == label.LWIN18 && existing.Sequence == label.Sequence) {
			return errors.Conflict("a case label with this barcode already exists")
		}
	}
	label.CreatedAt = r.s.now()
	r.s.st.labels[label.Barcode] = *label
	return nil
}

func (r *labelStore) GetByBarcode(ctx context.Context, barcode string) (*repository.CaseLabel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	label, ok := r.s.st.labels[barcode]
	if !ok {
		return nil, errors.NotFound("case")
	}
	return &label, nil
}

func (r *labelStore) Consume(ctx context.Context, lwin18, lot string, count int, at time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var open []repository.CaseLabel
	for _, label := range r.s.st.labels {
		if label.LWIN18 == lwin18 && label.LotNumber == lot && label.ConsumedAt == nil {
			open = append(open, label)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Sequence < open[j].Sequence })
	if count < len(open) {
		open = open[:count]
	}
	for _, label := range open {
		stamp := at
		label.ConsumedAt = &stamp
		r.s.st.labels[label.Barcode] = label
	}
	return len(open), nil
}

type receiptStore struct{ s *Store }

func (r *receiptStore) Create(ctx context.Context, rec *repository.ShipmentReceipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	r.s.st.receipts = append(r.s.st.receipts, *rec)
	return nil
}

func (r *receiptStore) ListByShipment(ctx context.Context, shipmentID string) ([]*repository.ShipmentReceipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*repository.ShipmentReceipt{}
	for _, rec := range r.s.st.receipts {
		if rec.ShipmentID == shipmentID {
			rc := rec
			out = append(out, &rc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].LWIN18 < out[j].LWIN18
	})
	return out, nil
}
