package service

import (
	"context"
	"strconv"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/lwin"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/messaging"
)

// PickListService generates pick lists from orders and drives them through
// picking, completion and dispatch.
type PickListService struct {
	store     repository.Store
	ids       *idgen.Generator
	publisher *events.WarehouseEventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewPickListService creates a new pick list service
func NewPickListService(
	store repository.Store,
	ids *idgen.Generator,
	publisher *events.WarehouseEventPublisher,
	log *logger.Logger,
) *PickListService {
	return &PickListService{
		store:     store,
		ids:       ids,
		publisher: publisher,
		logger:    log,
		now:       utcNow,
	}
}

// OrderLine is one product line of an order
type OrderLine struct {
	LWIN18   string `json:"lwin18" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// Order is the order record a pick list is generated from
type Order struct {
	OrderID string      `json:"order_id" validate:"required"`
	Lines   []OrderLine `json:"lines" validate:"required,min=1,dive"`
}

// PickRequest confirms one pick instruction
type PickRequest struct {
	ItemID               string `json:"item_id" validate:"required"`
	PickedFromLocationID string `json:"picked_from_location_id" validate:"required"`
	PickedQuantity       int    `json:"picked_quantity" validate:"gte=0"`
	// Short must be set to pick fewer cases than suggested
	Short bool `json:"short"`
}

// PickResult is the picked item and the list's new state
type PickResult struct {
	Item     *repository.PickListItem `json:"item"`
	PickList *repository.PickList     `json:"pick_list"`
}

// DispatchResult lists the dispatch movements written for a pick list
type DispatchResult struct {
	PickList      *repository.PickList        `json:"pick_list"`
	Movements     []*repository.StockMovement `json:"movements"`
	ConsumedCases int                         `json:"consumed_case_labels"`
}

func (o *Order) validate() error {
	details := map[string]string{}
	if o.OrderID == "" {
		details["order_id"] = "this field is required"
	}
	if len(o.Lines) == 0 {
		details["lines"] = "must be at least 1"
	}
	for i := range o.Lines {
		line := &o.Lines[i]
		compact, err := lwin.Validate("lwin18", line.LWIN18)
		if err != nil {
			details["lines["+strconv.Itoa(i)+"].lwin18"] = "must be an LWIN18"
		}
		line.LWIN18 = compact
		if line.Quantity <= 0 {
			details["lines["+strconv.Itoa(i)+"].quantity"] = "must be greater than 0"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// CreateFromOrder generates a pick list for an order. Each line is
// allocated greedily from the stock records at rack and floor locations
// with the fewest available cases first (then location code, then record
// id), reserving what it takes. A line that cannot be fully allocated is
// recorded with its shortfall, never rejected. The staging location
// defaults to the first shipping location by code.
func (s *PickListService) CreateFromOrder(ctx context.Context, order Order, stagingLocationID string) (*repository.PickList, error) {
	if err := order.validate(); err != nil {
		return nil, err
	}

	createdBy := actor.ID(ctx)
	var pickListID string

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		existing, err := repos.PickLists.FindOpenByOrder(ctx, order.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.Conflict("an open pick list already exists for this order").
				WithDetails(map[string]string{"pick_list_id": existing.ID})
		}

		staging, err := s.stagingLocation(ctx, repos, stagingLocationID)
		if err != nil {
			return err
		}

		pl := &repository.PickList{
			PickListNumber:    s.ids.PickListNumber(),
			OrderID:           order.OrderID,
			Status:            repository.PickListPending,
			StagingLocationID: staging.ID,
			CreatedBy:         createdBy,
		}
		if err := repos.PickLists.Create(ctx, pl); err != nil {
			return err
		}
		pickListID = pl.ID

		for i, line := range order.Lines {
			if err := s.allocateLine(ctx, repos, pl.ID, i+1, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pl, err := s.Get(ctx, pickListID)
	if err != nil {
		return nil, err
	}

	for _, line := range pl.Lines {
		if line.ShortCases() > 0 {
			s.logger.Warn().
				Str("pick_list_id", pl.ID).
				Str("lwin18", line.LWIN18).
				Int("requested", line.RequestedCases).
				Int("allocated", line.AllocatedCases).
				Msg("order line partially allocated")
		}
	}
	s.logger.Info().
		Str("pick_list_id", pl.ID).
		Str("order_id", pl.OrderID).
		Int("items", pl.TotalItems).
		Msg("pick list created")
	s.publisher.PublishPickList(ctx, messaging.EventPickListCreated, pl, createdBy)
	return pl, nil
}

func (s *PickListService) stagingLocation(ctx context.Context, repos repository.Repositories, id string) (*repository.Location, error) {
	if id == "" {
		return repos.Locations.FirstByType(ctx, repository.LocationShipping)
	}
	loc, err := repos.Locations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.Type != repository.LocationShipping {
		return nil, errors.Invalid("staging_location_id", "must be a shipping location")
	}
	return loc, nil
}

type allocation struct {
	record *repository.StockRecord
	cases  int
}

func (s *PickListService) allocateLine(ctx context.Context, repos repository.Repositories, pickListID string, lineNumber int, line OrderLine) error {
	candidates, err := repos.Stock.AllocationCandidates(ctx, line.LWIN18)
	if err != nil {
		return err
	}

	var allocations []allocation
	remaining := line.Quantity
	for _, rec := range candidates {
		if remaining == 0 {
			break
		}
		take := rec.AvailableCases
		if take > remaining {
			take = remaining
		}
		if err := repos.Stock.Reserve(ctx, rec.ID, take); err != nil {
			return err
		}
		allocations = append(allocations, allocation{record: rec, cases: take})
		remaining -= take
	}

	pickLine := &repository.PickListLine{
		PickListID:     pickListID,
		LineNumber:     lineNumber,
		LWIN18:         line.LWIN18,
		RequestedCases: line.Quantity,
		AllocatedCases: line.Quantity - remaining,
	}
	if err := repos.PickLists.CreateLine(ctx, pickLine); err != nil {
		return err
	}

	for _, a := range allocations {
		item := &repository.PickListItem{
			PickListID:          pickListID,
			LineID:              pickLine.ID,
			LWIN18:              a.record.LWIN18,
			ProductName:         a.record.ProductName,
			OwnerID:             a.record.OwnerID,
			LotNumber:           a.record.LotNumber,
			SuggestedLocationID: a.record.LocationID,
			SuggestedStockID:    a.record.ID,
			SuggestedQuantity:   a.cases,
			PickStatus:          repository.PickNotPicked,
		}
		if err := repos.PickLists.CreateItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// PickItem records a pick. The cases leave the picked location for the
// list's staging location with one pick movement, and the item's whole
// reservation is released. Picking fewer cases than suggested requires
// Short. Picking from a location other than the suggested one is accepted
// when it holds the same lot with enough available cases.
func (s *PickListService) PickItem(ctx context.Context, req PickRequest) (*PickResult, error) {
	if req.ItemID == "" {
		return nil, errors.Invalid("item_id", "this field is required")
	}
	if req.PickedFromLocationID == "" {
		return nil, errors.Invalid("picked_from_location_id", "this field is required")
	}
	if req.PickedQuantity < 0 {
		return nil, errors.Invalid("picked_quantity", "must be at least 0")
	}

	performedBy := actor.ID(ctx)
	at := s.now()
	var picked *repository.PickListItem

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		item, err := repos.PickLists.GetItemForUpdate(ctx, req.ItemID)
		if err != nil {
			return err
		}
		pl, err := repos.PickLists.GetForUpdate(ctx, item.PickListID)
		if err != nil {
			return err
		}
		if !pl.IsOpen() {
			return errors.Conflict("pick list is " + pl.Status)
		}
		if item.IsPicked() {
			return errors.Conflict("pick list item already picked")
		}

		if req.PickedQuantity > item.SuggestedQuantity {
			return errors.Invalid("picked_quantity", "must be at most "+strconv.Itoa(item.SuggestedQuantity))
		}
		status := repository.PickPicked
		if req.PickedQuantity < item.SuggestedQuantity {
			if !req.Short {
				return errors.Invalid("short", "must be set to pick fewer cases than suggested")
			}
			status = repository.PickShort
		}

		sourceID := item.SuggestedStockID
		if req.PickedFromLocationID != item.SuggestedLocationID {
			substitute, err := repos.Stock.FindForMerge(ctx, req.PickedFromLocationID, item.LWIN18, item.OwnerID, item.LotNumber)
			if err != nil {
				return err
			}
			if substitute == nil {
				return errors.Invalid("picked_from_location_id", "location does not hold this lot")
			}
			if substitute.AvailableCases < req.PickedQuantity {
				return errors.InsufficientStock(req.PickedQuantity, substitute.AvailableCases)
			}
			sourceID = substitute.ID
		}

		if err := repos.Stock.Release(ctx, item.SuggestedStockID, item.SuggestedQuantity); err != nil {
			return err
		}

		if req.PickedQuantity > 0 {
			if err := s.stage(ctx, repos, pl, item, sourceID, req.PickedQuantity, at, performedBy); err != nil {
				return err
			}
		}

		item.PickedFromLocationID = strPtr(req.PickedFromLocationID)
		item.PickedQuantity = intPtr(req.PickedQuantity)
		item.PickStatus = status
		item.PickedAt = &at
		item.PickedBy = strPtr(performedBy)
		if err := repos.PickLists.RecordPick(ctx, item); err != nil {
			return err
		}

		if _, err := repos.PickLists.Transition(ctx, pl.ID, []string{repository.PickListPending}, repository.PickListInProgress, at); err != nil {
			return err
		}
		picked = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	pl, err := s.Get(ctx, picked.PickListID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("pick_list_id", pl.ID).
		Str("item_id", picked.ID).
		Int("picked", *picked.PickedQuantity).
		Int("suggested", picked.SuggestedQuantity).
		Str("pick_status", picked.PickStatus).
		Msg("item picked")
	s.publisher.PublishItemPicked(ctx, picked)
	return &PickResult{Item: picked, PickList: pl}, nil
}

// stage moves picked cases from the source record to the staging location,
// where they are held reserved until dispatch.
func (s *PickListService) stage(ctx context.Context, repos repository.Repositories, pl *repository.PickList, item *repository.PickListItem, sourceID string, cases int, at time.Time, performedBy string) error {
	source, err := repos.Stock.GetForUpdate(ctx, sourceID)
	if err != nil {
		return err
	}
	if err := repos.Stock.TakeAvailable(ctx, source.ID, cases); err != nil {
		return err
	}
	if err := repos.Stock.DeleteIfEmpty(ctx, source.ID); err != nil {
		return err
	}

	staging, err := repos.Locations.GetByID(ctx, pl.StagingLocationID)
	if err != nil {
		return err
	}
	staged, err := placeStock(ctx, repos, source, staging, cases, 0)
	if err != nil {
		return err
	}

	return repos.Movements.Create(ctx, &repository.StockMovement{
		MovementNumber: s.ids.MovementNumber(),
		Type:           repository.MovementPick,
		LWIN18:         item.LWIN18,
		QuantityCases:  cases,
		FromLocationID: strPtr(source.LocationID),
		ToLocationID:   strPtr(staging.ID),
		StockID:        strPtr(staged.ID),
		PickListID:     strPtr(pl.ID),
		LotNumber:      item.LotNumber,
		PerformedAt:    at,
		PerformedBy:    performedBy,
	})
}

// Complete closes a pick list once every item is picked or marked short.
// Completion happens at most once; a repeat call is a conflict.
func (s *PickListService) Complete(ctx context.Context, id string) (*repository.PickList, error) {
	if id == "" {
		return nil, errors.Invalid("pick_list_id", "this field is required")
	}
	at := s.now()

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		pl, err := repos.PickLists.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch pl.Status {
		case repository.PickListCompleted:
			return errors.Conflict("pick list already completed")
		case repository.PickListCancelled:
			return errors.Conflict("pick list is cancelled")
		}

		items, err := repos.PickLists.ListItems(ctx, id)
		if err != nil {
			return err
		}
		var unpicked []string
		for _, item := range items {
			if !item.IsPicked() {
				unpicked = append(unpicked, item.ID)
			}
		}
		if len(unpicked) > 0 {
			return errors.IncompletePick(unpicked)
		}

		changed, err := repos.PickLists.Transition(ctx, id,
			[]string{repository.PickListPending, repository.PickListInProgress}, repository.PickListCompleted, at)
		if err != nil {
			return err
		}
		if !changed {
			return errors.Conflict("pick list already completed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("pick_list_id", id).Msg("pick list completed")
	s.publisher.PublishPickList(ctx, messaging.EventPickListCompleted, pl, actor.ID(ctx))
	return pl, nil
}

// Cancel abandons an open pick list. Reservations of unpicked items are
// released and cases already staged become available again at the staging
// location.
func (s *PickListService) Cancel(ctx context.Context, id string) (*repository.PickList, error) {
	if id == "" {
		return nil, errors.Invalid("pick_list_id", "this field is required")
	}
	at := s.now()

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		pl, err := repos.PickLists.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !pl.IsOpen() {
			return errors.Conflict("pick list is " + pl.Status)
		}

		items, err := repos.PickLists.ListItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if !item.IsPicked() {
				if err := repos.Stock.Release(ctx, item.SuggestedStockID, item.SuggestedQuantity); err != nil {
					return err
				}
				continue
			}
			if item.PickedQuantity == nil || *item.PickedQuantity == 0 {
				continue
			}
			staged, err := repos.Stock.FindForMerge(ctx, pl.StagingLocationID, item.LWIN18, item.OwnerID, item.LotNumber)
			if err != nil {
				return err
			}
			if staged == nil {
				return errors.Conflict("staged stock for item " + item.ID + " is missing")
			}
			if err := repos.Stock.Release(ctx, staged.ID, *item.PickedQuantity); err != nil {
				return err
			}
		}

		changed, err := repos.PickLists.Transition(ctx, id,
			[]string{repository.PickListPending, repository.PickListInProgress}, repository.PickListCancelled, at)
		if err != nil {
			return err
		}
		if !changed {
			return errors.Conflict("pick list is no longer open")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("pick_list_id", id).Msg("pick list cancelled")
	s.publisher.PublishPickList(ctx, messaging.EventPickListCancelled, pl, actor.ID(ctx))
	return pl, nil
}

// Dispatch ships a completed pick list: one dispatch movement per picked
// item out of the staging location, consuming the matching case labels.
// A list is dispatched at most once.
func (s *PickListService) Dispatch(ctx context.Context, id string) (*DispatchResult, error) {
	if id == "" {
		return nil, errors.Invalid("pick_list_id", "this field is required")
	}
	performedBy := actor.ID(ctx)
	at := s.now()
	result := &DispatchResult{Movements: []*repository.StockMovement{}}

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		pl, err := repos.PickLists.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if pl.Status != repository.PickListCompleted {
			return errors.Conflict("only completed pick lists can be dispatched")
		}
		marked, err := repos.PickLists.MarkDispatched(ctx, id, at)
		if err != nil {
			return err
		}
		if !marked {
			return errors.Conflict("pick list already dispatched")
		}

		items, err := repos.PickLists.ListItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.PickedQuantity == nil || *item.PickedQuantity == 0 {
				continue
			}
			cases := *item.PickedQuantity

			staged, err := repos.Stock.FindForMerge(ctx, pl.StagingLocationID, item.LWIN18, item.OwnerID, item.LotNumber)
			if err != nil {
				return err
			}
			if staged == nil {
				return errors.Conflict("staged stock for item " + item.ID + " is missing")
			}
			if err := repos.Stock.TakeReserved(ctx, staged.ID, cases); err != nil {
				return err
			}
			if err := repos.Stock.DeleteIfEmpty(ctx, staged.ID); err != nil {
				return err
			}

			consumed, err := repos.Labels.Consume(ctx, item.LWIN18, item.LotNumber, cases, at)
			if err != nil {
				return err
			}
			result.ConsumedCases += consumed

			movement := &repository.StockMovement{
				MovementNumber: s.ids.MovementNumber(),
				Type:           repository.MovementDispatch,
				LWIN18:         item.LWIN18,
				QuantityCases:  cases,
				FromLocationID: strPtr(pl.StagingLocationID),
				StockID:        strPtr(staged.ID),
				PickListID:     strPtr(pl.ID),
				LotNumber:      item.LotNumber,
				PerformedAt:    at,
				PerformedBy:    performedBy,
			}
			if err := repos.Movements.Create(ctx, movement); err != nil {
				return err
			}
			result.Movements = append(result.Movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	pl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result.PickList = pl

	s.logger.Info().
		Str("pick_list_id", id).
		Int("movements", len(result.Movements)).
		Int("case_labels", result.ConsumedCases).
		Msg("pick list dispatched")
	for _, m := range result.Movements {
		s.publisher.PublishMovement(ctx, m)
	}
	s.publisher.PublishPickList(ctx, messaging.EventPickListDispatched, pl, performedBy)
	return result, nil
}

// Get returns a pick list with its lines and items
func (s *PickListService) Get(ctx context.Context, id string) (*repository.PickList, error) {
	if id == "" {
		return nil, errors.Invalid("pick_list_id", "this field is required")
	}
	repos := s.store.Repositories()

	pl, err := repos.PickLists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pl.Lines, err = repos.PickLists.ListLines(ctx, id); err != nil {
		return nil, err
	}
	if pl.Items, err = repos.PickLists.ListItems(ctx, id); err != nil {
		return nil, err
	}
	return pl, nil
}

// List returns pick list headers, newest first, optionally filtered by status
func (s *PickListService) List(ctx context.Context, status string) ([]*repository.PickList, error) {
	switch status {
	case "", repository.PickListPending, repository.PickListInProgress,
		repository.PickListCompleted, repository.PickListCancelled:
	default:
		return nil, errors.Invalid("status", "must be one of: pending in_progress completed cancelled")
	}
	return s.store.Repositories().PickLists.List(ctx, status)
}
