package service

import (
	"context"
	"strconv"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/barcode"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/idgen"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/lwin"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/actor"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
)

// LedgerService handles stock records and the movement ledger
type LedgerService struct {
	store     repository.Store
	ids       *idgen.Generator
	publisher *events.WarehouseEventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	store repository.Store,
	ids *idgen.Generator,
	publisher *events.WarehouseEventPublisher,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		store:     store,
		ids:       ids,
		publisher: publisher,
		logger:    log,
		now:       utcNow,
	}
}

// ReceiveItem is one product line of an inbound shipment
type ReceiveItem struct {
	LWIN18        string `json:"lwin18" validate:"required"`
	ProductName   string `json:"product_name"`
	OwnerID       string `json:"owner_id" validate:"required"`
	QuantityCases int    `json:"quantity_cases" validate:"gt=0"`
	ExpectedCases *int   `json:"expected_cases,omitempty" validate:"omitempty,gte=0"`
	LotNumber     string `json:"lot_number,omitempty"`
}

// ReceiveRequest books an inbound shipment into a receiving location
type ReceiveRequest struct {
	ShipmentID string        `json:"shipment_id" validate:"required"`
	LocationID string        `json:"location_id" validate:"required"`
	Items      []ReceiveItem `json:"items" validate:"required,min=1,dive"`
}

// ReceivedLine is the outcome of one received item
type ReceivedLine struct {
	Stock      *repository.StockRecord     `json:"stock"`
	Movement   *repository.StockMovement   `json:"movement"`
	Receipt    *repository.ShipmentReceipt `json:"receipt"`
	CaseLabels []string                    `json:"case_labels"`
}

// ReceiveResult is the outcome of a receive
type ReceiveResult struct {
	ShipmentID string          `json:"shipment_id"`
	LocationID string          `json:"location_id"`
	Lines      []*ReceivedLine `json:"lines"`
}

// TransferRequest moves available cases of a stock record to another location
type TransferRequest struct {
	StockID       string `json:"stock_id" validate:"required"`
	QuantityCases int    `json:"quantity_cases" validate:"gt=0"`
	ToLocationID  string `json:"to_location_id" validate:"required"`
}

// PutawayRequest moves received stock into storage. A nil quantity moves
// everything available.
type PutawayRequest struct {
	StockID       string `json:"stock_id" validate:"required"`
	ToLocationID  string `json:"to_location_id" validate:"required"`
	QuantityCases *int   `json:"quantity_cases,omitempty" validate:"omitempty,gt=0"`
}

// MoveResult is the outcome of a transfer or putaway. Source is nil when the
// move emptied the source record.
type MoveResult struct {
	Movement    *repository.StockMovement `json:"movement"`
	Source      *repository.StockRecord   `json:"source,omitempty"`
	Destination *repository.StockRecord   `json:"destination"`
}

// CaseInfo is what a scanned case or product barcode resolves to
type CaseInfo struct {
	Barcode    string                    `json:"barcode"`
	LWIN18     string                    `json:"lwin18"`
	Dashed     string                    `json:"lwin18_dashed"`
	Identifier *lwin.Identifier          `json:"identifier"`
	Label      *repository.CaseLabel     `json:"label,omitempty"`
	Stock      []*repository.StockRecord `json:"stock"`
	// Primary is the record a putaway of this case should move: the one at a
	// receiving location when there is one, else the first with available cases.
	Primary *repository.StockRecord `json:"primary,omitempty"`
}

// Reconciliation compares the ledger with the stock records of one product
type Reconciliation struct {
	LWIN18         string `json:"lwin18"`
	LedgerCases    int    `json:"ledger_cases"`
	StockCases     int    `json:"stock_cases"`
	AvailableCases int    `json:"available_cases"`
	Movements      int    `json:"movements"`
	Balanced       bool   `json:"balanced"`
}

func (r *ReceiveRequest) validate() error {
	details := map[string]string{}
	if r.ShipmentID == "" {
		details["shipment_id"] = "this field is required"
	}
	if r.LocationID == "" {
		details["location_id"] = "this field is required"
	}
	if len(r.Items) == 0 {
		details["items"] = "must be at least 1"
	}
	for i := range r.Items {
		item := &r.Items[i]
		compact, err := lwin.Validate("lwin18", item.LWIN18)
		if err != nil {
			details[itemField(i, "lwin18")] = "must be an LWIN18"
		}
		item.LWIN18 = compact
		if item.OwnerID == "" {
			details[itemField(i, "owner_id")] = "this field is required"
		}
		if item.QuantityCases <= 0 {
			details[itemField(i, "quantity_cases")] = "must be greater than 0"
		}
		if item.ExpectedCases != nil && *item.ExpectedCases < 0 {
			details[itemField(i, "expected_cases")] = "must be at least 0"
		}
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}

// Receive books a shipment into a receiving location. For each item it
// creates a stock record, a receive movement, a shipment receipt carrying
// the variance against the expected quantity, and one case label per case.
// A short or over delivery is recorded, never rejected.
func (s *LedgerService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	performedBy := actor.ID(ctx)
	at := s.now()
	result := &ReceiveResult{ShipmentID: req.ShipmentID, LocationID: req.LocationID}

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		loc, err := repos.Locations.GetByID(ctx, req.LocationID)
		if err != nil {
			return err
		}
		if loc.Type != repository.LocationReceiving {
			return errors.Invalid("location_id", "must be a receiving location")
		}

		for _, item := range req.Items {
			lot := item.LotNumber
			if lot == "" {
				lot = s.ids.LotNumber()
			}

			stock := &repository.StockRecord{
				LWIN18:         item.LWIN18,
				ProductName:    item.ProductName,
				OwnerID:        item.OwnerID,
				LocationID:     loc.ID,
				LocationCode:   loc.Code,
				QuantityCases:  item.QuantityCases,
				AvailableCases: item.QuantityCases,
				LotNumber:      lot,
			}
			if err := repos.Stock.Create(ctx, stock); err != nil {
				return err
			}

			movement := &repository.StockMovement{
				MovementNumber: s.ids.MovementNumber(),
				Type:           repository.MovementReceive,
				LWIN18:         item.LWIN18,
				QuantityCases:  item.QuantityCases,
				ToLocationID:   strPtr(loc.ID),
				StockID:        strPtr(stock.ID),
				ShipmentID:     strPtr(req.ShipmentID),
				LotNumber:      lot,
				PerformedAt:    at,
				PerformedBy:    performedBy,
			}
			if err := repos.Movements.Create(ctx, movement); err != nil {
				return err
			}

			receipt := &repository.ShipmentReceipt{
				ShipmentID:    req.ShipmentID,
				LWIN18:        item.LWIN18,
				LotNumber:     lot,
				ExpectedCases: item.ExpectedCases,
				ReceivedCases: item.QuantityCases,
				LocationID:    loc.ID,
				ReceivedAt:    at,
				ReceivedBy:    performedBy,
			}
			if item.ExpectedCases != nil {
				receipt.Variance = intPtr(item.QuantityCases - *item.ExpectedCases)
			}
			if err := repos.Receipts.Create(ctx, receipt); err != nil {
				return err
			}

			codes, err := s.mintCaseLabels(ctx, repos, req.ShipmentID, item.LWIN18, lot, item.QuantityCases)
			if err != nil {
				return err
			}

			result.Lines = append(result.Lines, &ReceivedLine{
				Stock:      stock,
				Movement:   movement,
				Receipt:    receipt,
				CaseLabels: codes,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, line := range result.Lines {
		logEvent := s.logger.Info().
			Str("shipment_id", req.ShipmentID).
			Str("lwin18", line.Stock.LWIN18).
			Int("cases", line.Stock.QuantityCases).
			Str("lot", line.Stock.LotNumber)
		if line.Receipt.Variance != nil {
			logEvent = logEvent.Int("variance", *line.Receipt.Variance)
		}
		logEvent.Msg("stock received")
		s.publisher.PublishMovement(ctx, line.Movement)
	}
	return result, nil
}

// mintCaseLabels creates count case labels numbered on from the product's
// highest existing sequence.
func (s *LedgerService) mintCaseLabels(ctx context.Context, repos repository.Repositories, shipmentID, lwin18, lot string, count int) ([]string, error) {
	first, err := repos.Labels.NextSequence(ctx, lwin18)
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, count)
	for seq := first; seq < first+count; seq++ {
		code, err := barcode.Case(lwin18, seq)
		if err != nil {
			return nil, err
		}
		label := &repository.CaseLabel{
			Barcode:    code,
			LWIN18:     lwin18,
			LotNumber:  lot,
			ShipmentID: shipmentID,
			Sequence:   seq,
		}
		if err := repos.Labels.Create(ctx, label); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// Transfer moves cases between locations. The quantity is checked against
// the record's available cases under a row lock; on failure nothing is written.
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (*MoveResult, error) {
	if req.StockID == "" {
		return nil, errors.Invalid("stock_id", "this field is required")
	}
	if req.ToLocationID == "" {
		return nil, errors.Invalid("to_location_id", "this field is required")
	}
	if req.QuantityCases <= 0 {
		return nil, errors.Invalid("quantity_cases", "must be greater than 0")
	}
	qty := req.QuantityCases
	return s.move(ctx, repository.MovementTransfer, req.StockID, req.ToLocationID, &qty)
}

// Putaway moves received stock into a rack or floor location
func (s *LedgerService) Putaway(ctx context.Context, req PutawayRequest) (*MoveResult, error) {
	if req.StockID == "" {
		return nil, errors.Invalid("stock_id", "this field is required")
	}
	if req.ToLocationID == "" {
		return nil, errors.Invalid("to_location_id", "this field is required")
	}
	if req.QuantityCases != nil && *req.QuantityCases <= 0 {
		return nil, errors.Invalid("quantity_cases", "must be greater than 0")
	}
	return s.move(ctx, repository.MovementPutaway, req.StockID, req.ToLocationID, req.QuantityCases)
}

func (s *LedgerService) move(ctx context.Context, movementType, stockID, toLocationID string, quantity *int) (*MoveResult, error) {
	result := &MoveResult{}
	performedBy := actor.ID(ctx)

	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		source, err := repos.Stock.GetForUpdate(ctx, stockID)
		if err != nil {
			return err
		}
		if source.LocationID == toLocationID {
			return errors.Invalid("to_location_id", "must differ from the current location")
		}

		dest, err := repos.Locations.GetByID(ctx, toLocationID)
		if err != nil {
			return err
		}
		if movementType == repository.MovementPutaway && !repository.IsStorageType(dest.Type) {
			return errors.Invalid("to_location_id", "must be a rack or floor location")
		}

		qty := source.AvailableCases
		if quantity != nil {
			qty = *quantity
		}
		if qty <= 0 || qty > source.AvailableCases {
			requested := qty
			if requested <= 0 {
				requested = source.QuantityCases
			}
			return errors.InsufficientStock(requested, source.AvailableCases)
		}

		if err := repos.Stock.TakeAvailable(ctx, source.ID, qty); err != nil {
			return err
		}
		if err := repos.Stock.DeleteIfEmpty(ctx, source.ID); err != nil {
			return err
		}

		destRecord, err := placeStock(ctx, repos, source, dest, qty, qty)
		if err != nil {
			return err
		}

		movement := &repository.StockMovement{
			MovementNumber: s.ids.MovementNumber(),
			Type:           movementType,
			LWIN18:         source.LWIN18,
			QuantityCases:  qty,
			FromLocationID: strPtr(source.LocationID),
			ToLocationID:   strPtr(dest.ID),
			StockID:        strPtr(destRecord.ID),
			LotNumber:      source.LotNumber,
			PerformedAt:    s.now(),
			PerformedBy:    performedBy,
		}
		if err := repos.Movements.Create(ctx, movement); err != nil {
			return err
		}

		result.Movement = movement
		result.Destination = destRecord
		if qty < source.QuantityCases {
			if result.Source, err = repos.Stock.GetByID(ctx, source.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("movement_type", movementType).
		Str("stock_id", stockID).
		Str("to_location_id", toLocationID).
		Int("cases", result.Movement.QuantityCases).
		Str("performed_by", performedBy).
		Msg("stock moved")
	s.publisher.PublishMovement(ctx, result.Movement)
	return result, nil
}

// placeStock merges cases into the destination record of the same product,
// owner and lot, creating it if there is none, and returns it re-read.
func placeStock(ctx context.Context, repos repository.Repositories, source *repository.StockRecord, dest *repository.Location, quantity, available int) (*repository.StockRecord, error) {
	existing, err := repos.Stock.FindForMerge(ctx, dest.ID, source.LWIN18, source.OwnerID, source.LotNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := repos.Stock.Add(ctx, existing.ID, quantity, available); err != nil {
			return nil, err
		}
		return repos.Stock.GetByID(ctx, existing.ID)
	}

	record := &repository.StockRecord{
		LWIN18:         source.LWIN18,
		ProductName:    source.ProductName,
		OwnerID:        source.OwnerID,
		LocationID:     dest.ID,
		LocationCode:   dest.Code,
		QuantityCases:  quantity,
		AvailableCases: available,
		LotNumber:      source.LotNumber,
	}
	if err := repos.Stock.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ScanCase resolves a scanned case label, or a bare LWIN18, to the product
// and the stock holding it. The barcode shape is checked before any lookup.
func (s *LedgerService) ScanCase(ctx context.Context, scanned string) (*CaseInfo, error) {
	repos := s.store.Repositories()
	info := &CaseInfo{Barcode: scanned}

	switch barcode.Detect(scanned) {
	case barcode.KindCase:
		ref, err := barcode.ParseCase(scanned)
		if err != nil {
			return nil, err
		}
		code, err := barcode.Case(ref.LWIN18, ref.Sequence)
		if err != nil {
			return nil, err
		}
		label, err := repos.Labels.GetByBarcode(ctx, code)
		if err != nil {
			return nil, err
		}
		info.Label = label
		info.LWIN18 = ref.LWIN18
	case barcode.KindLWIN:
		compact, _ := lwin.Compact(scanned)
		info.LWIN18 = compact
	default:
		return nil, errors.Invalid("barcode", "must be a case label or an LWIN18")
	}

	info.Dashed = lwin.Dashed(info.LWIN18)
	info.Identifier = lwin.Parse(info.LWIN18)

	records, err := repos.Stock.ListByLWIN(ctx, info.LWIN18)
	if err != nil {
		return nil, err
	}

	info.Stock = []*repository.StockRecord{}
	for _, rec := range records {
		if info.Label != nil && rec.LotNumber != info.Label.LotNumber {
			continue
		}
		info.Stock = append(info.Stock, rec)
	}
	if len(info.Stock) == 0 && info.Label == nil {
		return nil, errors.NotFound("stock for " + info.Dashed)
	}

	info.Primary = s.primaryRecord(ctx, repos, info.Stock)
	return info, nil
}

func (s *LedgerService) primaryRecord(ctx context.Context, repos repository.Repositories, records []*repository.StockRecord) *repository.StockRecord {
	var fallback *repository.StockRecord
	for _, rec := range records {
		if rec.AvailableCases == 0 {
			continue
		}
		loc, err := repos.Locations.GetByID(ctx, rec.LocationID)
		if err == nil && loc.Type == repository.LocationReceiving {
			return rec
		}
		if fallback == nil {
			fallback = rec
		}
	}
	return fallback
}

// ListMovements returns a product's ledger in order
func (s *LedgerService) ListMovements(ctx context.Context, lwin18 string) ([]*repository.StockMovement, error) {
	compact, err := lwin.Validate("lwin18", lwin18)
	if err != nil {
		return nil, err
	}
	return s.store.Repositories().Movements.ListByLWIN(ctx, compact)
}

// Reconcile checks that the signed ledger total of a product equals the
// cases held across its stock records.
func (s *LedgerService) Reconcile(ctx context.Context, lwin18 string) (*Reconciliation, error) {
	compact, err := lwin.Validate("lwin18", lwin18)
	if err != nil {
		return nil, err
	}

	repos := s.store.Repositories()
	movements, err := repos.Movements.ListByLWIN(ctx, compact)
	if err != nil {
		return nil, err
	}
	records, err := repos.Stock.ListByLWIN(ctx, compact)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{LWIN18: compact, Movements: len(movements)}
	for _, m := range movements {
		rec.LedgerCases += m.SignedQuantity()
	}
	for _, r := range records {
		rec.StockCases += r.QuantityCases
		rec.AvailableCases += r.AvailableCases
	}
	rec.Balanced = rec.LedgerCases == rec.StockCases

	if !rec.Balanced {
		s.logger.Warn().
			Str("lwin18", compact).
			Int("ledger_cases", rec.LedgerCases).
			Int("stock_cases", rec.StockCases).
			Msg("ledger does not reconcile with stock")
	}
	return rec, nil
}

// Receipts returns the receipts booked against a shipment
func (s *LedgerService) Receipts(ctx context.Context, shipmentID string) ([]*repository.ShipmentReceipt, error) {
	if shipmentID == "" {
		return nil, errors.Invalid("shipment_id", "this field is required")
	}
	return s.store.Repositories().Receipts.ListByShipment(ctx, shipmentID)
}
