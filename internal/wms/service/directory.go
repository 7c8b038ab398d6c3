package service

import (
	"context"
	"io"

	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/barcode"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/cache"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/events"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/labels"
	"github.com/craftandculture/Craft-Culture-sub006/internal/wms/repository"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
)

// DirectoryService handles the location directory
type DirectoryService struct {
	store     repository.Store
	cache     cache.LocationCache
	publisher *events.WarehouseEventPublisher
	logger    *logger.Logger
}

// NewDirectoryService creates a new directory service. cache may be nil.
func NewDirectoryService(
	store repository.Store,
	locationCache cache.LocationCache,
	publisher *events.WarehouseEventPublisher,
	log *logger.Logger,
) *DirectoryService {
	if locationCache == nil {
		locationCache = cache.NewNoopLocationCache()
	}
	return &DirectoryService{
		store:     store,
		cache:     locationCache,
		publisher: publisher,
		logger:    log,
	}
}

// CreateLocationInput describes a new location
type CreateLocationInput struct {
	Aisle            string `json:"aisle" validate:"required"`
	Bay              string `json:"bay" validate:"required"`
	Level            string `json:"level" validate:"required"`
	LocationType     string `json:"location_type" validate:"required,oneof=receiving rack floor shipping"`
	ForkliftRequired bool   `json:"forklift_required"`
	CapacityCases    *int   `json:"capacity_cases,omitempty" validate:"omitempty,gt=0"`
}

// LocationContents is a location and the stock it currently holds
type LocationContents struct {
	Location   *repository.Location      `json:"location"`
	Stock      []*repository.StockRecord `json:"stock"`
	TotalCases int                       `json:"total_cases"`
}

// ImportResult reports a bulk location import
type ImportResult struct {
	Created []*repository.Location `json:"created"`
	Errors  []labels.RowError      `json:"errors"`
}

func validLocationType(t string) bool {
	for _, known := range repository.LocationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CreateLocation registers a location. Its code and barcode are derived from
// the upper-cased coordinates.
func (s *DirectoryService) CreateLocation(ctx context.Context, in CreateLocationInput) (*repository.Location, error) {
	coords := barcode.Coordinates{Aisle: in.Aisle, Bay: in.Bay, Level: in.Level}.Normalize()
	if err := coords.Validate(); err != nil {
		return nil, err
	}
	if !validLocationType(in.LocationType) {
		return nil, errors.Invalid("location_type", "must be one of: receiving rack floor shipping")
	}
	if in.CapacityCases != nil && *in.CapacityCases < 1 {
		return nil, errors.Invalid("capacity_cases", "must be greater than 0")
	}

	loc := &repository.Location{
		Code:             coords.Code(),
		Barcode:          coords.Barcode(),
		Aisle:            coords.Aisle,
		Bay:              coords.Bay,
		Level:            coords.Level,
		Type:             in.LocationType,
		ForkliftRequired: in.ForkliftRequired,
		CapacityCases:    in.CapacityCases,
	}
	if err := s.store.Repositories().Locations.Create(ctx, loc); err != nil {
		return nil, err
	}

	s.logger.Info().Str("location_id", loc.ID).Str("location_code", loc.Code).Msg("location created")
	s.publisher.PublishLocationCreated(ctx, loc)
	return loc, nil
}

// GetLocation gets a location by ID
func (s *DirectoryService) GetLocation(ctx context.Context, id string) (*repository.Location, error) {
	if id == "" {
		return nil, errors.Invalid("location_id", "this field is required")
	}
	return s.store.Repositories().Locations.GetByID(ctx, id)
}

// GetLocationByBarcode resolves a scanned location barcode. The shape is
// checked before any lookup; hits are served from the cache.
func (s *DirectoryService) GetLocationByBarcode(ctx context.Context, scanned string) (*repository.Location, error) {
	coords, err := barcode.ParseLocation(scanned)
	if err != nil {
		return nil, err
	}
	code := coords.Normalize().Barcode()

	if loc, hit, err := s.cache.Get(ctx, code); err != nil {
		s.logger.Warn().Err(err).Str("barcode", code).Msg("location cache read failed")
	} else if hit {
		return loc, nil
	}

	loc, err := s.store.Repositories().Locations.GetByBarcode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, loc); err != nil {
		s.logger.Warn().Err(err).Str("barcode", code).Msg("location cache write failed")
	}
	return loc, nil
}

// ScanLocation resolves a location barcode and lists what is stored there
func (s *DirectoryService) ScanLocation(ctx context.Context, scanned string) (*LocationContents, error) {
	loc, err := s.GetLocationByBarcode(ctx, scanned)
	if err != nil {
		return nil, err
	}

	stock, err := s.store.Repositories().Stock.ListByLocation(ctx, loc.ID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, rec := range stock {
		total += rec.QuantityCases
	}
	return &LocationContents{Location: loc, Stock: stock, TotalCases: total}, nil
}

// ListLocations lists locations, optionally of one type
func (s *DirectoryService) ListLocations(ctx context.Context, locationType string) ([]*repository.Location, error) {
	if locationType != "" && !validLocationType(locationType) {
		return nil, errors.Invalid("type", "must be one of: receiving rack floor shipping")
	}
	return s.store.Repositories().Locations.List(ctx, locationType)
}

// ImportLocations creates the locations listed in an XLSX workbook. Rows that
// fail to parse or to create are reported; the rest are created.
func (s *DirectoryService) ImportLocations(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, rowErrors, err := labels.ReadLocations(r)
	if err != nil {
		return nil, errors.BadRequest(err.Error())
	}

	result := &ImportResult{Created: []*repository.Location{}, Errors: rowErrors}
	for _, row := range rows {
		loc, err := s.CreateLocation(ctx, CreateLocationInput{
			Aisle:            row.Aisle,
			Bay:              row.Bay,
			Level:            row.Level,
			LocationType:     row.LocationType,
			ForkliftRequired: row.ForkliftRequired,
			CapacityCases:    row.CapacityCases,
		})
		if err != nil {
			result.Errors = append(result.Errors, labels.RowError{Row: row.Row, Message: errorMessage(err)})
			continue
		}
		result.Created = append(result.Created, loc)
	}

	s.logger.Info().
		Int("created", len(result.Created)).
		Int("rejected", len(result.Errors)).
		Msg("location import finished")
	return result, nil
}

// LabelSheet writes the label workbook for every location to w
func (s *DirectoryService) LabelSheet(ctx context.Context, w io.Writer) error {
	locs, err := s.store.Repositories().Locations.List(ctx, "")
	if err != nil {
		return err
	}
	return labels.WriteSheet(w, locs)
}

// Totems returns a bay totem for every aisle and bay
func (s *DirectoryService) Totems(ctx context.Context) ([]labels.BayTotem, error) {
	locs, err := s.store.Repositories().Locations.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return labels.Totems(locs), nil
}

func errorMessage(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
