package repository

import (
	"context"
	"database/sql"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const locationColumns = `id, location_code, barcode, aisle, bay, level, location_type,
	forklift_required, capacity_cases, created_at`

// LocationRepository handles location persistence
type LocationRepository struct {
	db sqlx.ExtContext
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db sqlx.ExtContext) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create inserts a location. A duplicate code or barcode is a conflict.
func (r *LocationRepository) Create(ctx context.Context, loc *Location) error {
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	query := `
		INSERT INTO locations (
			id, location_code, barcode, aisle, bay, level, location_type,
			forklift_required, capacity_cases
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		loc.ID, loc.Code, loc.Barcode, loc.Aisle, loc.Bay, loc.Level, loc.Type,
		loc.ForkliftRequired, loc.CapacityCases,
	).Scan(&loc.CreatedAt)
	return database.Map(err)
}

// GetByID gets a location by ID
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*Location, error) {
	var loc Location
	query := `SELECT ` + locationColumns + ` FROM locations WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.db, &loc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("location")
		}
		return nil, err
	}
	return &loc, nil
}

// GetByBarcode gets a location by its LOC- barcode
func (r *LocationRepository) GetByBarcode(ctx context.Context, barcode string) (*Location, error) {
	var loc Location
	query := `SELECT ` + locationColumns + ` FROM locations WHERE barcode = $1`
	if err := sqlx.GetContext(ctx, r.db, &loc, query, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("location")
		}
		return nil, err
	}
	return &loc, nil
}

// List returns locations ordered by code, optionally filtered by type
func (r *LocationRepository) List(ctx context.Context, locationType string) ([]*Location, error) {
	locations := []*Location{}
	query := `SELECT ` + locationColumns + ` FROM locations
		WHERE ($1 = '' OR location_type = $1)
		ORDER BY location_code`
	if err := sqlx.SelectContext(ctx, r.db, &locations, query, locationType); err != nil {
		return nil, err
	}
	return locations, nil
}

// FirstByType returns the location of the given type with the lowest code
func (r *LocationRepository) FirstByType(ctx context.Context, locationType string) (*Location, error) {
	var loc Location
	query := `SELECT ` + locationColumns + ` FROM locations
		WHERE location_type = $1
		ORDER BY location_code
		LIMIT 1`
	if err := sqlx.GetContext(ctx, r.db, &loc, query, locationType); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound(locationType + " location")
		}
		return nil, err
	}
	return &loc, nil
}
