package repository

import (
	"context"
	"database/sql"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const stockColumns = `s.id, s.lwin18, s.product_name, s.owner_id, s.location_id, l.location_code,
	s.quantity_cases, s.available_cases, s.lot_number, s.created_at, s.updated_at`

const stockFrom = ` FROM stock_records s JOIN locations l ON l.id = s.location_id `

// StockRepository handles stock record persistence. Quantity changes use
// guarded updates so concurrent transfers and picks can never drive a
// record negative.
type StockRepository struct {
	db sqlx.ExtContext
}

// NewStockRepository creates a new stock repository
func NewStockRepository(db sqlx.ExtContext) *StockRepository {
	return &StockRepository{db: db}
}

// Create inserts a stock record
func (r *StockRepository) Create(ctx context.Context, s *StockRecord) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_records (
			id, lwin18, product_name, owner_id, location_id,
			quantity_cases, available_cases, lot_number
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	return r.db.QueryRowxContext(ctx, query,
		s.ID, s.LWIN18, s.ProductName, s.OwnerID, s.LocationID,
		s.QuantityCases, s.AvailableCases, s.LotNumber,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (r *StockRepository) get(ctx context.Context, query string, args ...interface{}) (*StockRecord, error) {
	var s StockRecord
	if err := sqlx.GetContext(ctx, r.db, &s, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock record")
		}
		return nil, err
	}
	return &s, nil
}

// GetByID gets a stock record by ID
func (r *StockRepository) GetByID(ctx context.Context, id string) (*StockRecord, error) {
	return r.get(ctx, `SELECT `+stockColumns+stockFrom+`WHERE s.id = $1`, id)
}

// GetForUpdate gets a stock record and locks its row until the transaction ends
func (r *StockRepository) GetForUpdate(ctx context.Context, id string) (*StockRecord, error) {
	return r.get(ctx, `SELECT `+stockColumns+stockFrom+`WHERE s.id = $1 FOR UPDATE OF s`, id)
}

// FindForMerge locks the record a move into locationID would merge with.
// Returns nil, nil when there is none.
func (r *StockRepository) FindForMerge(ctx context.Context, locationID, lwin18, ownerID, lot string) (*StockRecord, error) {
	s, err := r.get(ctx, `SELECT `+stockColumns+stockFrom+`
		WHERE s.location_id = $1 AND s.lwin18 = $2 AND s.owner_id = $3 AND s.lot_number = $4
		ORDER BY s.created_at, s.id
		LIMIT 1
		FOR UPDATE OF s`, locationID, lwin18, ownerID, lot)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (r *StockRepository) list(ctx context.Context, query string, args ...interface{}) ([]*StockRecord, error) {
	records := []*StockRecord{}
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, err
	}
	return records, nil
}

// ListByLocation returns the records held at a location
func (r *StockRepository) ListByLocation(ctx context.Context, locationID string) ([]*StockRecord, error) {
	return r.list(ctx, `SELECT `+stockColumns+stockFrom+`
		WHERE s.location_id = $1
		ORDER BY s.lwin18, s.lot_number, s.id`, locationID)
}

// ListByLWIN returns every record of a product across locations
func (r *StockRepository) ListByLWIN(ctx context.Context, lwin18 string) ([]*StockRecord, error) {
	return r.list(ctx, `SELECT `+stockColumns+stockFrom+`
		WHERE s.lwin18 = $1
		ORDER BY l.location_code, s.id`, lwin18)
}

// AllocationCandidates locks and returns the pickable records for a product:
// storage locations only, smallest available first, then location code, then id.
func (r *StockRepository) AllocationCandidates(ctx context.Context, lwin18 string) ([]*StockRecord, error) {
	return r.list(ctx, `SELECT `+stockColumns+stockFrom+`
		WHERE s.lwin18 = $1
		  AND s.available_cases > 0
		  AND l.location_type IN ('rack', 'floor')
		ORDER BY s.available_cases ASC, l.location_code ASC, s.id ASC
		FOR UPDATE OF s`, lwin18)
}

// exec runs a guarded update and turns "no row matched" into err.
func (r *StockRepository) exec(ctx context.Context, notMatched func() error, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return notMatched()
	}
	return nil
}

func (r *StockRepository) insufficient(ctx context.Context, id string, requested int) func() error {
	return func() error {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return errors.InsufficientStock(requested, s.AvailableCases)
	}
}

// Reserve moves cases from available to reserved
func (r *StockRepository) Reserve(ctx context.Context, id string, cases int) error {
	return r.exec(ctx, r.insufficient(ctx, id, cases), `
		UPDATE stock_records
		SET available_cases = available_cases - $2, updated_at = NOW()
		WHERE id = $1 AND available_cases >= $2`, id, cases)
}

// Release returns reserved cases to available
func (r *StockRepository) Release(ctx context.Context, id string, cases int) error {
	return r.exec(ctx, func() error { return errors.Conflict("cannot release more cases than are reserved") }, `
		UPDATE stock_records
		SET available_cases = available_cases + $2, updated_at = NOW()
		WHERE id = $1 AND available_cases + $2 <= quantity_cases`, id, cases)
}

// TakeAvailable removes available cases from the record
func (r *StockRepository) TakeAvailable(ctx context.Context, id string, cases int) error {
	return r.exec(ctx, r.insufficient(ctx, id, cases), `
		UPDATE stock_records
		SET quantity_cases = quantity_cases - $2,
		    available_cases = available_cases - $2,
		    updated_at = NOW()
		WHERE id = $1 AND available_cases >= $2`, id, cases)
}

// TakeReserved removes reserved cases from the record
func (r *StockRepository) TakeReserved(ctx context.Context, id string, cases int) error {
	return r.exec(ctx, func() error { return errors.Conflict("not enough reserved cases on stock record") }, `
		UPDATE stock_records
		SET quantity_cases = quantity_cases - $2, updated_at = NOW()
		WHERE id = $1 AND quantity_cases - $2 >= available_cases`, id, cases)
}

// Add merges cases into an existing record
func (r *StockRepository) Add(ctx context.Context, id string, quantity, available int) error {
	return r.exec(ctx, func() error { return errors.NotFound("stock record") }, `
		UPDATE stock_records
		SET quantity_cases = quantity_cases + $2,
		    available_cases = available_cases + $3,
		    updated_at = NOW()
		WHERE id = $1`, id, quantity, available)
}

// DeleteIfEmpty removes the record once it holds no cases
func (r *StockRepository) DeleteIfEmpty(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stock_records WHERE id = $1 AND quantity_cases = 0`, id)
	return err
}
