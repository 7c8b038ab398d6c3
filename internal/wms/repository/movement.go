package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const movementColumns = `seq, id, movement_number, movement_type, lwin18, quantity_cases,
	from_location_id, to_location_id, stock_id, pick_list_id, shipment_id, lot_number,
	performed_at, performed_by`

// MovementRepository appends to and reads the stock ledger. There is no
// update or delete.
type MovementRepository struct {
	db sqlx.ExtContext
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db sqlx.ExtContext) *MovementRepository {
	return &MovementRepository{db: db}
}

// Create appends a movement
func (r *MovementRepository) Create(ctx context.Context, m *StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (
			id, movement_number, movement_type, lwin18, quantity_cases,
			from_location_id, to_location_id, stock_id, pick_list_id, shipment_id,
			lot_number, performed_at, performed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq
	`
	return r.db.QueryRowxContext(ctx, query,
		m.ID, m.MovementNumber, m.Type, m.LWIN18, m.QuantityCases,
		m.FromLocationID, m.ToLocationID, m.StockID, m.PickListID, m.ShipmentID,
		m.LotNumber, m.PerformedAt, m.PerformedBy,
	).Scan(&m.Seq)
}

// ListByLWIN returns a product's movements in ledger order
func (r *MovementRepository) ListByLWIN(ctx context.Context, lwin18 string) ([]*StockMovement, error) {
	movements := []*StockMovement{}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE lwin18 = $1
		ORDER BY performed_at, seq`
	if err := sqlx.SelectContext(ctx, r.db, &movements, query, lwin18); err != nil {
		return nil, err
	}
	return movements, nil
}

// ListByPickList returns the movements written for a pick list in ledger order
func (r *MovementRepository) ListByPickList(ctx context.Context, pickListID string) ([]*StockMovement, error) {
	movements := []*StockMovement{}
	query := `SELECT ` + movementColumns + ` FROM stock_movements
		WHERE pick_list_id = $1
		ORDER BY performed_at, seq`
	if err := sqlx.SelectContext(ctx, r.db, &movements, query, pickListID); err != nil {
		return nil, err
	}
	return movements, nil
}
