package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ReceiptRepository handles shipment receipt persistence
type ReceiptRepository struct {
	db sqlx.ExtContext
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db sqlx.ExtContext) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

// Create inserts a receipt
func (r *ReceiptRepository) Create(ctx context.Context, rec *ShipmentReceipt) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO shipment_receipts (
			id, shipment_id, lwin18, lot_number, expected_cases, received_cases,
			variance, location_id, received_at, received_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ShipmentID, rec.LWIN18, rec.LotNumber, rec.ExpectedCases, rec.ReceivedCases,
		rec.Variance, rec.LocationID, rec.ReceivedAt, rec.ReceivedBy,
	)
	return err
}

// ListByShipment returns the receipts recorded for a shipment
func (r *ReceiptRepository) ListByShipment(ctx context.Context, shipmentID string) ([]*ShipmentReceipt, error) {
	receipts := []*ShipmentReceipt{}
	query := `SELECT id, shipment_id, lwin18, lot_number, expected_cases, received_cases,
			variance, location_id, received_at, received_by
		FROM shipment_receipts WHERE shipment_id = $1 ORDER BY received_at, lwin18`
	if err := sqlx.SelectContext(ctx, r.db, &receipts, query, shipmentID); err != nil {
		return nil, err
	}
	return receipts, nil
}
