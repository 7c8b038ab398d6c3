package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/jmoiron/sqlx"
)

// CaseLabelRepository handles case label persistence
type CaseLabelRepository struct {
	db sqlx.ExtContext
}

// NewCaseLabelRepository creates a new case label repository
func NewCaseLabelRepository(db sqlx.ExtContext) *CaseLabelRepository {
	return &CaseLabelRepository{db: db}
}

// NextSequence returns the next case sequence for a product. It takes a
// transaction-scoped advisory lock on the product so concurrent receipts of
// the same LWIN18 number their cases one after the other.
func (r *CaseLabelRepository) NextSequence(ctx context.Context, lwin18 string) (int, error) {
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "case_label:"+lwin18); err != nil {
		return 0, err
	}

	var next int
	query := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM case_labels WHERE lwin18 = $1`
	if err := r.db.QueryRowxContext(ctx, query, lwin18).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// Create inserts a case label
func (r *CaseLabelRepository) Create(ctx context.Context, label *CaseLabel) error {
	query := `
		INSERT INTO case_labels (barcode, lwin18, lot_number, shipment_id, sequence)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		label.Barcode, label.LWIN18, label.LotNumber, label.ShipmentID, label.Sequence,
	).Scan(&label.CreatedAt)
	return database.Map(err)
}

// GetByBarcode gets a case label by barcode
func (r *CaseLabelRepository) GetByBarcode(ctx context.Context, barcode string) (*CaseLabel, error) {
	var label CaseLabel
	query := `SELECT barcode, lwin18, lot_number, shipment_id, sequence, created_at, consumed_at
		FROM case_labels WHERE barcode = $1`
	if err := sqlx.GetContext(ctx, r.db, &label, query, barcode); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("case")
		}
		return nil, err
	}
	return &label, nil
}

// Consume marks up to count unconsumed labels of a lot as dispatched, lowest
// sequence first, and returns how many were marked.
func (r *CaseLabelRepository) Consume(ctx context.Context, lwin18, lot string, count int, at time.Time) (int, error) {
	query := `
		UPDATE case_labels SET consumed_at = $4
		WHERE barcode IN (
			SELECT barcode FROM case_labels
			WHERE lwin18 = $1 AND lot_number = $2 AND consumed_at IS NULL
			ORDER BY sequence
			LIMIT $3
			FOR UPDATE
		)
	`
	result, err := r.db.ExecContext(ctx, query, lwin18, lot, count, at)
	if err != nil {
		return 0, err
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}
