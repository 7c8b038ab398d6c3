package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pickListColumns = `p.id, p.pick_list_number, p.order_id, p.status, p.staging_location_id,
	p.created_by, p.created_at, p.started_at, p.completed_at, p.cancelled_at, p.dispatched_at,
	(SELECT COUNT(*) FROM pick_list_items i WHERE i.pick_list_id = p.id) AS total_items,
	(SELECT COUNT(*) FROM pick_list_items i WHERE i.pick_list_id = p.id AND i.pick_status <> 'not_picked') AS picked_items`

const pickItemColumns = `id, pick_list_id, line_id, lwin18, product_name, owner_id, lot_number,
	suggested_location_id, suggested_stock_id, suggested_quantity, picked_from_location_id,
	picked_quantity, pick_status, picked_at, picked_by`

const qualifiedPickItemColumns = `i.id, i.pick_list_id, i.line_id, i.lwin18, i.product_name,
	i.owner_id, i.lot_number, i.suggested_location_id, i.suggested_stock_id, i.suggested_quantity,
	i.picked_from_location_id, i.picked_quantity, i.pick_status, i.picked_at, i.picked_by`

// statusTimestamps names the column stamped when a list enters a status
var statusTimestamps = map[string]string{
	PickListInProgress: "started_at",
	PickListCompleted:  "completed_at",
	PickListCancelled:  "cancelled_at",
}

// PickListRepository handles pick list persistence
type PickListRepository struct {
	db sqlx.ExtContext
}

// NewPickListRepository creates a new pick list repository
func NewPickListRepository(db sqlx.ExtContext) *PickListRepository {
	return &PickListRepository{db: db}
}

// Create inserts the pick list header
func (r *PickListRepository) Create(ctx context.Context, pl *PickList) error {
	if pl.ID == "" {
		pl.ID = uuid.New().String()
	}

	query := `
		INSERT INTO pick_lists (id, pick_list_number, order_id, status, staging_location_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		pl.ID, pl.PickListNumber, pl.OrderID, pl.Status, pl.StagingLocationID, pl.CreatedBy,
	).Scan(&pl.CreatedAt)
	return database.Map(err)
}

// CreateLine inserts an allocation line
func (r *PickListRepository) CreateLine(ctx context.Context, line *PickListLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}

	query := `
		INSERT INTO pick_list_lines (id, pick_list_id, line_number, lwin18, requested_cases, allocated_cases)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		line.ID, line.PickListID, line.LineNumber, line.LWIN18, line.RequestedCases, line.AllocatedCases,
	)
	return err
}

// CreateItem inserts a pick instruction
func (r *PickListRepository) CreateItem(ctx context.Context, item *PickListItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.PickStatus == "" {
		item.PickStatus = PickNotPicked
	}

	query := `
		INSERT INTO pick_list_items (
			id, pick_list_id, line_id, lwin18, product_name, owner_id, lot_number,
			suggested_location_id, suggested_stock_id, suggested_quantity, pick_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.PickListID, item.LineID, item.LWIN18, item.ProductName, item.OwnerID,
		item.LotNumber, item.SuggestedLocationID, item.SuggestedStockID, item.SuggestedQuantity,
		item.PickStatus,
	)
	return err
}

func (r *PickListRepository) get(ctx context.Context, query string, args ...interface{}) (*PickList, error) {
	var pl PickList
	if err := sqlx.GetContext(ctx, r.db, &pl, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("pick list")
		}
		return nil, err
	}
	return &pl, nil
}

// GetByID gets a pick list header by ID
func (r *PickListRepository) GetByID(ctx context.Context, id string) (*PickList, error) {
	return r.get(ctx, `SELECT `+pickListColumns+` FROM pick_lists p WHERE p.id = $1`, id)
}

// GetForUpdate gets a pick list header and locks it
func (r *PickListRepository) GetForUpdate(ctx context.Context, id string) (*PickList, error) {
	return r.get(ctx, `SELECT `+pickListColumns+` FROM pick_lists p WHERE p.id = $1 FOR UPDATE OF p`, id)
}

// FindOpenByOrder returns the non-cancelled list for an order, or nil, nil
func (r *PickListRepository) FindOpenByOrder(ctx context.Context, orderID string) (*PickList, error) {
	pl, err := r.get(ctx, `SELECT `+pickListColumns+` FROM pick_lists p
		WHERE p.order_id = $1 AND p.status <> 'cancelled'
		LIMIT 1`, orderID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	return pl, err
}

// List returns pick lists newest first, optionally filtered by status
func (r *PickListRepository) List(ctx context.Context, status string) ([]*PickList, error) {
	lists := []*PickList{}
	query := `SELECT ` + pickListColumns + ` FROM pick_lists p
		WHERE ($1 = '' OR p.status = $1)
		ORDER BY p.created_at DESC, p.id`
	if err := sqlx.SelectContext(ctx, r.db, &lists, query, status); err != nil {
		return nil, err
	}
	return lists, nil
}

// ListLines returns a list's allocation lines in order
func (r *PickListRepository) ListLines(ctx context.Context, pickListID string) ([]*PickListLine, error) {
	lines := []*PickListLine{}
	query := `SELECT id, pick_list_id, line_number, lwin18, requested_cases, allocated_cases
		FROM pick_list_lines WHERE pick_list_id = $1 ORDER BY line_number`
	if err := sqlx.SelectContext(ctx, r.db, &lines, query, pickListID); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListItems returns a list's items in allocation order
func (r *PickListRepository) ListItems(ctx context.Context, pickListID string) ([]*PickListItem, error) {
	items := []*PickListItem{}
	query := `SELECT ` + qualifiedPickItemColumns + `
		FROM pick_list_items i
		JOIN pick_list_lines ln ON ln.id = i.line_id
		JOIN locations l ON l.id = i.suggested_location_id
		WHERE i.pick_list_id = $1
		ORDER BY ln.line_number, l.location_code, i.id`
	if err := sqlx.SelectContext(ctx, r.db, &items, query, pickListID); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItemForUpdate gets an item and locks it
func (r *PickListRepository) GetItemForUpdate(ctx context.Context, itemID string) (*PickListItem, error) {
	var item PickListItem
	query := `SELECT ` + pickItemColumns + ` FROM pick_list_items WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, r.db, &item, query, itemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("pick list item")
		}
		return nil, err
	}
	return &item, nil
}

// RecordPick stores the pick result. Only a not-yet-picked item can be recorded.
func (r *PickListRepository) RecordPick(ctx context.Context, item *PickListItem) error {
	query := `
		UPDATE pick_list_items
		SET picked_from_location_id = $2, picked_quantity = $3, pick_status = $4,
		    picked_at = $5, picked_by = $6
		WHERE id = $1 AND pick_status = 'not_picked'
	`
	result, err := r.db.ExecContext(ctx, query,
		item.ID, item.PickedFromLocationID, item.PickedQuantity, item.PickStatus,
		item.PickedAt, item.PickedBy,
	)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.Conflict("pick list item already picked")
	}
	return nil
}

// Transition moves a list to status `to` if it is currently in one of `from`,
// stamping the matching timestamp. Reports whether the row changed.
func (r *PickListRepository) Transition(ctx context.Context, id string, from []string, to string, at time.Time) (bool, error) {
	column, ok := statusTimestamps[to]
	if !ok {
		return false, fmt.Errorf("no transition into status %q", to)
	}

	query := `UPDATE pick_lists SET status = $2, ` + column + ` = $3
		WHERE id = $1 AND status = ANY($4)`
	result, err := r.db.ExecContext(ctx, query, id, to, at, pq.Array(from))
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// MarkDispatched stamps dispatched_at on a completed, not yet dispatched list
func (r *PickListRepository) MarkDispatched(ctx context.Context, id string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pick_lists SET dispatched_at = $2
		WHERE id = $1 AND status = 'completed' AND dispatched_at IS NULL`, id, at)
	if err != nil {
		return false, err
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
