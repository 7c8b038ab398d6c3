package repository

import (
	"context"
	_ "embed"
	"time"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/jmoiron/sqlx"
)

// Schema is the DDL for every table the repositories use.
//
//go:embed schema.sql
var Schema string

// LocationStore persists the location directory.
type LocationStore interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id string) (*Location, error)
	GetByBarcode(ctx context.Context, barcode string) (*Location, error)
	List(ctx context.Context, locationType string) ([]*Location, error)
	FirstByType(ctx context.Context, locationType string) (*Location, error)
}

// StockStore persists stock records. Every mutating method must run inside
// a transaction that also writes the matching StockMovement.
type StockStore interface {
	Create(ctx context.Context, s *StockRecord) error
	GetByID(ctx context.Context, id string) (*StockRecord, error)
	GetForUpdate(ctx context.Context, id string) (*StockRecord, error)
	FindForMerge(ctx context.Context, locationID, lwin18, ownerID, lot string) (*StockRecord, error)
	ListByLocation(ctx context.Context, locationID string) ([]*StockRecord, error)
	ListByLWIN(ctx context.Context, lwin18 string) ([]*StockRecord, error)
	AllocationCandidates(ctx context.Context, lwin18 string) ([]*StockRecord, error)
	Reserve(ctx context.Context, id string, cases int) error
	Release(ctx context.Context, id string, cases int) error
	TakeAvailable(ctx context.Context, id string, cases int) error
	TakeReserved(ctx context.Context, id string, cases int) error
	Add(ctx context.Context, id string, quantity, available int) error
	DeleteIfEmpty(ctx context.Context, id string) error
}

// MovementStore persists the append-only ledger.
type MovementStore interface {
	Create(ctx context.Context, m *StockMovement) error
	ListByLWIN(ctx context.Context, lwin18 string) ([]*StockMovement, error)
	ListByPickList(ctx context.Context, pickListID string) ([]*StockMovement, error)
}

// PickListStore persists pick lists, their lines and items.
type PickListStore interface {
	Create(ctx context.Context, pl *PickList) error
	CreateLine(ctx context.Context, line *PickListLine) error
	CreateItem(ctx context.Context, item *PickListItem) error
	GetByID(ctx context.Context, id string) (*PickList, error)
	GetForUpdate(ctx context.Context, id string) (*PickList, error)
	FindOpenByOrder(ctx context.Context, orderID string) (*PickList, error)
	List(ctx context.Context, status string) ([]*PickList, error)
	ListLines(ctx context.Context, pickListID string) ([]*PickListLine, error)
	ListItems(ctx context.Context, pickListID string) ([]*PickListItem, error)
	GetItemForUpdate(ctx context.Context, itemID string) (*PickListItem, error)
	RecordPick(ctx context.Context, item *PickListItem) error
	Transition(ctx context.Context, id string, from []string, to string, at time.Time) (bool, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) (bool, error)
}

// CaseLabelStore persists case labels.
type CaseLabelStore interface {
	NextSequence(ctx context.Context, lwin18 string) (int, error)
	Create(ctx context.Context, label *CaseLabel) error
	GetByBarcode(ctx context.Context, barcode string) (*CaseLabel, error)
	Consume(ctx context.Context, lwin18, lot string, count int, at time.Time) (int, error)
}

// ReceiptStore persists shipment receipts.
type ReceiptStore interface {
	Create(ctx context.Context, r *ShipmentReceipt) error
	ListByShipment(ctx context.Context, shipmentID string) ([]*ShipmentReceipt, error)
}

// Repositories groups the stores bound to one connection or transaction.
type Repositories struct {
	Locations LocationStore
	Stock     StockStore
	Movements MovementStore
	PickLists PickListStore
	Labels    CaseLabelStore
	Receipts  ReceiptStore
}

// Store hands out repositories, optionally bound to a transaction.
type Store interface {
	Repositories() Repositories
	InTx(ctx context.Context, fn func(Repositories) error) error
}

// NewRepositories binds the SQL repositories to db, which may be a *sqlx.DB
// or a *sqlx.Tx.
func NewRepositories(db sqlx.ExtContext) Repositories {
	return Repositories{
		Locations: NewLocationRepository(db),
		Stock:     NewStockRepository(db),
		Movements: NewMovementRepository(db),
		PickLists: NewPickListRepository(db),
		Labels:    NewCaseLabelRepository(db),
		Receipts:  NewReceiptRepository(db),
	}
}

// SQLStore is the PostgreSQL Store.
type SQLStore struct {
	db    *database.DB
	repos Repositories
}

// NewSQLStore creates a store over db
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db, repos: NewRepositories(db)}
}

// Repositories returns repositories outside any transaction
func (s *SQLStore) Repositories() Repositories {
	return s.repos
}

// InTx runs fn with repositories bound to a single transaction. PostgreSQL
// constraint errors are mapped to AppErrors on the way out.
func (s *SQLStore) InTx(ctx context.Context, fn func(Repositories) error) error {
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(NewRepositories(tx))
	})
	return database.Map(err)
}
