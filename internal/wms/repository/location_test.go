package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/testutil"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var locationCols = []string{
	"id", "location_code", "barcode", "aisle", "bay", "level", "location_type",
	"forklift_required", "capacity_cases", "created_at",
}

func TestLocationRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("INSERT INTO locations").
		WithArgs(testutil.AnyUUID{}, "A-01-02", "LOC-A-01-02", "A", "01", "02", LocationRack, false, nil).
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))

	loc := &Location{Code: "A-01-02", Barcode: "LOC-A-01-02", Aisle: "A", Bay: "01", Level: "02", Type: LocationRack}
	require.NoError(t, repo.Create(context.Background(), loc))

	assert.NotEmpty(t, loc.ID)
	assert.Equal(t, now, loc.CreatedAt)
	mockDB.ExpectationsWereMet(t)
}

func TestLocationRepository_CreateDuplicate(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)

	mockDB.ExpectQuery("INSERT INTO locations").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "location_code_key"})

	err := repo.Create(context.Background(), &Location{Code: "A-01-02", Barcode: "LOC-A-01-02", Type: LocationRack})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Contains(t, err.Error(), "location")
}

func TestLocationRepository_GetByBarcode(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("FROM locations WHERE barcode = $1").
		WithArgs("LOC-A-01-02").
		WillReturnRows(testutil.MockRows(locationCols...).
			AddRow("loc-1", "A-01-02", "LOC-A-01-02", "A", "01", "02", LocationRack, true, 40, now))

	loc, err := repo.GetByBarcode(context.Background(), "LOC-A-01-02")
	require.NoError(t, err)
	assert.Equal(t, "loc-1", loc.ID)
	assert.True(t, loc.ForkliftRequired)
	require.NotNil(t, loc.CapacityCases)
	assert.Equal(t, 40, *loc.CapacityCases)
	mockDB.ExpectationsWereMet(t)
}

func TestLocationRepository_GetByBarcodeNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)

	mockDB.ExpectQuery("FROM locations WHERE barcode = $1").
		WithArgs("LOC-Z-99-99").
		WillReturnRows(testutil.MockRows(locationCols...))

	_, err := repo.GetByBarcode(context.Background(), "LOC-Z-99-99")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestLocationRepository_ListFiltersByType(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)
	now := time.Now()

	mockDB.ExpectQuery("ORDER BY location_code").
		WithArgs(LocationShipping).
		WillReturnRows(testutil.MockRows(locationCols...).
			AddRow("s-1", "SHIP-01-00", "LOC-SHIP-01-00", "SHIP", "01", "00", LocationShipping, false, nil, now))

	locs, err := repo.List(context.Background(), LocationShipping)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Nil(t, locs[0].CapacityCases)
	assert.NoError(t, mockDB.Mock.ExpectationsWereMet())
}

func TestLocationRepository_FirstByTypeMissing(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewLocationRepository(mockDB.DB)
	mockDB.ExpectQuery("LIMIT 1").
		WithArgs(LocationShipping).
		WillReturnError(sqlmock.ErrCancelled)

	_, err := repo.FirstByType(context.Background(), LocationShipping)
	assert.ErrorIs(t, err, sqlmock.ErrCancelled)
}
