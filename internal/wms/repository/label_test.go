package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/errors"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaseLabelRepository_NextSequence(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewCaseLabelRepository(mockDB.DB)

	mockDB.ExpectExec("pg_advisory_xact_lock").
		WithArgs("case_label:" + testLWIN).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("COALESCE(MAX(sequence), 0) + 1").
		WithArgs(testLWIN).
		WillReturnRows(testutil.MockRows("next").AddRow(4))

	next, err := repo.NextSequence(context.Background(), testLWIN)
	require.NoError(t, err)
	assert.Equal(t, 4, next)
	mockDB.ExpectationsWereMet(t)
}

func TestCaseLabelRepository_GetByBarcodeNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewCaseLabelRepository(mockDB.DB)

	mockDB.ExpectQuery("FROM case_labels WHERE barcode = $1").
		WithArgs("CASE-1010279-20180600750-009").
		WillReturnRows(testutil.MockRows("barcode", "lwin18", "lot_number", "shipment_id", "sequence", "created_at", "consumed_at"))

	_, err := repo.GetByBarcode(context.Background(), "CASE-1010279-20180600750-009")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCaseLabelRepository_Consume(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewCaseLabelRepository(mockDB.DB)

	mockDB.ExpectExec("UPDATE case_labels SET consumed_at = $4").
		WithArgs(testLWIN, "LOT-1", 3, testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.Consume(context.Background(), testLWIN, "LOT-1", 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	mockDB.ExpectationsWereMet(t)
}

func TestMovementRepository_CreateReturnsSeq(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewMovementRepository(mockDB.DB)
	from, to := "loc-a", "loc-b"

	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WithArgs(testutil.AnyUUID{}, "MOV-1", MovementTransfer, testLWIN, 2, &from, &to, nil, nil, nil, "LOT-1", testutil.AnyTime{}, "op-1").
		WillReturnRows(testutil.MockRows("seq").AddRow(int64(17)))

	m := &StockMovement{
		MovementNumber: "MOV-1", Type: MovementTransfer, LWIN18: testLWIN, QuantityCases: 2,
		FromLocationID: &from, ToLocationID: &to, LotNumber: "LOT-1",
		PerformedAt: time.Now(), PerformedBy: "op-1",
	}
	require.NoError(t, repo.Create(context.Background(), m))
	assert.Equal(t, int64(17), m.Seq)
	mockDB.ExpectationsWereMet(t)
}

func TestStockMovement_SignedQuantity(t *testing.T) {
	tests := map[string]int{
		MovementReceive:  5,
		MovementDispatch: -5,
		MovementPutaway:  0,
		MovementTransfer: 0,
		MovementPick:     0,
	}
	for typ, want := range tests {
		m := StockMovement{Type: typ, QuantityCases: 5}
		assert.Equal(t, want, m.SignedQuantity(), typ)
	}
}
