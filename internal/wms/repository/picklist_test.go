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

func TestPickListRepository_TransitionIsConditional(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewPickListRepository(mockDB.DB)
	from := []string{PickListPending, PickListInProgress}

	mockDB.ExpectExec("UPDATE pick_lists SET status = $2, completed_at = $3").
		WithArgs("pl-1", PickListCompleted, testutil.AnyTime{}, pq.Array(from)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("UPDATE pick_lists SET status = $2, completed_at = $3").
		WithArgs("pl-1", PickListCompleted, testutil.AnyTime{}, pq.Array(from)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Transition(context.Background(), "pl-1", from, PickListCompleted, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Transition(context.Background(), "pl-1", from, PickListCompleted, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	mockDB.ExpectationsWereMet(t)
}

func TestPickListRepository_TransitionUnknownStatus(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	_, err := NewPickListRepository(mockDB.DB).Transition(context.Background(), "pl-1", nil, PickListPending, time.Now())
	assert.Error(t, err)
}

func TestPickListRepository_RecordPickTwice(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewPickListRepository(mockDB.DB)
	now := time.Now()
	loc := "loc-a"
	qty := 2
	by := "op-1"
	item := &PickListItem{ID: "item-1", PickedFromLocationID: &loc, PickedQuantity: &qty, PickStatus: PickPicked, PickedAt: &now, PickedBy: &by}

	mockDB.ExpectExec("WHERE id = $1 AND pick_status = 'not_picked'").
		WithArgs("item-1", &loc, &qty, PickPicked, &now, &by).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordPick(context.Background(), item)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestPickListRepository_CreateDuplicateOrder(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewPickListRepository(mockDB.DB)

	mockDB.ExpectQuery("INSERT INTO pick_lists").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "pick_list_order_open_key"})

	err := repo.Create(context.Background(), &PickList{PickListNumber: "PL-1", OrderID: "ord-1", Status: PickListPending})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	assert.Contains(t, err.Error(), "order")
}

func TestPickListRepository_MarkDispatched(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewPickListRepository(mockDB.DB)

	mockDB.ExpectExec("dispatched_at IS NULL").
		WithArgs("pl-1", testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkDispatched(context.Background(), "pl-1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	mockDB.ExpectationsWereMet(t)
}
