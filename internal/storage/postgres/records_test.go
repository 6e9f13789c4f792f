package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goldbot/internal/profit"
)

var recordColumns = []string{"user_id", "grade", "unit", "quantity", "total", "created_at"}

func newStore(t *testing.T) (*RecordStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRecordStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPutRecordUpserts(t *testing.T) {
	store, mock := newStore(t)
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO purchase_records`)).
		WithArgs(int64(5), "24", "gram", sqlmock.AnyArg(), sqlmock.AnyArg(), created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.PutRecord(context.Background(), profit.PurchaseRecord{
		UserID: 5, Grade: "24", Unit: "gram",
		Quantity: decimal.NewFromInt(10), Total: decimal.NewFromInt(600),
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutRecordRejectsInvalid(t *testing.T) {
	store, mock := newStore(t)
	err := store.PutRecord(context.Background(), profit.PurchaseRecord{UserID: 1, Grade: "24", Unit: "gram"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord(t *testing.T) {
	store, mock := newStore(t)
	created := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND grade = $2`)).
		WithArgs(int64(5), "24").
		WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(5, "24", "gram", "10.00000000", "600.00000000", created))

	rec, ok, err := store.GetRecord(context.Background(), 5, "24")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, rec.UnitPrice().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, created, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecordMissing(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND grade = $2`)).
		WithArgs(int64(5), "18").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	_, ok, err := store.GetRecord(context.Background(), 5, "18")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRecords(t *testing.T) {
	store, mock := newStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY user_id, grade`)).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(1, "21", "mithqal", "2", "700", now).
			AddRow(2, "24", "gram", "1", "60", now))

	recs, err := store.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "mithqal", recs[0].Unit)
	assert.Equal(t, int64(2), recs[1].UserID)
}

func TestListUserRecordsWrapsError(t *testing.T) {
	store, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 ORDER BY grade`)).
		WithArgs(int64(3)).
		WillReturnError(errors.New("connection reset"))

	_, err := store.ListUserRecords(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list user purchase records")
}
