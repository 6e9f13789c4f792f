// Package postgres stores purchase records in the purchase_records table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/profit"
)

const selectColumns = `SELECT user_id, grade, unit, quantity, total, created_at FROM purchase_records`

type recordRow struct {
	UserID    int64           `db:"user_id"`
	Grade     string          `db:"grade"`
	Unit      string          `db:"unit"`
	Quantity  decimal.Decimal `db:"quantity"`
	Total     decimal.Decimal `db:"total"`
	CreatedAt time.Time       `db:"created_at"`
}

func (r recordRow) record() profit.PurchaseRecord {
	return profit.PurchaseRecord{
		UserID:    r.UserID,
		Grade:     r.Grade,
		Unit:      r.Unit,
		Quantity:  r.Quantity,
		Total:     r.Total,
		CreatedAt: r.CreatedAt,
	}
}

// RecordStore implements dialogue.RecordStore with sqlx.
type RecordStore struct {
	db *sqlx.DB
}

// NewRecordStore wraps an open connection; the schema comes from migrations.
func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

// GetRecord loads the record for user and grade.
func (s *RecordStore) GetRecord(ctx context.Context, userID int64, grade string) (profit.PurchaseRecord, bool, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, selectColumns+` WHERE user_id = $1 AND grade = $2`, userID, grade)
	if errors.Is(err, sql.ErrNoRows) {
		return profit.PurchaseRecord{}, false, nil
	}
	if err != nil {
		return profit.PurchaseRecord{}, false, fmt.Errorf("get purchase record: %w", err)
	}
	return row.record(), true, nil
}

// PutRecord inserts or replaces the record for (user, grade).
func (s *RecordStore) PutRecord(ctx context.Context, rec profit.PurchaseRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO purchase_records
		(user_id, grade, unit, quantity, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (user_id, grade) DO UPDATE SET
			unit = excluded.unit,
			quantity = excluded.quantity,
			total = excluded.total,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.Grade, rec.Unit, rec.Quantity, rec.Total, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("put purchase record: %w", err)
	}
	return nil
}

// ListRecords returns every record ordered by user then grade.
func (s *RecordStore) ListRecords(ctx context.Context) ([]profit.PurchaseRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, selectColumns+` ORDER BY user_id, grade`); err != nil {
		return nil, fmt.Errorf("list purchase records: %w", err)
	}
	return toRecords(rows), nil
}

// ListUserRecords returns one user's records ordered by grade.
func (s *RecordStore) ListUserRecords(ctx context.Context, userID int64) ([]profit.PurchaseRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, selectColumns+` WHERE user_id = $1 ORDER BY grade`, userID); err != nil {
		return nil, fmt.Errorf("list user purchase records: %w", err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []recordRow) []profit.PurchaseRecord {
	out := make([]profit.PurchaseRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out
}

var _ dialogue.RecordStore = (*RecordStore)(nil)
