package dialogue

import (
	"context"

	"github.com/m3rciful/goldbot/internal/profit"
)

// SessionStore keeps at most one active session per user.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (Session, bool, error)
	Put(ctx context.Context, s Session) error
	Remove(ctx context.Context, userID int64) error
}

// RecordStore keeps purchase records keyed by user and grade; the last write wins.
type RecordStore interface {
	GetRecord(ctx context.Context, userID int64, grade string) (profit.PurchaseRecord, bool, error)
	PutRecord(ctx context.Context, rec profit.PurchaseRecord) error
	ListRecords(ctx context.Context) ([]profit.PurchaseRecord, error)
	ListUserRecords(ctx context.Context, userID int64) ([]profit.PurchaseRecord, error)
}
