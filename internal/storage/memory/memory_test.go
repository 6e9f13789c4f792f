package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/profit"
)

func TestSessionsSingleActivePerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.Put(ctx, dialogue.Start(7, now)))
	require.NoError(t, s.Put(ctx, dialogue.Start(7, now.Add(time.Minute))))

	sess, ok, err := s.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute), sess.StartedAt)

	require.NoError(t, s.Remove(ctx, 7))
	require.NoError(t, s.Remove(ctx, 7))
	_, ok, _ = s.Get(ctx, 7)
	assert.False(t, ok)
}

func TestRecordsLastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := New()
	rec := profit.PurchaseRecord{UserID: 1, Grade: "24", Unit: "gram", Quantity: decimal.NewFromInt(1), Total: decimal.NewFromInt(60)}
	require.NoError(t, s.PutRecord(ctx, rec))
	rec.Total = decimal.NewFromInt(70)
	require.NoError(t, s.PutRecord(ctx, rec))
	require.NoError(t, s.PutRecord(ctx, profit.PurchaseRecord{UserID: 1, Grade: "21"}))
	require.NoError(t, s.PutRecord(ctx, profit.PurchaseRecord{UserID: 2, Grade: "18"}))

	got, ok, err := s.GetRecord(ctx, 1, "24")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(70)))

	all, err := s.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "21", all[0].Grade)
	assert.Equal(t, int64(2), all[2].UserID)

	mine, err := s.ListUserRecords(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
