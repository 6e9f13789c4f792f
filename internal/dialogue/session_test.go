package dialogue

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goldbot/internal/pricing"
)

func testCatalog() pricing.Catalog {
	return pricing.Catalog{
		Grades: []pricing.Grade{
			{ID: "24", Label: "24K", Purity: decimal.NewFromInt(1)},
			{ID: "21", Label: "21K", Purity: decimal.RequireFromString("0.875")},
		},
		Units: []pricing.Unit{
			{ID: "gram", Label: "Gram", Grams: decimal.NewFromInt(1)},
			{ID: "mithqal", Label: "Mithqal", Grams: decimal.NewFromInt(5)},
		},
	}
}

func TestStepWalksAllStages(t *testing.T) {
	cat := testCatalog()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := Start(3, now)

	s, err := Step(cat, s, "21k", now)
	require.NoError(t, err)
	assert.Equal(t, AwaitingUnit{Grade: cat.Grades[1]}, s.Stage)

	s, err = Step(cat, s, "Mithqal", now)
	require.NoError(t, err)
	require.IsType(t, AwaitingQuantity{}, s.Stage)

	s, err = Step(cat, s, "2", now)
	require.NoError(t, err)
	require.IsType(t, AwaitingTotal{}, s.Stage)

	later := now.Add(time.Minute)
	s, err = Step(cat, s, "700", later)
	require.NoError(t, err)
	done, ok := s.Stage.(Complete)
	require.True(t, ok)
	assert.Equal(t, int64(3), done.Record.UserID)
	assert.Equal(t, "21", done.Record.Grade)
	assert.Equal(t, "mithqal", done.Record.Unit)
	assert.True(t, done.Record.UnitPrice().Equal(decimal.NewFromInt(350)))
	assert.Equal(t, later, s.UpdatedAt)
}

func TestStepRejectsInvalidInputWithoutMoving(t *testing.T) {
	cat := testCatalog()
	now := time.Now()
	s := Start(1, now)

	same, err := Step(cat, s, "14K", now)
	var inErr *InputError
	require.True(t, errors.As(err, &inErr))
	assert.Equal(t, ReasonUnknownGrade, inErr.Reason)
	assert.Equal(t, s, same)

	s, _ = Step(cat, s, "24", now)
	s, _ = Step(cat, s, "gram", now)
	for _, in := range []string{"0", "-1", "abc", "1,234.5"} {
		same, err = Step(cat, s, in, now)
		require.Error(t, err, in)
		assert.True(t, errors.As(err, &inErr), in)
		assert.IsType(t, AwaitingQuantity{}, same.Stage, in)
	}
}

func TestStepOnTerminalSession(t *testing.T) {
	s := Cancel(Start(1, time.Now()), time.Now())
	assert.Equal(t, Cancelled{}, s.Stage)
	_, err := Step(testCatalog(), s, "24", time.Now())
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestSessionStale(t *testing.T) {
	now := time.Now()
	s := Start(1, now.Add(-25*time.Hour))
	assert.True(t, s.Stale(now, 24*time.Hour))
	assert.False(t, s.Stale(now, 0))
	assert.False(t, Start(1, now).Stale(now, 24*time.Hour))
}

func TestSessionCodecRejectsTerminalStages(t *testing.T) {
	_, err := Session{UserID: 1, Stage: Cancelled{}}.MarshalJSON()
	assert.Error(t, err)

	_, err = DecodeSession(testCatalog(), []byte(`{"user_id":1,"stage":"complete"}`))
	assert.Error(t, err)
}

func TestSessionCodecRoundTrip(t *testing.T) {
	cat := testCatalog()
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	s := Start(8, now)
	s, _ = Step(cat, s, "24", now)

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	got, err := DecodeSession(cat, data)
	require.NoError(t, err)
	assert.Equal(t, s.Stage, got.Stage)
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestUserLocksReleaseEntries(t *testing.T) {
	l := newUserLocks()
	unlock := l.Lock(1)
	assert.Equal(t, 1, l.size())
	unlock()
	assert.Equal(t, 0, l.size())
}
