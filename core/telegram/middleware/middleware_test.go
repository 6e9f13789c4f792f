package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func messageFrom(b *tele.Bot, updateID int, userID int64) tele.Context {
	user := &tele.User{ID: userID}
	return b.NewContext(tele.Update{
		ID:      updateID,
		Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate}, Text: "hi"},
	})
}

func callbackFrom(b *tele.Bot, updateID int, userID int64) tele.Context {
	user := &tele.User{ID: userID}
	return b.NewContext(tele.Update{
		ID:       updateID,
		Callback: &tele.Callback{Sender: user, Data: "\fprice|refresh"},
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	b := offlineBot(t)
	limited := 0
	handled := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(messageFrom(b, 1, 7)))
	require.NoError(t, h(messageFrom(b, 2, 7)))
	require.NoError(t, h(messageFrom(b, 3, 8)))
	require.NoError(t, h(callbackFrom(b, 4, 7)))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	b := offlineBot(t)
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 42, OnReject: func(tele.Context) error { rejected++; return nil }})
	called := 0
	h := mw(func(tele.Context) error { called++; return nil })

	require.NoError(t, h(messageFrom(b, 1, 42)))
	require.NoError(t, h(messageFrom(b, 2, 7)))
	assert.Equal(t, 1, called)
	assert.Equal(t, 1, rejected)

	closed := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { called++; return nil })
	require.NoError(t, closed(messageFrom(b, 3, 42)))
	assert.Equal(t, 1, called)
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(messageFrom(b, 1, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.Equal(t, want, RecoverMiddleware(func(tele.Context) error { return want })(messageFrom(b, 2, 7)))
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	b := offlineBot(t)
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(messageFrom(b, 5, 9)))
	assert.Equal(t, "5:9:9", rid)
}

func TestMessageMetricsCountsSendsAndEdits(t *testing.T) {
	b := offlineBot(t)
	c := messageFrom(b, 1, 7)
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		cc := c.(countingContext)
		require.NoError(t, cc.track(false, []interface{}{&tele.ReplyMarkup{}}, nil))
		require.NoError(t, cc.track(true, nil, nil))
		assert.Error(t, cc.track(false, nil, errors.New("blocked")))
		return nil
	})
	require.NoError(t, h(c))

	out, ok := OutboundFrom(c)
	require.True(t, ok)
	sent, edited, kb := out.Snapshot()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, edited)
	assert.True(t, kb)
}

func TestOutboundFromMissing(t *testing.T) {
	_, ok := OutboundFrom(messageFrom(offlineBot(t), 2, 7))
	assert.False(t, ok)
}

func TestSeenUpdatesWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := &seenUpdates{ids: make(map[int]time.Time), window: 10 * time.Second, nowFunc: func() time.Time { return now }}

	assert.True(t, s.first(1))
	assert.False(t, s.first(1))
	assert.True(t, s.first(2))

	now = now.Add(11 * time.Second)
	assert.True(t, s.first(1))
	assert.Len(t, s.ids, 1)
}

func TestRateLimitBurstAndEviction(t *testing.T) {
	l := &userLimiters{
		every: 1, // one token per second
		burst: 2,
		idle:  time.Minute,
		users: make(map[int64]*userLimiter),
	}
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, l.allow(7, now))
	assert.True(t, l.allow(7, now))
	assert.False(t, l.allow(7, now))
	assert.True(t, l.allow(7, now.Add(time.Second)))

	l.allow(8, now.Add(2*time.Minute))
	assert.Len(t, l.users, 1)
}
