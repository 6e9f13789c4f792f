package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/pricing"
)

type fakeClient struct {
	data    map[string]string
	ttl     map[string]time.Duration
	failSet error
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, exp time.Duration) *goredis.StatusCmd {
	if f.failSet != nil {
		return goredis.NewStatusResult("", f.failSet)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = exp
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeClient) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func catalog() pricing.Catalog {
	return pricing.Catalog{
		Grades: []pricing.Grade{{ID: "24", Label: "24K", Purity: decimal.NewFromInt(1)}},
		Units:  []pricing.Unit{{ID: "gram", Label: "Gram", Grams: decimal.NewFromInt(1)}},
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newFakeClient()
	store := NewSessionStore(client, catalog(), time.Hour)

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	sess := dialogue.Start(42, now)
	var err error
	for _, in := range []string{"24", "gram", "2,5"} {
		sess, err = dialogue.Step(catalog(), sess, in, now)
		require.NoError(t, err)
	}
	require.NoError(t, store.Put(ctx, sess))
	assert.Equal(t, time.Hour, client.ttl["goldbot:session:42"])

	got, ok, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, ok)
	total, isTotal := got.Stage.(dialogue.AwaitingTotal)
	require.True(t, isTotal)
	assert.Equal(t, "24", total.Grade.ID)
	assert.True(t, total.Quantity.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, got.StartedAt.Equal(now))

	require.NoError(t, store.Remove(ctx, 42))
	_, ok, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStoreDropsUndecodableSession(t *testing.T) {
	client := newFakeClient()
	client.data["goldbot:session:9"] = `{"user_id":9,"stage":"awaiting_unit","grade":"14"}`
	store := NewSessionStore(client, catalog(), 0)

	_, ok, err := store.Get(context.Background(), 9)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotContains(t, client.data, "goldbot:session:9")
}

func TestSessionStoreWrapsErrors(t *testing.T) {
	client := newFakeClient()
	client.failSet = errors.New("READONLY")
	store := NewSessionStore(client, catalog(), 0)

	err := store.Put(context.Background(), dialogue.Start(1, time.Now()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}
