package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/goldbot/core/telegram"
	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/storage/memory"

	tele "gopkg.in/telebot.v4"
)

// fakeContext records outgoing messages; unused tele.Context methods panic.
type fakeContext struct {
	tele.Context
	user   *tele.User
	text   string
	cb     *tele.Callback
	store  map[string]interface{}
	sent   []outgoing
	edited []outgoing
}

type outgoing struct {
	text   string
	markup *tele.ReplyMarkup
}

func newContext(userID int64, text string) *fakeContext {
	return &fakeContext{user: &tele.User{ID: userID}, text: text, store: map[string]interface{}{}}
}

func callbackContext(userID int64, unique, data string) *fakeContext {
	c := newContext(userID, "")
	c.cb = &tele.Callback{Unique: unique, Data: data, Sender: c.user}
	return c
}

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }
func (f *fakeContext) Set(key string, v interface{}) { f.store[key] = v }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Sender() *tele.User { return f.user }
func (f *fakeContext) Chat() *tele.Chat {
	if f.user == nil {
		return &tele.Chat{ID: -1001, Type: tele.ChatChannel}
	}
	return &tele.Chat{ID: f.user.ID}
}
func (f *fakeContext) Text() string { return f.text }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, capture(what, opts))
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	f.edited = append(f.edited, capture(what, opts))
	return nil
}

func capture(what interface{}, opts []interface{}) outgoing {
	out := outgoing{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			out.markup = so.ReplyMarkup
		}
	}
	return out
}

func (f *fakeContext) last() outgoing {
	if f.cb != nil && len(f.edited) > 0 {
		return f.edited[len(f.edited)-1]
	}
	if len(f.sent) > 0 {
		return f.sent[len(f.sent)-1]
	}
	return outgoing{}
}

var catalog = pricing.Catalog{
	Grades: []pricing.Grade{
		{ID: "24", Label: "24K", Purity: decimal.NewFromInt(1)},
		{ID: "21", Label: "21K", Purity: decimal.RequireFromString("0.875")},
		{ID: "18", Label: "18K", Purity: decimal.RequireFromString("0.75")},
	},
	Units: []pricing.Unit{{ID: "gram", Label: "Gram", Grams: decimal.NewFromInt(1)}},
}

type stubSource struct{ err error }

func (s stubSource) Fetch(context.Context) (pricing.Quote, error) {
	if s.err != nil {
		return pricing.Quote{}, s.err
	}
	return pricing.NewQuote(catalog, "USD", decimal.RequireFromString("65.25").Mul(pricing.TroyOunceGrams), time.Now(), nil)
}

func newHandlers(src pricing.Source) (*Handlers, *memory.Store) {
	store := memory.New()
	svc := dialogue.NewService(dialogue.Options{
		Catalog: catalog, Sessions: store, Records: store, Prices: src, Currency: "USD",
	})
	return New(Deps{Catalog: catalog, Prices: src, Dialogue: svc, Records: store}), store
}

func buttonTexts(m *tele.ReplyMarkup) [][]string {
	if m == nil {
		return nil
	}
	rows := make([][]string, 0, len(m.InlineKeyboard))
	for _, row := range m.InlineKeyboard {
		var texts []string
		for _, b := range row {
			texts = append(texts, b.Text)
		}
		rows = append(rows, texts)
	}
	return rows
}

func TestProfitFlowThroughHandlers(t *testing.T) {
	h, store := newHandlers(stubSource{})

	c := newContext(5, "/profit")
	require.NoError(t, h.Profit(c))
	prompt := c.last()
	assert.Contains(t, prompt.text, "Which gold grade")
	assert.Equal(t, [][]string{{"24K", "21K"}, {"18K"}, {"❌ Cancel"}}, buttonTexts(prompt.markup))

	cb := callbackContext(5, CallbackGrade, "24")
	require.NoError(t, h.choice(dialogue.FieldGrade)(cb))
	require.Len(t, cb.edited, 1)
	assert.Contains(t, cb.edited[0].text, "*24K* selected")

	for _, in := range []string{"gram", "10"} {
		require.NoError(t, h.HandleText(newContext(5, in)))
	}
	done := newContext(5, "600")
	require.NoError(t, h.HandleText(done))
	assert.Contains(t, done.last().text, "`+52.50` USD")
	assert.Nil(t, done.last().markup)

	recs, err := store.ListUserRecords(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestHandleTextWithoutSessionFallsBack(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	c := newContext(6, "hello")
	assert.False(t, h.Active(c))
	require.NoError(t, h.HandleText(c))
	assert.Contains(t, c.last().text, "did not understand")
}

func TestUpdatesWithoutSenderSkipDialogue(t *testing.T) {
	h, store := newHandlers(stubSource{})

	c := newContext(0, "")
	c.user = nil
	require.NoError(t, h.Profit(c))
	assert.Empty(t, c.sent)
	assert.False(t, h.Active(c))

	c.text = "24K"
	require.NoError(t, h.HandleText(c))
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0].text, "did not understand")

	_, ok, err := store.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, h.MyGold(c))
	assert.Len(t, c.sent, 1)
}

func TestPriceUnavailable(t *testing.T) {
	h, _ := newHandlers(stubSource{err: &pricing.FetchError{Source: "price", Kind: pricing.KindNetwork, Err: errors.New("down")}})
	c := newContext(1, "/price")
	require.NoError(t, h.Price(c))
	assert.Contains(t, c.last().text, "unavailable")
	assert.Equal(t, [][]string{{"🔄 Refresh price"}}, buttonTexts(c.last().markup))
}

func TestPriceCallbackEditsInPlace(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	c := callbackContext(1, CallbackPrice, "")
	require.NoError(t, h.PriceCallback(c))
	require.Len(t, c.edited, 1)
	assert.Empty(t, c.sent)
	assert.Contains(t, c.edited[0].text, "Gold price update")
}

func TestCancelCallback(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	require.NoError(t, h.Profit(newContext(2, "/profit")))

	c := callbackContext(2, CallbackCancel, "")
	require.NoError(t, h.Cancel(c))
	assert.Contains(t, c.last().text, "cancelled")
	assert.False(t, h.Active(newContext(2, "")))
}

func TestMyGold(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	c := newContext(3, "/mygold")
	require.NoError(t, h.MyGold(c))
	assert.Contains(t, c.last().text, "no saved purchases")

	require.NoError(t, h.Profit(newContext(3, "")))
	for _, in := range []string{"24", "gram", "2", "100"} {
		require.NoError(t, h.HandleText(newContext(3, in)))
	}
	c = newContext(3, "/mygold")
	require.NoError(t, h.MyGold(c))
	assert.Contains(t, c.last().text, "Your gold")
	assert.Contains(t, c.last().text, "`+30.50` USD")
}

func TestBroadcastTriggersJob(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	var got string
	h.trigger = func(job string) error { got = job; return nil }

	c := newContext(1, "/broadcast")
	require.NoError(t, h.Broadcast(c))
	assert.Equal(t, BroadcastJob, got)
	assert.Contains(t, c.last().text, "started")
}

func TestRegisterWiresCommandsAndCallbacks(t *testing.T) {
	h, _ := newHandlers(stubSource{})
	reg := tg.NewRegistry()
	require.NoError(t, h.Register(reg))

	assert.Equal(t, []string{CallbackCancel, CallbackGrade, CallbackPrice, CallbackProfit, CallbackUnit}, reg.ListCallbacks())
	visible := reg.ListCommands(true)
	names := make([]string, 0, len(visible))
	for _, cmd := range visible {
		names = append(names, cmd.Text)
	}
	assert.Equal(t, []string{"/cancel", "/mygold", "/price", "/profit", "/start"}, names)
	_, cmd, ok := reg.LookupCommand("/broadcast")
	require.True(t, ok)
	assert.True(t, cmd.AdminOnly)
}
