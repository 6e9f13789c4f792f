package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/goldbot/core/telegram"
	"github.com/m3rciful/goldbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "price fetch" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "PRICE_FETCH", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.NotEmpty(t, deriveErrorCode(errors.New("x")))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "profit", normalizeHandlerName("/Profit"))
	assert.Equal(t, "my_gold", normalizeHandlerName(" my gold "))
	assert.Equal(t, "unknown", normalizeHandlerName(""))
}

type fakeDialogue struct {
	active  bool
	handled int
}

func (f *fakeDialogue) Active(tele.Context) bool { return f.active }
func (f *fakeDialogue) HandleText(tele.Context) error {
	f.handled++
	return nil
}

func textContext(t *testing.T, text string) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	user := &tele.User{ID: 77}
	return b.NewContext(tele.Update{ID: 1, Message: &tele.Message{Sender: user, Chat: &tele.Chat{ID: 77}, Text: text}})
}

func TestTextRoutesPrefersActiveDialogue(t *testing.T) {
	dlg := &fakeDialogue{active: true}
	fallbacks := 0
	routes := TextRoutes(dlg, tg.NewRegistry(), TextOptions{
		UnknownText: func(tele.Context) error { fallbacks++; return nil },
	})
	require.Len(t, routes, 2)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)

	require.NoError(t, routes[0].Handler(textContext(t, "12,5")))
	assert.Equal(t, 1, dlg.handled)

	dlg.active = false
	require.NoError(t, routes[0].Handler(textContext(t, "hello")))
	assert.Equal(t, 1, dlg.handled)
	assert.Equal(t, 1, fallbacks)
}

func TestTextRoutesCommandAlias(t *testing.T) {
	reg := tg.NewRegistry()
	called := 0
	require.NoError(t, reg.RegisterCommand("/price", commands.Command{
		Handler:     func(tele.Context) error { called++; return nil },
		Description: "Current gold price",
		Aliases:     []string{"price"},
	}))
	routes := TextRoutes(nil, reg, TextOptions{})
	require.NoError(t, routes[0].Handler(textContext(t, "Price")))
	assert.Equal(t, 1, called)
}

func TestCommandRoutesGateAdmin(t *testing.T) {
	reg := tg.NewRegistry()
	ran, rejected := 0, 0
	require.NoError(t, reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     func(tele.Context) error { ran++; return nil },
		Description: "Broadcast now",
		AdminOnly:   true,
	}))
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID:       1,
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
	})
	require.Len(t, routes, 1)
	require.NoError(t, routes[0].Handler(textContext(t, "/broadcast")))
	assert.Equal(t, 0, ran)
	assert.Equal(t, 1, rejected)
}
