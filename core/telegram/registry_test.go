package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/price", commands.Command{Handler: noop, Description: "Current gold price", Aliases: []string{"Prices"}}))
	require.NoError(t, reg.RegisterCommand("/broadcast", commands.Command{Handler: noop, Description: "Broadcast now", AdminOnly: true}))
	assert.ErrorIs(t, reg.RegisterCommand("profit", commands.Command{Handler: noop, Description: "missing slash"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/nodesc", commands.Command{Handler: noop}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/quote", commands.Command{Handler: noop, Description: "dup alias", Aliases: []string{"prices"}}), ErrInvalidRegistration)

	assert.Len(t, reg.Commands(), 2)

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "/price", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 2)

	key, _, ok := reg.LookupCommand("prices")
	assert.True(t, ok)
	assert.Equal(t, "/price", key)
	key, _, ok = reg.LookupCommand(" PRICE ")
	assert.True(t, ok)
	assert.Equal(t, "/price", key)
	_, _, ok = reg.LookupCommand("quote")
	assert.False(t, ok)
	_, _, ok = reg.LookupCommand("/unknown")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("grade", noop))
	require.NoError(t, reg.RegisterCallback("cancel", noop))
	assert.Error(t, reg.RegisterCallback("grade", noop))
	assert.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("grade")
	assert.True(t, ok)
	assert.Equal(t, []string{"cancel", "grade"}, reg.ListCallbacks())
	assert.NotNil(t, reg.CallbackNotFound())
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		out := make([]string, 0, len(mws))
		for _, m := range mws {
			out = append(out, m.Name)
		}
		return out
	}

	assert.Equal(t, []string{"recover", "logger", "metrics"}, names(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	assert.Equal(t, []string{"recover", "rate_limit", "logger", "metrics"}, names(DefaultMiddlewares(cfg, nil)))
}
