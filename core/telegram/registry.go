package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// ErrInvalidRegistration reports a command or callback that cannot be routed.
var ErrInvalidRegistration = errors.New("invalid registration")

// Registry holds bot commands, their text aliases and callbacks.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	aliases          map[string]string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry with a default expired-button reply.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "This button has expired"})
			return nil
		},
	}
}

func aliasKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/"))
}

func skipRegistration(kind, name, reason string) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register."+kind+".skip",
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("%w: %s %q: %s", ErrInvalidRegistration, kind, name, reason)
}

// RegisterCommand adds a command. Names start with '/'; aliases are matched
// case-insensitively against plain text and must not collide.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if problem := cmd.Problem(name); problem != "" {
		return skipRegistration("command", name, problem)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return skipRegistration("command", name, "duplicate")
	}
	keys := make([]string, 0, len(cmd.Aliases)+1)
	keys = append(keys, aliasKey(name))
	for _, a := range cmd.Aliases {
		k := aliasKey(a)
		if k == "" {
			continue
		}
		if owner, taken := r.aliases[k]; taken {
			return skipRegistration("command", name, "alias "+k+" taken by "+owner)
		}
		keys = append(keys, k)
	}
	r.commands[name] = cmd
	for _, k := range keys {
		if _, taken := r.aliases[k]; !taken {
			r.aliases[k] = name
		}
	}
	return nil
}

// ListCommands returns commands sorted by name, optionally without hidden and admin-only ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && !meta.Visible() {
			continue
		}
		list = append(list, tele.Command{Text: cmd, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a command name or alias to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.aliases[aliasKey(name)]
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback maps a callback unique key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return skipRegistration("callback", key, "invalid")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return skipRegistration("callback", key, "duplicate")
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the handler for stale or unknown buttons.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for stale or unknown buttons.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetupCommands publishes visible commands to the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
	}
}
