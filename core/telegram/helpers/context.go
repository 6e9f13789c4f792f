package helpers

import (
	"context"

	"github.com/m3rciful/goldbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "logger_ctx"
	ridKey     = "rid"
)

// Origin identifies who an update came from.
type Origin struct {
	UpdateID int
	UserID   int64
	ChatID   int64
}

// OriginOf extracts update, sender and chat ids; missing parts stay zero.
func OriginOf(c tele.Context) Origin {
	o := Origin{UpdateID: c.Update().ID}
	if u := c.Sender(); u != nil {
		o.UserID = u.ID
	}
	if ch := c.Chat(); ch != nil {
		o.ChatID = ch.ID
	}
	return o
}

// RID returns the request id attached to c, assigning one if needed.
func RID(c tele.Context) string {
	if rid, ok := c.Get(ridKey).(string); ok && rid != "" {
		return rid
	}
	o := OriginOf(c)
	rid := logger.BuildRID(o.UpdateID, o.ChatID, o.UserID)
	c.Set(ridKey, rid)
	return rid
}

// StoreContext attaches ctx to c for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context stored on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the logging context for c, carrying rid and
// update metadata. The result is cached on c.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	o := OriginOf(c)
	ctx := logger.WithRID(context.Background(), RID(c))
	ctx = logger.WithUpdateMeta(ctx, o.UpdateID, o.UserID, o.ChatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
