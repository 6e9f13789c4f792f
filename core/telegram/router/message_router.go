package router

import (
	"time"

	tg "github.com/m3rciful/goldbot/core/telegram"
	"github.com/m3rciful/goldbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialogue is the conversational flow that gets first claim on free text.
// Active reports whether the sender has a session waiting for input.
type Dialogue interface {
	Active(c tele.Context) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for free text and documents. Text goes to the
// active dialogue first, then to command aliases, then to the fallbacks.
func TextRoutes(dlg Dialogue, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		if dlg != nil && dlg.Active(c) {
			return handleWithSummary(c, "dialogue", start, "", func() error {
				return dlg.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", func() error {
				return opts.UnknownText(c)
			})
		}
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
