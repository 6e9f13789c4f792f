package middleware

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/goldbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers update ids for a short window so an update routed
// through several wrapped branches is logged once.
type seenUpdates struct {
	mu      sync.Mutex
	ids     map[int]time.Time
	window  time.Duration
	swept   time.Time
	nowFunc func() time.Time
}

var receipts = &seenUpdates{ids: make(map[int]time.Time), window: 10 * time.Second, nowFunc: time.Now}

func (s *seenUpdates) first(id int) bool {
	now := s.nowFunc()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.swept) > s.window {
		for k, at := range s.ids {
			if now.Sub(at) > s.window {
				delete(s.ids, k)
			}
		}
		s.swept = now
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}

// LoggerMiddleware assigns the request id, stores the logging context and
// writes one sampled debug line per update. Free text is logged by shape
// only, since dialogue answers carry purchase amounts.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if !logger.ShouldSampleDebug() || !receipts.first(c.Update().ID) {
			return next(c)
		}

		o := tghelpers.OriginOf(c)
		attrs := []slog.Attr{
			slog.String("status", "ok"),
			slog.String("rid", tghelpers.RID(c)),
			slog.Int("update_id", o.UpdateID),
		}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.Int64("chat_id", o.ChatID), slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil {
			attrs = append(attrs, slog.Int64("user_id", o.UserID))
			if user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
		}

		switch upd := c.Update(); {
		case upd.Callback != nil:
			key, payload := callbacks.ParseCallbackData(upd.Callback)
			if key != "" {
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
			}
			if payload != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
			}
		case upd.Message != nil:
			if t := c.Text(); t != "" {
				if strings.HasPrefix(t, "/") {
					attrs = append(attrs, slog.String("command", logger.SanitizeLimit(strings.Fields(t)[0], 64)))
				} else {
					attrs = append(attrs, slog.Int("text_len", len([]rune(t))))
				}
			}
		}
		logger.LogEvent(ctx, logger.TG, slog.LevelDebug, "update.received", attrs...)
		return next(c)
	}
}
