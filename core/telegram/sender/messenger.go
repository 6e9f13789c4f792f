package sender

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/core/netutil"

	tele "gopkg.in/telebot.v4"
)

// API is the slice of *tele.Bot used for synchronous delivery.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// BotMessenger delivers Markdown messages to chats synchronously so callers
// learn the outcome of every send. Flood-wait answers and transient network
// errors are retried up to MaxRetries times.
type BotMessenger struct {
	api        API
	maxRetries int
	backoff    time.Duration
	maxWait    time.Duration
}

// MessengerOptions tunes BotMessenger retries.
type MessengerOptions struct {
	MaxRetries int
	Backoff    time.Duration
	// MaxFloodWait caps how long a Telegram retry_after is honoured.
	MaxFloodWait time.Duration
}

// NewBotMessenger wraps api (usually *tele.Bot).
func NewBotMessenger(api API, opts MessengerOptions) *BotMessenger {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxFloodWait <= 0 {
		opts.MaxFloodWait = 30 * time.Second
	}
	return &BotMessenger{api: api, maxRetries: opts.MaxRetries, backoff: opts.Backoff, maxWait: opts.MaxFloodWait}
}

// Send delivers text to chatID using Markdown parse mode.
func (m *BotMessenger) Send(ctx context.Context, chatID int64, text string) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, DisableWebPagePreview: true}
	to := tele.ChatID(chatID)
	attempts := m.maxRetries + 1

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if _, err = m.api.Send(to, text, opts); err == nil {
			return nil
		}
		delay, retry := m.retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}
		logger.Debug(ctx, "tg.sender", "send.retry.backoff",
			slog.Int64("chat_id", chatID),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err", sanitizeErrorMessage(err)),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (m *BotMessenger) retryDelay(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		if wait > m.maxWait {
			return 0, false
		}
		return wait, true
	}
	if netutil.ShouldRetry(err) {
		return m.backoff * time.Duration(attempt), true
	}
	return 0, false
}
