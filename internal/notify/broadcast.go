package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/report"
)

// Broadcaster sends the current quote to a fixed audience.
type Broadcaster struct {
	prices      pricing.Source
	messenger   Messenger
	chats       []int64
	annotation  string
	concurrency int
	now         func() time.Time
}

// NewBroadcaster builds a broadcaster for chats. At most concurrency sends
// run at once; values below 1 mean one goroutine per chat.
func NewBroadcaster(prices pricing.Source, messenger Messenger, chats []int64, annotation string, concurrency int) *Broadcaster {
	if concurrency < 1 {
		concurrency = len(chats)
	}
	return &Broadcaster{
		prices:      prices,
		messenger:   messenger,
		chats:       chats,
		annotation:  annotation,
		concurrency: max(concurrency, 1),
		now:         time.Now,
	}
}

// Run is the scheduler entry point.
func (b *Broadcaster) Run(ctx context.Context) error {
	_, err := b.Broadcast(ctx)
	return err
}

// Broadcast fetches once and sends the same text to every chat. Sends run in
// parallel so a stalled chat does not hold up the others. Without a quote
// nothing is sent and the run is not an error.
func (b *Broadcaster) Broadcast(ctx context.Context) (Stats, error) {
	stats := Stats{Recipients: len(b.chats)}
	q, err := b.prices.Fetch(ctx)
	if err != nil {
		stats.Skipped = true
		logger.LogEvent(ctx, logger.Notify, slog.LevelWarn, "broadcast.skip",
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
			slog.Int("recipients", stats.Recipients),
		)
		return stats, nil
	}

	text := report.FormatQuote(q, b.now(), b.annotation)
	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)
	for _, chatID := range b.chats {
		g.Go(func() error {
			err := b.messenger.Send(ctx, chatID, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				errs = append(errs, &DeliveryError{ChatID: chatID, Err: err})
				logger.LogEvent(ctx, logger.Notify, slog.LevelWarn, "broadcast.deliver",
					slog.Int64("chat_id", chatID),
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return nil
			}
			stats.Delivered++
			return nil
		})
	}
	_ = g.Wait()

	logger.LogEvent(ctx, logger.Notify, slog.LevelInfo, "broadcast.done",
		slog.Int("recipients", stats.Recipients),
		slog.Int("delivered", stats.Delivered),
		slog.Int("failed", stats.Failed),
	)
	return stats, errors.Join(errs...)
}
