package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/core/telegram/format"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
	"github.com/m3rciful/goldbot/internal/report"
)

// RecordLister is the read side of the record store used by the sweep.
type RecordLister interface {
	ListRecords(ctx context.Context) ([]profit.PurchaseRecord, error)
}

// AlertSweeper sends every user with saved purchases their current profit.
type AlertSweeper struct {
	records     RecordLister
	prices      pricing.Source
	messenger   Messenger
	catalog     pricing.Catalog
	concurrency int
}

// NewAlertSweeper builds a sweeper; concurrency bounds parallel sends.
func NewAlertSweeper(records RecordLister, prices pricing.Source, messenger Messenger, cat pricing.Catalog, concurrency int) *AlertSweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AlertSweeper{records: records, prices: prices, messenger: messenger, catalog: cat, concurrency: concurrency}
}

// Run is the scheduler entry point.
func (a *AlertSweeper) Run(ctx context.Context) error {
	_, err := a.Sweep(ctx)
	return err
}

// Sweep values all records against one quote and sends one message per user.
// A failed delivery is counted and never stops the sweep.
func (a *AlertSweeper) Sweep(ctx context.Context) (Stats, error) {
	recs, err := a.records.ListRecords(ctx)
	if err != nil {
		return Stats{}, err
	}
	byUser := make(map[int64][]profit.PurchaseRecord)
	for _, rec := range recs {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}
	users := make([]int64, 0, len(byUser))
	for id := range byUser {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })

	stats := Stats{Recipients: len(users)}
	if len(users) == 0 {
		return stats, nil
	}

	q, err := a.prices.Fetch(ctx)
	if err != nil {
		stats.Skipped = true
		logger.LogEvent(ctx, logger.Notify, slog.LevelWarn, "alerts.skip",
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
			slog.Int("recipients", stats.Recipients),
		)
		return stats, nil
	}

	var delivered, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, userID := range users {
		text := RenderHoldings(a.catalog, byUser[userID], q)
		g.Go(func() error {
			if err := a.messenger.Send(gctx, userID, text); err != nil {
				failed.Add(1)
				derr := &DeliveryError{ChatID: userID, Err: err}
				logger.LogEvent(gctx, logger.Notify, slog.LevelWarn, "alerts.deliver",
					slog.Int64("user_id", userID),
					slog.String("status", "fail"),
					slog.String("err", derr.Error()),
				)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	stats.Delivered = int(delivered.Load())
	stats.Failed = int(failed.Load())
	logger.LogEvent(ctx, logger.Notify, slog.LevelInfo, "alerts.done",
		slog.Int("recipients", stats.Recipients),
		slog.Int("records", len(recs)),
		slog.Int("delivered", stats.Delivered),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

// RenderHoldings values a user's records against q. Records the quote cannot
// price are listed as unavailable.
func RenderHoldings(cat pricing.Catalog, recs []profit.PurchaseRecord, q pricing.Quote) string {
	blocks := make([]string, 0, len(recs))
	for _, rec := range recs {
		gradeLabel, unitLabel := rec.Grade, rec.Unit
		if g, ok := cat.Grade(rec.Grade); ok {
			gradeLabel = g.Label
		}
		if u, ok := cat.Unit(rec.Unit); ok {
			unitLabel = u.Label
		}
		res, err := profit.Compute(rec, q)
		if err != nil {
			blocks = append(blocks, "*"+format.Markdown(gradeLabel)+"*: "+report.Unavailable())
			continue
		}
		blocks = append(blocks, report.FormatProfit(res, gradeLabel, unitLabel))
	}
	return report.FormatHoldings(blocks)
}
