// Package app assembles stores, price source, dialogue, jobs and Telegram routes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/goldbot/core/bootstrap"
	coreconfig "github.com/m3rciful/goldbot/core/config"
	"github.com/m3rciful/goldbot/core/logger"
	coretelegram "github.com/m3rciful/goldbot/core/telegram"
	"github.com/m3rciful/goldbot/core/telegram/helpers"
	"github.com/m3rciful/goldbot/core/telegram/router"
	"github.com/m3rciful/goldbot/core/telegram/sender"
	"github.com/m3rciful/goldbot/core/telegram/ui"
	"github.com/m3rciful/goldbot/internal/bot"
	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/notify"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/scheduler"
	"github.com/m3rciful/goldbot/internal/storage/memory"
	"github.com/m3rciful/goldbot/internal/storage/postgres"
	redisstore "github.com/m3rciful/goldbot/internal/storage/redis"

	tele "gopkg.in/telebot.v4"
)

const alertsJob = "alerts"

// App is the goldbot application.
type App struct {
	cfg      *coreconfig.Config
	infra    *bootstrap.Result
	catalog  pricing.Catalog
	prices   pricing.Source
	records  dialogue.RecordStore
	handlers *bot.Handlers
	sched    *scheduler.Scheduler
}

// New bootstraps infrastructure from cfg and builds the application.
func New(cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a, err := Build(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

// Build wires the application over already initialized infrastructure.
func Build(cfg *coreconfig.Config, infra *bootstrap.Result) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	cat := pricing.CatalogFromConfig(cfg.Catalog)
	mem := memory.New()

	var records dialogue.RecordStore = mem
	if cfg.Storage.Records == coreconfig.BackendPostgres {
		if infra.DB == nil {
			return nil, fmt.Errorf("app: postgres records selected but no database connection")
		}
		records = postgres.NewRecordStore(infra.DB)
	}
	var sessions dialogue.SessionStore = mem
	if cfg.Storage.Sessions == coreconfig.BackendRedis {
		if infra.Redis == nil {
			return nil, fmt.Errorf("app: redis sessions selected but no redis client")
		}
		sessions = redisstore.NewSessionStore(infra.Redis, cat, cfg.Dialogue.SessionTTL)
	}

	prices := pricing.NewSource(cfg.Pricing, cat)
	svc := dialogue.NewService(dialogue.Options{
		Catalog:    cat,
		Sessions:   sessions,
		Records:    records,
		Prices:     prices,
		Currency:   cfg.Pricing.Currency,
		StaleAfter: cfg.Dialogue.StaleAfter,
	})

	a := &App{
		cfg:     cfg,
		infra:   infra,
		catalog: cat,
		prices:  prices,
		records: records,
		sched:   scheduler.New(),
	}
	deps := bot.Deps{
		Catalog:    cat,
		Prices:     prices,
		Dialogue:   svc,
		Records:    records,
		Annotation: cfg.Broadcast.Annotation,
	}
	if cfg.Broadcast.Enabled {
		deps.Trigger = a.sched.Trigger
	}
	a.handlers = bot.New(deps)

	logger.LogEvent(context.Background(), logger.TWire, slog.LevelInfo, "app.wire",
		slog.String("records", cfg.Storage.Records),
		slog.String("sessions", cfg.Storage.Sessions),
		slog.String("provider", cfg.Pricing.Provider),
		slog.Int("grades", len(cat.Grades)),
		slog.Int("units", len(cat.Units)),
	)
	return a, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, rateLimited),
		Routes:      routes(a.cfg, reg, a.handlers, a.handlers),
		DispatcherOptions: sender.Options{
			QueueSize:  256,
			Workers:    4,
			MaxRetries: 3,
		},
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func routes(cfg *coreconfig.Config, reg *coretelegram.Registry, dlg router.Dialogue, fb ui.FallbackProvider) []coretelegram.Route {
	out := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: cfg.Telegram.AdminID,
		OnAdminReject: func(c tele.Context) error {
			return helpers.SendText(c, "This command is for the bot admin only.")
		},
	})
	out = append(out, router.CallbackRoute(reg, router.CallbackOptions{NotFound: fb.UnknownCallback()}))
	out = append(out, router.TextRoutes(dlg, reg, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	return out
}

func rateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Slow down a little"})
	}
	return nil
}

// start registers the jobs against the live bot and starts the scheduler.
func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	messenger := sender.NewBotMessenger(rt.Bot, sender.MessengerOptions{
		MaxRetries:   2,
		Backoff:      time.Second,
		MaxFloodWait: 30 * time.Second,
	})
	if err := a.addJobs(messenger); err != nil {
		return err
	}
	return a.sched.Start(ctx)
}

func (a *App) addJobs(messenger notify.Messenger) error {
	if a.cfg.Broadcast.Enabled {
		sched, err := scheduler.FromConfig(a.cfg.Broadcast.Schedule)
		if err != nil {
			return fmt.Errorf("app: broadcast schedule: %w", err)
		}
		b := notify.NewBroadcaster(a.prices, messenger, a.cfg.Broadcast.ChatIDs, a.cfg.Broadcast.Annotation, a.cfg.Broadcast.Concurrency)
		if err := a.sched.Add(bot.BroadcastJob, sched, b.Run, scheduler.JobOptions{RunOnStart: a.cfg.Broadcast.RunOnStart}); err != nil {
			return err
		}
	}
	if a.cfg.Alerts.Enabled {
		sched, err := scheduler.FromConfig(a.cfg.Alerts.Schedule)
		if err != nil {
			return fmt.Errorf("app: alerts schedule: %w", err)
		}
		sweeper := notify.NewAlertSweeper(a.records, a.prices, messenger, a.catalog, a.cfg.Alerts.Concurrency)
		if err := a.sched.Add(alertsJob, sched, sweeper.Run, scheduler.JobOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) stop(context.Context, coretelegram.Runtime) error {
	a.sched.Stop()
	return nil
}

// Close implements cmd.TelegramApp.
func (a *App) Close() error {
	a.sched.Stop()
	return a.infra.Close()
}
