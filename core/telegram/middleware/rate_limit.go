package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/goldbot/core/logger"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
// Each user may send Burst updates at once and one more per Interval.
type RateLimitOptions struct {
	Interval  time.Duration
	Burst     int
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

type userLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

type userLimiters struct {
	mu    sync.Mutex
	every rate.Limit
	burst int
	idle  time.Duration
	users map[int64]*userLimiter
	swept time.Time
}

func (l *userLimiters) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.swept) > l.idle {
		for id, u := range l.users {
			if now.Sub(u.seen) > l.idle {
				delete(l.users, id)
			}
		}
		l.swept = now
	}
	u, ok := l.users[userID]
	if !ok {
		u = &userLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.users[userID] = u
	}
	u.seen = now
	return u.lim.AllowN(now, 1)
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware drops updates from users who exceed their token bucket.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limiters := &userLimiters{
		every: rate.Every(opts.Interval),
		burst: opts.Burst,
		idle:  10 * opts.Interval,
		users: make(map[int64]*userLimiter),
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if limiters.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.TG.Warn("rate limit",
				slog.String("event", "tg.rate_limit"),
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Int64("user_id", user.ID),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
