package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/goldbot/core/logger"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
	"github.com/m3rciful/goldbot/internal/report"
)

// Field names the stage a button press answers.
type Field string

const (
	FieldGrade Field = "grade"
	FieldUnit  Field = "unit"
)

// Options wires a Service.
type Options struct {
	Catalog  pricing.Catalog
	Sessions SessionStore
	Records  RecordStore
	Prices   pricing.Source
	// Currency is what users type totals in.
	Currency string
	// StaleAfter discards sessions idle for longer; 0 keeps them forever.
	StaleAfter time.Duration
	Now        func() time.Time
}

// Service runs dialogue transitions against the stores, one user at a time.
type Service struct {
	catalog      pricing.Catalog
	sessions     SessionStore
	records      RecordStore
	prices       pricing.Source
	currencyCode string
	staleAfter   time.Duration
	now          func() time.Time
	locks        *userLocks
}

// NewService builds a Service.
func NewService(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		catalog:      opts.Catalog,
		sessions:     opts.Sessions,
		records:      opts.Records,
		prices:       opts.Prices,
		currencyCode: opts.Currency,
		staleAfter:   opts.StaleAfter,
		now:          now,
		locks:        newUserLocks(),
	}
}

// Begin starts a fresh session, replacing any earlier one.
func (s *Service) Begin(ctx context.Context, userID int64) (Reply, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess := Start(userID, s.now())
	if err := s.sessions.Put(ctx, sess); err != nil {
		return Reply{Text: textRetry}, storageErr("put", err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.begin",
		slog.Int64("user_id", userID),
		slog.String("stage", sess.Stage.Name()),
	)
	return s.prompt(sess.Stage), nil
}

// Handle feeds free text to the user's session. handled is false when the
// user has no active session; the caller should fall through then.
func (s *Service) Handle(ctx context.Context, userID int64, input string) (reply Reply, handled bool, err error) {
	return s.advance(ctx, userID, input, "")
}

// Select answers a grade or unit button. A button from an earlier step
// re-prompts the current step instead of being read as text.
func (s *Service) Select(ctx context.Context, userID int64, field Field, value string) (Reply, bool, error) {
	want := stageGrade
	if field == FieldUnit {
		want = stageUnit
	}
	return s.advance(ctx, userID, value, want)
}

// Cancel drops the user's session. handled is false when there was none.
func (s *Service) Cancel(ctx context.Context, userID int64) (Reply, bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return Reply{Text: textRetry}, true, storageErr("get", err)
	}
	if !ok {
		return Reply{Text: textNoSession}, false, nil
	}
	sess = Cancel(sess, s.now())
	if err := s.sessions.Remove(ctx, userID); err != nil {
		return Reply{Text: textRetry}, true, storageErr("remove", err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.cancel",
		slog.Int64("user_id", userID),
		slog.String("status", "cancelled"),
		slog.String("stage", sess.Stage.Name()),
	)
	return Reply{Text: textCancelled}, true, nil
}

// Active reports whether the user has a session. Storage errors read as false.
func (s *Service) Active(ctx context.Context, userID int64) bool {
	_, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.active",
			slog.Int64("user_id", userID),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return false
	}
	return ok
}

func (s *Service) advance(ctx context.Context, userID int64, input, want string) (Reply, bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	sess, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return s.abandon(ctx, userID, "get", err)
	}
	if !ok {
		return Reply{}, false, nil
	}

	now := s.now()
	if sess.Stale(now, s.staleAfter) {
		if err := s.sessions.Remove(ctx, userID); err != nil {
			return s.abandon(ctx, userID, "remove", err)
		}
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.expired",
			slog.Int64("user_id", userID),
			slog.String("stage", sess.Stage.Name()),
			slog.Duration("idle", now.Sub(sess.UpdatedAt)),
		)
		return Reply{Text: textExpired}, true, nil
	}

	if want != "" && sess.Stage.Name() != want {
		return s.reprompt(ctx, sess, &InputError{Stage: sess.Stage.Name(), Reason: ReasonWrongStage, Input: input}), true, nil
	}

	next, err := Step(s.catalog, sess, input, now)
	var inErr *InputError
	if errors.As(err, &inErr) {
		return s.reprompt(ctx, sess, inErr), true, nil
	}
	if err != nil {
		return Reply{Text: textRetry}, true, err
	}

	if done, ok := next.Stage.(Complete); ok {
		return s.complete(ctx, done.Record)
	}
	if err := s.sessions.Put(ctx, next); err != nil {
		return s.abandon(ctx, userID, "put", err)
	}
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelDebug, "dialogue.step",
		slog.Int64("user_id", userID),
		slog.String("from", sess.Stage.Name()),
		slog.String("stage", next.Stage.Name()),
	)
	return s.prompt(next.Stage), true, nil
}

// complete persists the record first; a failed quote never loses it.
func (s *Service) complete(ctx context.Context, rec profit.PurchaseRecord) (Reply, bool, error) {
	if err := s.records.PutRecord(ctx, rec); err != nil {
		return s.abandon(ctx, rec.UserID, "put_record", err)
	}
	if err := s.sessions.Remove(ctx, rec.UserID); err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.complete",
			slog.Int64("user_id", rec.UserID),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	attrs := []slog.Attr{
		slog.Int64("user_id", rec.UserID),
		slog.String("grade", rec.Grade),
		slog.String("unit", rec.Unit),
	}
	saved := "✅ Purchase saved.\n\n"

	q, err := s.prices.Fetch(ctx)
	if err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.complete",
			append(attrs, slog.String("status", "degraded"), slog.String("err", err.Error()))...)
		return Reply{Text: saved + report.Unavailable()}, true, nil
	}
	res, err := profit.Compute(rec, q)
	if err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.complete",
			append(attrs, slog.String("status", "degraded"), slog.String("err", err.Error()))...)
		return Reply{Text: saved + report.Unavailable()}, true, nil
	}

	logger.LogEvent(ctx, logger.Dialogue, slog.LevelInfo, "dialogue.complete",
		append(attrs, slog.String("status", "ok"), slog.String("direction", string(res.Direction)))...)
	return Reply{Text: saved + report.FormatProfit(res, s.gradeLabel(rec.Grade), s.unitLabel(rec.Unit))}, true, nil
}

func (s *Service) abandon(ctx context.Context, userID int64, op string, cause error) (Reply, bool, error) {
	if err := s.sessions.Remove(ctx, userID); err != nil {
		logger.LogEvent(ctx, logger.Dialogue, slog.LevelWarn, "dialogue.abandon",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return Reply{Text: textRetry}, true, storageErr(op, cause)
}

func (s *Service) reprompt(ctx context.Context, sess Session, inErr *InputError) Reply {
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelDebug, "dialogue.step",
		slog.Int64("user_id", sess.UserID),
		slog.String("status", "reprompt"),
		slog.String("stage", inErr.Stage),
		slog.String("reason", string(inErr.Reason)),
	)
	return repromptFor(s.catalog, s.currency(), sess.Stage, inErr.Reason)
}

func (s *Service) prompt(st Stage) Reply {
	return promptFor(s.catalog, s.currency(), st)
}

func (s *Service) currency() string {
	if s.currencyCode == "" {
		return "USD"
	}
	return s.currencyCode
}

func (s *Service) gradeLabel(id string) string {
	if g, ok := s.catalog.Grade(id); ok {
		return g.Label
	}
	return id
}

func (s *Service) unitLabel(id string) string {
	if u, ok := s.catalog.Unit(id); ok {
		return u.Label
	}
	return id
}
