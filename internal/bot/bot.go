// Package bot binds the price, profit and holdings features to Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/goldbot/core/logger"
	tg "github.com/m3rciful/goldbot/core/telegram"
	"github.com/m3rciful/goldbot/core/telegram/commands"
	"github.com/m3rciful/goldbot/core/telegram/helpers"
	"github.com/m3rciful/goldbot/internal/dialogue"
	"github.com/m3rciful/goldbot/internal/notify"
	"github.com/m3rciful/goldbot/internal/pricing"
	"github.com/m3rciful/goldbot/internal/profit"
	"github.com/m3rciful/goldbot/internal/report"

	tele "gopkg.in/telebot.v4"
)

// Callback keys carried in inline buttons.
const (
	CallbackPrice  = "price"
	CallbackProfit = "profit"
	CallbackGrade  = "grade"
	CallbackUnit   = "unit"
	CallbackCancel = "cancel"
)

// BroadcastJob is the scheduler job name /broadcast triggers.
const BroadcastJob = "broadcast"

// HoldingsStore lists a user's saved purchases.
type HoldingsStore interface {
	ListUserRecords(ctx context.Context, userID int64) ([]profit.PurchaseRecord, error)
}

// Deps wires Handlers.
type Deps struct {
	Catalog    pricing.Catalog
	Prices     pricing.Source
	Dialogue   *dialogue.Service
	Records    HoldingsStore
	Annotation string
	// Trigger runs a scheduler job immediately; nil disables /broadcast.
	Trigger func(job string) error
	Now     func() time.Time
}

// Handlers implements every command and callback of the bot.
type Handlers struct {
	catalog    pricing.Catalog
	prices     pricing.Source
	dialogue   *dialogue.Service
	records    HoldingsStore
	annotation string
	trigger    func(job string) error
	now        func() time.Time
}

// New builds Handlers.
func New(d Deps) *Handlers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		catalog:    d.Catalog,
		prices:     d.Prices,
		dialogue:   d.Dialogue,
		records:    d.Records,
		annotation: d.Annotation,
		trigger:    d.Trigger,
		now:        now,
	}
}

// Register adds commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: h.Start, Description: "Show the main menu", Aliases: []string{"menu"}}},
		{"/price", commands.Command{Handler: h.Price, Description: "Current gold prices", Aliases: []string{"prices"}}},
		{"/profit", commands.Command{Handler: h.Profit, Description: "Calculate profit on a purchase"}},
		{"/mygold", commands.Command{Handler: h.MyGold, Description: "Your saved purchases", Aliases: []string{"my gold"}}},
		{"/cancel", commands.Command{Handler: h.Cancel, Description: "Cancel the current calculation"}},
		{"/broadcast", commands.Command{Handler: h.Broadcast, Description: "Send the price broadcast now", AdminOnly: true}},
	}
	var errs []error
	for _, c := range cmds {
		if err := reg.RegisterCommand(c.name, c.cmd); err != nil {
			errs = append(errs, err)
		}
	}

	cbs := map[string]tele.HandlerFunc{
		CallbackPrice:  h.PriceCallback,
		CallbackProfit: h.Profit,
		CallbackGrade:  h.choice(dialogue.FieldGrade),
		CallbackUnit:   h.choice(dialogue.FieldUnit),
		CallbackCancel: h.Cancel,
	}
	for key, fn := range cbs {
		if err := reg.RegisterCallback(key, fn); err != nil {
			errs = append(errs, err)
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	return errors.Join(errs...)
}

// Start greets the user with the main menu.
func (h *Handlers) Start(c tele.Context) error {
	text := "👋 Welcome! I track gold prices and can tell you how your gold is doing.\n\n" +
		"Tap a button below or use /price, /profit and /mygold."
	return helpers.SendMD(c, text, mainMenu())
}

// Price sends a fresh quote with a refresh button.
func (h *Handlers) Price(c tele.Context) error {
	return helpers.SendMD(c, h.currentQuote(helpers.BuildContext(c)), refreshMarkup())
}

// PriceCallback refreshes the quote in the message that holds the button.
func (h *Handlers) PriceCallback(c tele.Context) error {
	return helpers.EditOrSendMD(c, h.currentQuote(helpers.BuildContext(c)), refreshMarkup())
}

// currentQuote renders the latest quote, or the unavailable notice when the
// source fails. The button stays so the user can retry.
func (h *Handlers) currentQuote(ctx context.Context) string {
	q, err := h.prices.Fetch(ctx)
	if err != nil {
		logger.LogEvent(ctx, logger.Pricing, slog.LevelWarn, "price.request",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return report.Unavailable()
	}
	return report.FormatQuote(q, h.now(), h.annotation)
}

// Profit starts a fresh profit dialogue, discarding any earlier one.
func (h *Handlers) Profit(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID, ok := senderID(c)
	if !ok {
		return skipAnonymous(ctx, "profit")
	}
	reply, err := h.dialogue.Begin(ctx, userID)
	if sendErr := h.sendReply(c, reply); sendErr != nil {
		return sendErr
	}
	return err
}

// Cancel ends the user's dialogue.
func (h *Handlers) Cancel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID, ok := senderID(c)
	if !ok {
		return skipAnonymous(ctx, "cancel")
	}
	reply, _, err := h.dialogue.Cancel(ctx, userID)
	if sendErr := h.sendReply(c, reply); sendErr != nil {
		return sendErr
	}
	return err
}

func (h *Handlers) choice(field dialogue.Field) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.BuildContext(c)
		userID, ok := senderID(c)
		if !ok {
			return skipAnonymous(ctx, "choice")
		}
		reply, handled, err := h.dialogue.Select(ctx, userID, field, callbackPayload(c))
		if !handled {
			reply = dialogue.Reply{Text: "This calculation has ended. Start a new one with /profit."}
		}
		if sendErr := h.sendReply(c, reply); sendErr != nil {
			return sendErr
		}
		return err
	}
}

// Active implements router.Dialogue.
func (h *Handlers) Active(c tele.Context) bool {
	userID, ok := senderID(c)
	return ok && h.dialogue.Active(helpers.BuildContext(c), userID)
}

// HandleText implements router.Dialogue.
func (h *Handlers) HandleText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID, ok := senderID(c)
	if !ok {
		return h.UnknownText()(c)
	}
	reply, handled, err := h.dialogue.Handle(ctx, userID, c.Text())
	if !handled {
		return h.UnknownText()(c)
	}
	if sendErr := h.sendReply(c, reply); sendErr != nil {
		return sendErr
	}
	return err
}

// MyGold lists saved purchases valued at the current price.
func (h *Handlers) MyGold(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	userID, ok := senderID(c)
	if !ok {
		return skipAnonymous(ctx, "mygold")
	}
	recs, err := h.records.ListUserRecords(ctx, userID)
	if err != nil {
		_ = helpers.SendMD(c, "⚠️ Could not load your purchases. Please try again later.")
		return fmt.Errorf("list holdings: %w", err)
	}
	if len(recs) == 0 {
		return helpers.SendMD(c, report.FormatHoldings(nil))
	}
	q, err := h.prices.Fetch(ctx)
	if err != nil {
		return helpers.SendMD(c, report.Unavailable())
	}
	return helpers.SendMD(c, notify.RenderHoldings(h.catalog, recs, q))
}

// Broadcast asks the scheduler to run the broadcast job now.
func (h *Handlers) Broadcast(c tele.Context) error {
	if h.trigger == nil {
		return helpers.SendText(c, "Broadcast is disabled.")
	}
	if err := h.trigger(BroadcastJob); err != nil {
		_ = helpers.SendText(c, "Broadcast could not be started.")
		return err
	}
	return helpers.SendText(c, "📣 Broadcast started.")
}

// UnknownText implements ui.FallbackProvider.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendMD(c, "I did not understand that. Try /price or /profit.", mainMenu())
	}
}

// UnknownDocument implements ui.FallbackProvider.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, "I cannot read files. Try /price or /profit.")
	}
}

// UnknownCallback implements ui.FallbackProvider.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "This button has expired"})
	}
}

func (h *Handlers) sendReply(c tele.Context, reply dialogue.Reply) error {
	if reply.Text == "" {
		return nil
	}
	markup := replyMarkup(reply)
	if c.Callback() != nil {
		return helpers.EditOrSendMD(c, reply.Text, markup)
	}
	return helpers.SendMD(c, reply.Text, markup)
}

// senderID reports the user behind c. Updates without a sender (channel
// posts, anonymous admins) have no dialogue or records.
func senderID(c tele.Context) (int64, bool) {
	if u := c.Sender(); u != nil && u.ID != 0 {
		return u.ID, true
	}
	return 0, false
}

func skipAnonymous(ctx context.Context, handler string) error {
	logger.LogEvent(ctx, logger.Dialogue, slog.LevelDebug, "bot.sender.missing",
		slog.String("status", "skip"),
		slog.String("handler", handler),
	)
	return nil
}
