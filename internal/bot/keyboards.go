package bot

import (
	"github.com/m3rciful/goldbot/core/telegram/callbacks"
	"github.com/m3rciful/goldbot/core/telegram/keyboard"
	"github.com/m3rciful/goldbot/internal/dialogue"

	tele "gopkg.in/telebot.v4"
)

const choicesPerRow = 2

func mainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "💵 Gold price", Unique: CallbackPrice}},
		[]keyboard.InlineBtn{{Text: "📊 Calculate profit", Unique: CallbackProfit}},
	)
}

func refreshMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{{Text: "🔄 Refresh price", Unique: CallbackPrice}})
}

// replyMarkup turns a dialogue prompt into buttons. Free-text steps only get a cancel button.
func replyMarkup(r dialogue.Reply) *tele.ReplyMarkup {
	switch r.Prompt {
	case dialogue.PromptGrade:
		return keyboard.ChoicesWithCancel(optionButtons(CallbackGrade, r.Options), choicesPerRow, CallbackCancel)
	case dialogue.PromptUnit:
		return keyboard.ChoicesWithCancel(optionButtons(CallbackUnit, r.Options), choicesPerRow, CallbackCancel)
	case dialogue.PromptAmount:
		return keyboard.SingleCancelMarkup(CallbackCancel)
	}
	return nil
}

func optionButtons(unique string, opts []dialogue.Option) []keyboard.InlineBtn {
	btns := make([]keyboard.InlineBtn, 0, len(opts))
	for _, o := range opts {
		btns = append(btns, keyboard.InlineBtn{Text: o.Label, Unique: unique, Data: o.Value})
	}
	return btns
}

func callbackPayload(c tele.Context) string {
	return callbacks.CallbackPayload(c)
}
