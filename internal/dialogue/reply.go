package dialogue

import (
	"fmt"

	"github.com/m3rciful/goldbot/core/telegram/format"
	"github.com/m3rciful/goldbot/internal/pricing"
)

// Prompt tells the transport which buttons to attach to a reply.
type Prompt int

const (
	PromptNone Prompt = iota
	PromptGrade
	PromptUnit
	PromptAmount
)

// Option is one selectable choice.
type Option struct {
	Value string
	Label string
}

// Reply is what the user should see next. Text is Markdown.
type Reply struct {
	Text    string
	Prompt  Prompt
	Options []Option
}

// Cancelable reports whether the reply asks for more input.
func (r Reply) Cancelable() bool { return r.Prompt != PromptNone }

const (
	textRetry     = "⚠️ Something went wrong while saving your answers. Please start again with /profit."
	textExpired   = "⌛ Your previous calculation expired. Start a new one with /profit."
	textCancelled = "❌ Calculation cancelled."
	textNoSession = "There is nothing to cancel."
	textWrongStep = "That button is no longer active."
)

var reasonText = map[Reason]string{
	ReasonUnknownGrade:       "Please pick one of the grades below.",
	ReasonUnknownUnit:        "Please pick one of the units below.",
	ReasonNotNumber:          "That is not a number.",
	ReasonNotPositive:        "The number must be greater than zero.",
	ReasonMultipleSeparators: "Use a single decimal separator, for example `2.5`.",
	ReasonWrongStage:         textWrongStep,
	ReasonTooPrecise:         "Use at most 8 decimal places.",
	ReasonTooLarge:           "That number is too large.",
}

func gradeOptions(cat pricing.Catalog) []Option {
	out := make([]Option, 0, len(cat.Grades))
	for _, g := range cat.Grades {
		out = append(out, Option{Value: g.ID, Label: g.Label})
	}
	return out
}

func unitOptions(cat pricing.Catalog) []Option {
	out := make([]Option, 0, len(cat.Units))
	for _, u := range cat.Units {
		out = append(out, Option{Value: u.ID, Label: u.Label})
	}
	return out
}

func promptFor(cat pricing.Catalog, currency string, st Stage) Reply {
	switch st := st.(type) {
	case AwaitingGrade:
		return Reply{Text: "🪙 Which gold grade did you buy?", Prompt: PromptGrade, Options: gradeOptions(cat)}
	case AwaitingUnit:
		return Reply{
			Text:    fmt.Sprintf("*%s* selected. Which unit did you buy in?", format.Markdown(st.Grade.Label)),
			Prompt:  PromptUnit,
			Options: unitOptions(cat),
		}
	case AwaitingQuantity:
		return Reply{
			Text:   fmt.Sprintf("How many *%s* did you buy? Send a number, for example `10` or `2.5`.", format.Markdown(st.Unit.Label)),
			Prompt: PromptAmount,
		}
	case AwaitingTotal:
		return Reply{
			Text:   fmt.Sprintf("What was the total you paid for %s %s, in %s?", st.Quantity.String(), format.Markdown(st.Unit.Label), currency),
			Prompt: PromptAmount,
		}
	}
	return Reply{}
}

func repromptFor(cat pricing.Catalog, currency string, st Stage, reason Reason) Reply {
	r := promptFor(cat, currency, st)
	if msg, ok := reasonText[reason]; ok {
		r.Text = "⚠️ " + msg + "\n\n" + r.Text
	}
	return r
}
