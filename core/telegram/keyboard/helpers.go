package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

const defaultCancelButtonText = "❌ Cancel"

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// Chunk splits a flat list of buttons into rows with up to n buttons per row.
func Chunk(buttons []InlineBtn, n int) [][]InlineBtn {
	if n < 1 {
		n = 1
	}
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}

// InlineButtonsNPerRow lays buttons out n per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	return InlineButtonsRows(Chunk(buttons, n)...)
}

// CancelButton returns the standard cancel button bound to the given callback key.
// An optional label overrides the default text.
func CancelButton(action string, label ...string) InlineBtn {
	text := defaultCancelButtonText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return InlineBtn{Text: text, Unique: action}
}

// ChoicesWithCancel lays out choice buttons n per row followed by a cancel row.
func ChoicesWithCancel(choices []InlineBtn, n int, cancelAction string) *tele.ReplyMarkup {
	rows := Chunk(choices, n)
	rows = append(rows, []InlineBtn{CancelButton(cancelAction)})
	return InlineButtonsRows(rows...)
}

// SingleCancelMarkup creates an inline keyboard with a single cancel button.
func SingleCancelMarkup(action string, label ...string) *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{CancelButton(action, label...)})
}
