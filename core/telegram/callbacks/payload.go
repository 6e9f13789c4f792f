package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data encodes a callback key and payload the way telebot does for inline buttons.
func Data(key, payload string) string {
	if payload == "" {
		return "\f" + key
	}
	return "\f" + key + "|" + payload
}

// ParseCallbackData returns the callback key and payload.
// telebot fills Unique for \f-prefixed data it has already split;
// otherwise Data still holds the raw \f<unique>|<payload> form.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(key), payload
}

// CallbackKey returns the key of the current callback update.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload of the current callback update.
func CallbackPayload(c tele.Context) string {
	_, p := ParseCallbackData(c.Callback())
	return p
}
