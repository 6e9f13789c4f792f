package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

const outboundKey = "outbound"

// Outbound tallies what a handler sent back for one update.
// Price refreshes edit the menu message, so edits are kept apart from sends.
type Outbound struct {
	mu       sync.Mutex
	Sent     int
	Edited   int
	Keyboard bool
}

func (o *Outbound) add(edit bool, opts []interface{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if edit {
		o.Edited++
	} else {
		o.Sent++
	}
	if withMarkup(opts) {
		o.Keyboard = true
	}
}

// Snapshot copies the counters.
func (o *Outbound) Snapshot() (sent, edited int, kb bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Sent, o.Edited, o.Keyboard
}

func withMarkup(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// countingContext records successful outbound calls into Outbound.
type countingContext struct {
	tele.Context
	out *Outbound
}

func (c countingContext) track(edit bool, opts []interface{}, err error) error {
	if err == nil {
		c.out.add(edit, opts)
	}
	return err
}

func (c countingContext) Send(what interface{}, opts ...interface{}) error {
	return c.track(false, opts, c.Context.Send(what, opts...))
}

func (c countingContext) Reply(what interface{}, opts ...interface{}) error {
	return c.track(false, opts, c.Context.Reply(what, opts...))
}

func (c countingContext) Edit(what interface{}, opts ...interface{}) error {
	return c.track(true, opts, c.Context.Edit(what, opts...))
}

// EditOrSend counts as an edit only when the update carries a callback message.
func (c countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	edit := c.Callback() != nil && c.Callback().Message != nil
	return c.track(edit, opts, c.Context.EditOrSend(what, opts...))
}

func (c countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	edit := c.Callback() != nil && c.Callback().Message != nil
	return c.track(edit, opts, c.Context.EditOrReply(what, opts...))
}

// MessageMetricsMiddleware attaches a fresh Outbound to every update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		out := &Outbound{}
		c.Set(outboundKey, out)
		return next(countingContext{Context: c, out: out})
	}
}

// OutboundFrom returns the counters attached by MessageMetricsMiddleware.
func OutboundFrom(c tele.Context) (*Outbound, bool) {
	out, ok := c.Get(outboundKey).(*Outbound)
	return out, ok && out != nil
}
