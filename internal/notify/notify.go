// Package notify sends scheduled price broadcasts and per-user profit alerts.
package notify

import (
	"context"
	"fmt"
)

// Messenger delivers one Markdown message to one chat.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// DeliveryError records a failed send to one recipient.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: deliver to %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Stats summarizes one job run.
type Stats struct {
	Recipients int
	Delivered  int
	Failed     int
	// Skipped is set when no quote was available and nothing was sent.
	Skipped bool
}
