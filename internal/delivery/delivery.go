// Package delivery abstracts message hand-off to channel providers. Real
// provider integrations are out of the engine's scope; senders here are
// best-effort stubs the service invokes fire-and-forget, so a slow or failing
// provider never blocks dispatch or affects the decision record.
package delivery

import (
	"context"
	"log"
	"time"

	"notifyd/internal/notification/domain"
)

// sendTimeout bounds a single async send.
const sendTimeout = 10 * time.Second

// Sender hands one message to the provider behind a channel.
type Sender interface {
	Send(ctx context.Context, ch domain.Channel, userID, message string) error
}

// LogSender is the default stub: it logs the hand-off and succeeds.
type LogSender struct{}

// Send logs the would-be delivery.
func (LogSender) Send(_ context.Context, ch domain.Channel, userID, message string) error {
	log.Printf("delivery: [%s] to %s: %s", ch, userID, message)
	return nil
}

// SendAsync runs Send in a goroutine with a bounded timeout so callers are
// never blocked. Errors are logged; sender may be nil (no-op).
func SendAsync(sender Sender, ch domain.Channel, userID, message string) {
	if sender == nil {
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := sender.Send(sendCtx, ch, userID, message); err != nil {
			log.Printf("delivery: send via %s failed: %v", ch, err)
		}
	}()
}
