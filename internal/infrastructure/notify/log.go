package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/ports"
)

// LogNotifier writes messages to the log instead of delivering them. Meant for
// development; the body, which carries the code, is only logged at debug level.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Notify(_ context.Context, msg ports.Message) error {
	n.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("notification (not delivered)")
	n.log.Debug().
		Str("to", msg.To).
		Str("body", msg.Text).
		Msg("notification body")
	return nil
}
