package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/deliverydz/dispatch-api/internal/core/domain"
)

// LogNotifier writes notifications to the application log. It is the
// default driver when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyOrderCreated(_ context.Context, o domain.Order) error {
	ev := newOrderCreated(o)
	n.log.Info().
		Str("event", ev.Type).
		Str("order_id", o.ID).
		Str("customer", o.Name).
		Str("address", o.Address).
		Int("items", len(o.Cart)).
		Float64("total_price", o.TotalPrice).
		Msg("new order awaiting a delivery agent")
	return nil
}
