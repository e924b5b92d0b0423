package notification

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

// AMQPDispatcher publishes appointment events to the agenda topic
// exchange. It satisfies the scheduling service's Dispatcher contract;
// the notify worker consumes the other end.
type AMQPDispatcher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

func NewAMQPDispatcher(url string, log zerolog.Logger) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, log: log}, nil
}

func (d *AMQPDispatcher) Dispatch(ctx context.Context, n *appointment.Notification, appt *appointment.Appointment) error {
	rk, err := RoutingKey(n.Kind)
	if err != nil {
		return err
	}
	body, err := json.Marshal(newEvent(n, appt))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := d.ch.PublishWithContext(ctx, Exchange, rk, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", rk, err)
	}

	d.log.Debug().
		Str("routing_key", rk).
		Str("notification_id", n.ID.String()).
		Msg("notification published")
	return nil
}

// Healthy reports whether the broker connection is still open. Readiness
// probes call it.
func (d *AMQPDispatcher) Healthy() bool {
	return d.conn != nil && !d.conn.IsClosed()
}

func (d *AMQPDispatcher) Close() error {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// LogDispatcher writes events to the log instead of a broker. Used when
// AMQP is not configured, mostly in development.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(_ context.Context, n *appointment.Notification, appt *appointment.Appointment) error {
	rk, err := RoutingKey(n.Kind)
	if err != nil {
		return err
	}
	d.log.Info().
		Str("routing_key", rk).
		Str("recipient", n.Recipient).
		Str("title", appt.Title).
		Time("start", appt.StartTime).
		Msg("notification (log only)")
	return nil
}
