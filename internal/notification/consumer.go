package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/raoliompio2/Agenda-VIBROMAK-sub000/internal/appointment"
)

// StatusStore reports delivery outcomes back to the notifications table.
// The appointment repository satisfies it.
type StatusStore interface {
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status appointment.NotificationStatus, detail *string, sentAt *time.Time) error
}

// ConsumerConfig tunes the AMQP consumer. Queue binds to every
// appointment.* event on the agenda exchange.
type ConsumerConfig struct {
	URL      string
	Queue    string
	Prefetch int
	Timezone *time.Location
}

// Consumer drains appointment events, turns each into mail and records
// the delivery outcome. Runs inside the notify worker binary.
type Consumer struct {
	cfg    ConsumerConfig
	mailer Mailer
	store  StatusStore
	log    zerolog.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig, mailer Mailer, store StatusStore, log zerolog.Logger) *Consumer {
	if cfg.Queue == "" {
		cfg.Queue = "agenda.notifications.q"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	return &Consumer{cfg: cfg, mailer: mailer, store: store, log: log}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "appointment.*", Exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "notify-worker", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handleDelivery(ctx, d); err != nil {
				c.log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("handle delivery")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	ev, err := decodeEvent(d.Body)
	if err != nil {
		return err
	}

	subject, body := Compose(ev, c.cfg.Timezone)

	if err := c.mailer.Send(ev.Recipient, subject, body); err != nil {
		detail := err.Error()
		if uerr := c.store.UpdateNotificationStatus(ctx, ev.NotificationID, appointment.NotificationFailed, &detail, nil); uerr != nil {
			c.log.Error().Err(uerr).Str("notification_id", ev.NotificationID.String()).Msg("mark notification failed")
		}
		return err
	}

	now := time.Now()
	if err := c.store.UpdateNotificationStatus(ctx, ev.NotificationID, appointment.NotificationSent, nil, &now); err != nil {
		c.log.Error().Err(err).Str("notification_id", ev.NotificationID.String()).Msg("mark notification sent")
	}

	c.log.Info().
		Str("routing_key", d.RoutingKey).
		Str("recipient", ev.Recipient).
		Msg("notification delivered")
	return nil
}

// Compose builds the message for an event. Wording mirrors what the
// secretariat sends by hand today.
func Compose(ev Event, loc *time.Location) (subject, body string) {
	window := HumanTimeRange(ev.Start, ev.End, loc)

	switch ev.Kind {
	case string(appointment.NotificationNewRequest):
		subject = fmt.Sprintf("Nova solicitação de agendamento: %s", ev.Title)
		body = fmt.Sprintf("%s solicitou %q em %s.", ev.ClientName, ev.Title, window)
	case string(appointment.NotificationConfirmation):
		subject = fmt.Sprintf("Agendamento confirmado: %s", ev.Title)
		body = fmt.Sprintf("Olá %s, seu compromisso %q foi confirmado para %s.", ev.ClientName, ev.Title, window)
	case string(appointment.NotificationReminder):
		subject = fmt.Sprintf("Lembrete: %s", ev.Title)
		body = fmt.Sprintf("Olá %s, lembrete do compromisso %q em %s.", ev.ClientName, ev.Title, window)
	case string(appointment.NotificationCancellation):
		subject = fmt.Sprintf("Agendamento cancelado: %s", ev.Title)
		body = fmt.Sprintf("Olá %s, o compromisso %q de %s foi cancelado.", ev.ClientName, ev.Title, window)
	case string(appointment.NotificationRescheduled):
		subject = fmt.Sprintf("Agendamento remarcado: %s", ev.Title)
		body = fmt.Sprintf("Olá %s, o compromisso %q foi remarcado para %s.", ev.ClientName, ev.Title, window)
	default:
		subject = fmt.Sprintf("Atualização de agendamento: %s", ev.Title)
		body = fmt.Sprintf("O compromisso %q (%s) foi atualizado.", ev.Title, window)
	}

	if ev.Location != "" {
		body += fmt.Sprintf(" Local: %s.", ev.Location)
	}
	return subject, body
}
