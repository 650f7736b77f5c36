package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSNotificationSink publishes notifications to a NATS subject, where an
// external mailer worker picks them up.
type NATSNotificationSink struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSNotificationSink constructs a NATS-backed sink.
func NewNATSNotificationSink(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSNotificationSink {
	if subject == "" {
		subject = "formgate.notifications"
	}
	return &NATSNotificationSink{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_sink").Logger(),
	}
}

// Send publishes the notification payload.
func (n *NATSNotificationSink) Send(_ context.Context, notification Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	n.logger.Debug().Str("subject", n.subject).Str("to", notification.To).Msg("notification published")
	return nil
}
