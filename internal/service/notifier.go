package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/formgate/formgate/internal/models"
)

// Notification is a fully-formed message handed to a sink. Transport is a
// collaborator concern; this layer never speaks SMTP itself.
type Notification struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body,omitempty"`
}

// NotificationSink delivers a notification about a finalized submission.
// Sink failures are non-fatal to the submission itself.
type NotificationSink interface {
	Send(ctx context.Context, notification Notification) error
}

// NewSubmissionNotification renders the notification for a stored submission.
func NewSubmissionNotification(recipient string, submission models.ContactSubmission) Notification {
	text := fmt.Sprintf(
		"New contact submission %s\n\nFrom: %s <%s>\nSubject: %s\nSource: %s\n\n%s\n",
		submission.ReferenceID, submission.Name, submission.Email,
		submission.Subject, submission.Source, submission.Message,
	)
	html := fmt.Sprintf(
		"<p>New contact submission <strong>%s</strong></p><p>From: %s &lt;%s&gt;<br>Subject: %s</p><p>%s</p>",
		submission.ReferenceID, submission.Name, submission.Email,
		submission.Subject, submission.Message,
	)

	return Notification{
		To:       recipient,
		Subject:  fmt.Sprintf("[contact] %s", submission.Subject),
		TextBody: text,
		HTMLBody: html,
	}
}

// LogNotificationSink writes notifications to the log. Useful as the default
// sink in development and as a capturing stand-in for tests.
type LogNotificationSink struct {
	logger zerolog.Logger
}

// NewLogNotificationSink constructs a logging sink.
func NewLogNotificationSink(logger zerolog.Logger) *LogNotificationSink {
	return &LogNotificationSink{logger: logger.With().Str("component", "notification_sink").Logger()}
}

// Send logs the notification and reports success.
func (l *LogNotificationSink) Send(_ context.Context, notification Notification) error {
	l.logger.Info().
		Str("to", notification.To).
		Str("subject", notification.Subject).
		Msg("submission notification delivered to log sink")
	return nil
}
