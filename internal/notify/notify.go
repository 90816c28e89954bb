// Package notify delivers account e-mails by publishing them to the notification topic.
package notify

//go:generate mockgen -source=notify.go -destination=mocks/mock_mailer.go -package=mocks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Skotchmaster/school_backend/pkg/logging"
)

const (
	KindPasswordResetOTP = "password_reset_otp"
	KindWelcome          = "welcome"
)

type Mailer interface {
	SendPasswordResetOTP(ctx context.Context, to, otp string) error
	SendWelcomeEmail(ctx context.Context, to, name, tempPassword string) error
}

// Publisher is satisfied by *mykafka.Producer.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Email is the message the mail worker consumes from the notification topic.
type Email struct {
	Kind      string            `json:"kind"`
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	Template  string            `json:"template"`
	Data      map[string]string `json:"data"`
	CreatedAt time.Time         `json:"created_at"`
}

type KafkaMailer struct {
	pub   Publisher
	topic string
	now   func() time.Time
}

func NewKafkaMailer(pub Publisher, topic string) *KafkaMailer {
	return &KafkaMailer{pub: pub, topic: topic, now: time.Now}
}

func (m *KafkaMailer) SendPasswordResetOTP(ctx context.Context, to, otp string) error {
	return m.send(ctx, Email{
		Kind:     KindPasswordResetOTP,
		To:       to,
		Subject:  "Your password reset code",
		Template: "password-reset-otp",
		Data:     map[string]string{"otp": otp},
	})
}

func (m *KafkaMailer) SendWelcomeEmail(ctx context.Context, to, name, tempPassword string) error {
	return m.send(ctx, Email{
		Kind:     KindWelcome,
		To:       to,
		Subject:  "Welcome to the school portal",
		Template: "welcome",
		Data:     map[string]string{"name": name, "temporary_password": tempPassword},
	})
}

func (m *KafkaMailer) send(ctx context.Context, e Email) error {
	e.CreatedAt = m.now().UTC()
	if err := m.pub.PublishEvent(ctx, m.topic, e.To, e); err != nil {
		return fmt.Errorf("notify: %s to %s: %w", e.Kind, logging.RedactEmail(e.To), err)
	}
	logging.FromContext(ctx).Info("email queued",
		slog.String("kind", e.Kind),
		slog.String("to", logging.RedactEmail(e.To)),
	)
	return nil
}

// LogMailer only logs; it is used when no broker is configured.
type LogMailer struct{}

func (LogMailer) SendPasswordResetOTP(ctx context.Context, to, _ string) error {
	logging.FromContext(ctx).Warn("no mail transport, password reset code not delivered",
		slog.String("to", logging.RedactEmail(to)))
	return nil
}

func (LogMailer) SendWelcomeEmail(ctx context.Context, to, _, _ string) error {
	logging.FromContext(ctx).Warn("no mail transport, welcome email not delivered",
		slog.String("to", logging.RedactEmail(to)))
	return nil
}
