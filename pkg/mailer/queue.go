package mailer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Publisher is the subset of helpers.RabbitPublisher used for queueing mail.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueMailer hands messages to the email worker through RabbitMQ instead of
// calling Mailgun inline.
type QueueMailer struct {
	pub Publisher
}

func NewQueueMailer(pub Publisher) *QueueMailer {
	return &QueueMailer{pub: pub}
}

func (q *QueueMailer) Send(ctx context.Context, to, subject, text, html string) error {
	job := EmailJob{To: to, Subject: subject, Text: text, HTML: html, Kind: KindFromContext(ctx)}
	if err := q.pub.PublishJSON(ctx, job); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// LogMailer only logs. It is used when MAIL_SEND_ENABLED=false or Mailgun is not configured.
type LogMailer struct {
	Logger *logrus.Logger
}

func (l LogMailer) Send(ctx context.Context, to, subject, _, html string) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
			"kind":    KindFromContext(ctx),
			"bytes":   len(html),
		}).Info("email sending disabled; message dropped")
	}
	return nil
}

type kindKey struct{}

// WithKind tags ctx with a message kind so queued jobs and logs can be told apart.
func WithKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, kindKey{}, kind)
}

func KindFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(kindKey{}).(string); ok {
		return v
	}
	return ""
}

var (
	_ Sender = (*QueueMailer)(nil)
	_ Sender = LogMailer{}
)
