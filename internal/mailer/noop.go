package mailer

import "go.uber.org/zap"

// NoopMailer logs instead of sending; used when SMTP is not configured
// (config.MailerEnabled() is false) so the Ticket Engine's reminder path
// never has to special-case a nil Mailer.
type NoopMailer struct {
	logger *zap.Logger
}

func NewNoopMailer(logger *zap.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

func (m *NoopMailer) Send(msg Message) error {
	m.logger.Info("mailer disabled, dropping message",
		zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
