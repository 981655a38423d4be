package mailer

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Result is the outcome of an email delivery attempt. Failures are reported
// through the struct, never as an error, so delivery problems cannot break
// notification creation.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EmailNotifier sends an email copy of a notification
type EmailNotifier interface {
	SendNotificationEmail(toEmail, toName, title, message, notificationType string, data []byte) Result
}

// NopNotifier drops every email. Used by batch jobs and tests.
type NopNotifier struct{}

// SendNotificationEmail reports success without sending anything
func (NopNotifier) SendNotificationEmail(toEmail, toName, title, message, notificationType string, data []byte) Result {
	return Result{Success: true}
}

// SMTPNotifier implements EmailNotifier over SMTP
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

// NewSMTPNotifier creates a new SMTPNotifier
func NewSMTPNotifier(host string, port int, username, password, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger,
	}
}

// SendNotificationEmail delivers the notification as an email. Errors are
// logged and returned inside the Result.
func (n *SMTPNotifier) SendNotificationEmail(toEmail, toName, title, message, notificationType string, data []byte) Result {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetAddressHeader("To", toEmail, toName)
	m.SetHeader("Subject", title)
	m.SetHeader("X-Resonant-Notification-Type", notificationType)
	m.SetBody("text/plain", fmt.Sprintf("Hi %s,\n\n%s\n", toName, message))

	if err := n.dialer.DialAndSend(m); err != nil {
		n.logger.Warn("notification email delivery failed",
			zap.String("to", toEmail),
			zap.String("type", notificationType),
			zap.Error(err))
		return Result{Success: false, Error: err.Error()}
	}

	messageID := uuid.NewString()
	n.logger.Debug("notification email sent",
		zap.String("to", toEmail),
		zap.String("type", notificationType),
		zap.String("message_id", messageID))
	return Result{Success: true, MessageID: messageID}
}
