package mail

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogNotifier records outgoing messages in the log instead of sending them.
// Used when SMTP is disabled, e.g. in development.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	n.log.WithFields(logrus.Fields{
		"to":         to,
		"subject":    subject,
		"body_bytes": len(htmlBody),
	}).Info("Mail delivery disabled, message not sent")
	return nil
}
