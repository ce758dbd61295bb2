// Package mail composes outgoing messages. Delivery is simulated: messages
// are written to the log instead of an SMTP server.
package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/studymate/studymate/internal/sanitize"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender "delivers" messages by logging them.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender returns a Sender writing to log.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("simulated email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.HTML),
	)
	return nil
}

// ResetLink returns the absolute password-reset URL for token.
func ResetLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// PasswordReset builds the reset email for to containing link.
func PasswordReset(to, link string) Message {
	var b strings.Builder
	b.WriteString("<p>Hello ")
	b.WriteString(sanitize.Input(to))
	b.WriteString(",</p>\n<p>Someone asked to reset the StudyMate password for this address. ")
	b.WriteString("The link below is valid for one hour and can be used once:</p>\n")
	fmt.Fprintf(&b, "<p><a href=\"%[1]s\">%[1]s</a></p>\n", sanitize.Input(link))
	b.WriteString("<p>If this was not you, ignore this email.</p>\n")

	return Message{
		To:      to,
		Subject: "Reset your StudyMate password",
		HTML:    b.String(),
	}
}
