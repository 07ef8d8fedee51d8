package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"go.uber.org/zap"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier mails failure notices to a fixed operations address.
type SMTPNotifier struct {
	host   string
	port   int
	from   string
	to     []string
	send   sendFunc
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, to []string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, to: to, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, notice entity.FailureNotice) (bool, error) {
	if n.host == "" || len(n.to) == 0 {
		return false, nil
	}
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	body := strings.ReplaceAll(notice.Body(), "\n", "\r\n")
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, strings.Join(n.to, ", "), notice.Subject(), body,
	)

	if err := n.send(addr, nil, n.from, n.to, []byte(msg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.Strings("to", n.to),
			zap.Int64("video_id", notice.VideoID),
			zap.Error(err),
		)
		return false, fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.Strings("to", n.to),
		zap.Int64("video_id", notice.VideoID),
	)
	return true, nil
}
