package repo

import (
	"context"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskr/internal/model"
)

// Mailer delivers password recovery links.
type Mailer interface {
	SendRecovery(ctx context.Context, user model.User, link string) error
}

// LogMailer writes recovery links to the log instead of sending mail.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendRecovery(ctx context.Context, user model.User, link string) error {
	m.logger.Info("password recovery requested",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.String("link", link),
	)
	return nil
}
