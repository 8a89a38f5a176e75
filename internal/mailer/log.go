package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes confirmation emails to the logger instead of sending them.
type LogSender struct {
	renderer *Renderer
	logger   *zap.Logger
}

func NewLogSender(renderer *Renderer, logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{renderer: renderer, logger: logger.Named("mailer")}
}

func (s *LogSender) SendConfirmation(_ context.Context, c Confirmation) error {
	msg, err := s.renderer.Render(c)
	if err != nil {
		return err
	}
	s.logger.Info("confirmation email",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("link", msg.Link),
	)
	return nil
}
