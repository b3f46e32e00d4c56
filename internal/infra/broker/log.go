package broker

import (
	"context"

	"go.uber.org/zap"

	"github.com/mohangy/azii/internal/domain"
)

// LogNotifier writes notifications to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements port.Notifier. It never fails.
func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	fields := []zap.Field{
		zap.String("event", n.Event),
		zap.String("message", n.Message),
	}
	if n.Ref != "" {
		fields = append(fields, zap.String("ref", n.Ref))
	}
	if n.Count > 0 {
		fields = append(fields, zap.Int("count", n.Count))
	}

	if n.Level == domain.LevelError {
		l.logger.Warn("notification", fields...)
		return nil
	}
	l.logger.Info("notification", fields...)
	return nil
}
