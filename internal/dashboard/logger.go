package dashboard

import (
	"go.uber.org/zap"
)

// schedulerLogger adapts zap to gocron's Logger interface.
type schedulerLogger struct {
	s *zap.SugaredLogger
}

func newSchedulerLogger(l *zap.Logger) schedulerLogger {
	return schedulerLogger{s: l.Named("scheduler").Sugar()}
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l schedulerLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
