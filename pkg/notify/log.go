package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mscrnt/pcie_speed/pkg/logger"
)

// Log writes notifications as warning log entries
type Log struct {
	log *logrus.Logger
}

// NewLog returns a notifier writing to l, or the shared logger when nil.
func NewLog(l *logrus.Logger) *Log {
	if l == nil {
		l = logger.L()
	}
	return &Log{log: l}
}

// Name returns "log"
func (l *Log) Name() string { return "log" }

// Show logs the notification
func (l *Log) Show(_ context.Context, n Notification) error {
	l.log.WithFields(logrus.Fields{
		"attribution": n.Attribution,
		"title":       n.Title,
	}).Warn(n.Body)
	return nil
}
