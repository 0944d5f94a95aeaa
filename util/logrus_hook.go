package util

import (
	"github.com/sirupsen/logrus"
)

// Notifier receives error level log entries for external reporting.
type Notifier interface {
	Notice(entry *logrus.Entry)
}

type Hook struct {
	N Notifier
}

var levels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}

func (h *Hook) Levels() []logrus.Level {
	return levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	h.N.Notice(entry)
	return nil
}
