package spdm

import "github.com/sirupsen/logrus"

// newLogger is the default session logger: quiet unless something is wrong.
// Callers wanting per-exchange tracing set Session.Log to their own logger
// at Debug level.
func newLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}
