package log

import (
	"gopkg.in/Sirupsen/logrus.v0"
)

type Level uint32

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
)

func (lvl Level) logrus() logrus.Level {
	return logrus.Level(lvl)
}

func init() {
	// Module masks are the debug filter; logrus itself stays wide open.
	logrus.SetLevel(logrus.DebugLevel)
}
