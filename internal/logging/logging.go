// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds a logger writing to stderr, and additionally to a rotated log
// file when logFile is non-empty. Unknown level strings fall back to info.
func New(level, logFile string) *logrus.Logger {
	log := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	log.SetFormatter(&formatter.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		NoColors:        logFile != "",
	})

	writers := []io.Writer{os.Stderr}
	if logFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // MB
			MaxAge:     14, // days
			MaxBackups: 3,
			Compress:   true,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log
}
