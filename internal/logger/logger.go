// Package logger provides a levelled, tagged logger that writes to a stdlib
// log.Logger or, when running under systemd, to the journal.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
)

// Identifier is the SYSLOG_IDENTIFIER attached to journal entries.
const Identifier = "peckboard"

type Logger struct {
	logger  *log.Logger
	level   LogLevel
	tag     string
	journal bool
}

func NewLogger(logger *log.Logger, level LogLevel) *Logger {
	return &Logger{
		logger: logger,
		level:  level,
		tag:    "",
	}
}

// NewSystemLogger logs to the systemd journal when it is reachable and to
// logger otherwise.
func NewSystemLogger(logger *log.Logger, level LogLevel) *Logger {
	l := NewLogger(logger, level)
	l.journal = journal.Enabled()
	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewLogger(log.New(io.Discard, "", 0), LogLevelNone)
}

// ParseLevel maps a level name to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "none", "off":
		return LogLevelNone, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarning, nil
	case "info", "":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// WithTag creates a new logger with a tag prefix
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{
		logger:  l.logger,
		level:   l.level,
		tag:     tag,
		journal: l.journal,
	}
}

func (l *Logger) formatMessage(level string, format string) string {
	if l.tag != "" {
		if level != "" {
			return "[" + l.tag + "] " + level + " " + format
		}
		return "[" + l.tag + "] " + format
	}
	if level != "" {
		return level + " " + format
	}
	return format
}

func (l *Logger) output(pri journal.Priority, level, format string, v ...interface{}) {
	msg := fmt.Sprintf(l.formatMessage(level, format), v...)
	if l.journal {
		err := journal.Send(msg, pri, map[string]string{"SYSLOG_IDENTIFIER": Identifier})
		if err == nil {
			return
		}
	}
	l.logger.Print(msg)
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.level >= LogLevelDebug {
		l.output(journal.PriDebug, "DEBUG:", format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	if l.level >= LogLevelInfo {
		l.output(journal.PriInfo, "", format, v...)
	}
}

// Printf is an alias for Infof for compatibility
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.level >= LogLevelWarning {
		l.output(journal.PriWarning, "WARN:", format, v...)
	}
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.level >= LogLevelError {
		l.output(journal.PriErr, "ERROR:", format, v...)
	}
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.output(journal.PriCrit, "FATAL:", format, v...)
	os.Exit(1)
}
