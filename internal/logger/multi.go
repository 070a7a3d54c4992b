package logger

import "github.com/harrison/cognitive/internal/models"

// Leveled is the method set shared by ConsoleLogger, FileLogger and NoOpLogger.
type Leveled interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogResult(result *models.ProcessResult)
}

// MultiLogger fans every message out to a set of loggers.
type MultiLogger struct {
	loggers []Leveled
}

// NewMultiLogger returns a MultiLogger over the non-nil loggers given.
func NewMultiLogger(loggers ...Leveled) *MultiLogger {
	kept := make([]Leveled, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLogger{loggers: kept}
}

func (m *MultiLogger) LogTrace(message string) {
	for _, l := range m.loggers {
		l.LogTrace(message)
	}
}

func (m *MultiLogger) LogDebug(message string) {
	for _, l := range m.loggers {
		l.LogDebug(message)
	}
}

func (m *MultiLogger) LogInfo(message string) {
	for _, l := range m.loggers {
		l.LogInfo(message)
	}
}

func (m *MultiLogger) LogWarn(message string) {
	for _, l := range m.loggers {
		l.LogWarn(message)
	}
}

func (m *MultiLogger) LogError(message string) {
	for _, l := range m.loggers {
		l.LogError(message)
	}
}

func (m *MultiLogger) LogResult(result *models.ProcessResult) {
	for _, l := range m.loggers {
		l.LogResult(result)
	}
}
