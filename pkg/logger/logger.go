// Package logger provides structured logging utilities
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	LevelDebug LogLevel = "DEBUG"
	LevelInfo  LogLevel = "INFO"
	LevelWarn  LogLevel = "WARN"
	LevelError LogLevel = "ERROR"
	LevelFatal LogLevel = "FATAL"
)

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error, fatal
	Format     string `yaml:"format"`      // text or json
	Output     string `yaml:"output"`      // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format"` // RFC3339, RFC3339Nano, etc
}

var (
	currentLevel      = LevelInfo
	currentFormat     = "text"
	currentTimeFormat = time.RFC3339
	stdLog            = log.New(os.Stderr, "", 0)
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Init initializes the logger with configuration
func Init(cfg Config) {
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		currentLevel = LevelDebug
	case "warn":
		currentLevel = LevelWarn
	case "error":
		currentLevel = LevelError
	case "fatal":
		currentLevel = LevelFatal
	default:
		currentLevel = LevelInfo
	}

	if strings.ToLower(strings.TrimSpace(cfg.Format)) == "json" {
		currentFormat = "json"
	} else {
		currentFormat = "text"
	}

	if strings.TrimSpace(cfg.TimeFormat) != "" {
		currentTimeFormat = strings.TrimSpace(cfg.TimeFormat)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stderr":
		stdLog.SetOutput(os.Stderr)
	case "stdout":
		stdLog.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			stdLog.SetOutput(os.Stderr)
			stdLog.Printf("logger: failed to open log file %s: %v", cfg.Output, err)
		} else {
			stdLog.SetOutput(f)
		}
	}
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	File      string                 `json:"file,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func shouldLog(level LogLevel) bool {
	return levelRank[level] >= levelRank[currentLevel]
}

func logMessage(level LogLevel, msg string, fields map[string]interface{}) {
	if !shouldLog(level) {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		parts := strings.Split(file, "/")
		file = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(currentTimeFormat),
		Level:     string(level),
		Message:   msg,
		File:      file,
		Fields:    fields,
	}

	var output string
	if currentFormat == "json" {
		data, err := json.Marshal(entry)
		if err != nil {
			output = fmt.Sprintf("%s [%s] %s", entry.Timestamp, entry.Level, entry.Message)
		} else {
			output = string(data)
		}
	} else {
		output = fmt.Sprintf("%s [%s] %s", entry.Timestamp, entry.Level, entry.Message)
		if entry.File != "" {
			output += fmt.Sprintf(" (%s)", entry.File)
		}
		if len(entry.Fields) > 0 {
			output += fmt.Sprintf(" %v", entry.Fields)
		}
	}

	stdLog.Println(output)

	if level == LevelFatal {
		os.Exit(1)
	}
}

func Debug(msg string)                          { logMessage(LevelDebug, msg, nil) }
func Debugf(format string, args ...interface{}) { logMessage(LevelDebug, fmt.Sprintf(format, args...), nil) }
func Info(msg string)                           { logMessage(LevelInfo, msg, nil) }
func Infof(format string, args ...interface{})  { logMessage(LevelInfo, fmt.Sprintf(format, args...), nil) }
func Warn(msg string)                           { logMessage(LevelWarn, msg, nil) }
func Warnf(format string, args ...interface{})  { logMessage(LevelWarn, fmt.Sprintf(format, args...), nil) }
func Error(msg string)                          { logMessage(LevelError, msg, nil) }
func Errorf(format string, args ...interface{}) { logMessage(LevelError, fmt.Sprintf(format, args...), nil) }
func Fatal(msg string)                          { logMessage(LevelFatal, msg, nil) }
func Fatalf(format string, args ...interface{}) { logMessage(LevelFatal, fmt.Sprintf(format, args...), nil) }

// WithFields returns a log message with structured fields
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: fields}
}

// FieldLogger allows structured logging with fields
type FieldLogger struct {
	fields map[string]interface{}
}

func (l *FieldLogger) Debug(msg string) { logMessage(LevelDebug, msg, l.fields) }
func (l *FieldLogger) Info(msg string)  { logMessage(LevelInfo, msg, l.fields) }
func (l *FieldLogger) Warn(msg string)  { logMessage(LevelWarn, msg, l.fields) }
func (l *FieldLogger) Error(msg string) { logMessage(LevelError, msg, l.fields) }

// Channel logs chat channel lifecycle activity
func Channel(room string, event string, userID int64) {
	WithFields(map[string]interface{}{
		"protocol": "websocket",
		"room":     room,
		"event":    event,
		"user_id":  userID,
	}).Info(fmt.Sprintf("channel [%s] %s", room, event))
}

// Queue logs offline queue activity
func Queue(event string, count int) {
	WithFields(map[string]interface{}{
		"component": "message_queue",
		"event":     event,
		"count":     count,
	}).Info(fmt.Sprintf("queue %s (%d messages)", event, count))
}
