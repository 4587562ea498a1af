// Package logger provides structured logging utilities
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level is log severity, ordered from Debug up
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`       // debug, info, warn, error, fatal
	Format     string `yaml:"format"`      // text or json
	Output     string `yaml:"output"`      // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format"` // RFC3339, RFC3339Nano, etc
}

type state struct {
	mu      sync.Mutex
	min     Level
	jsonFmt bool
	tsFmt   string
	out     io.Writer
	errOut  io.Writer
	exit    func(int)
}

var std = &state{
	min:    LevelInfo,
	tsFmt:  time.RFC3339,
	out:    os.Stdout,
	errOut: os.Stderr,
	exit:   os.Exit,
}

// Init applies configuration to the package-level logger
func Init(cfg Config) {
	std.mu.Lock()
	defer std.mu.Unlock()

	std.min = parseLevel(cfg.Level)
	std.jsonFmt = strings.EqualFold(strings.TrimSpace(cfg.Format), "json")
	if tf := strings.TrimSpace(cfg.TimeFormat); tf != "" {
		std.tsFmt = tf
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		std.out, std.errOut = os.Stdout, os.Stderr
	case "stderr":
		std.out, std.errOut = os.Stderr, os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			std.out, std.errOut = os.Stdout, os.Stderr
			fmt.Fprintf(std.errOut, "logger: cannot open %s: %v\n", cfg.Output, err)
			return
		}
		std.out, std.errOut = f, f
	}
}

type entry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Protocol  string                 `json:"protocol,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// caller returns "file.go:line" for the log call site
func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func emit(level Level, msg string, fields map[string]interface{}) {
	std.mu.Lock()
	defer std.mu.Unlock()

	if level < std.min {
		return
	}

	e := entry{
		Timestamp: time.Now().Format(std.tsFmt),
		Level:     level.String(),
		Message:   msg,
		Caller:    caller(3),
		Fields:    fields,
	}
	if v, ok := fields["protocol"].(string); ok {
		e.Protocol = v
	}

	var line string
	if std.jsonFmt {
		if data, err := json.Marshal(e); err == nil {
			line = string(data)
		} else {
			line = fmt.Sprintf("%s [%s] %s", e.Timestamp, e.Level, e.Message)
		}
	} else {
		var b strings.Builder
		fmt.Fprintf(&b, "%s [%s] %s", e.Timestamp, e.Level, e.Message)
		if e.Caller != "" {
			fmt.Fprintf(&b, " (%s)", e.Caller)
		}
		if len(e.Fields) > 0 {
			fmt.Fprintf(&b, " %v", e.Fields)
		}
		line = b.String()
	}

	w := std.out
	if level >= LevelError {
		w = std.errOut
	}
	fmt.Fprintln(w, line)

	if level == LevelFatal {
		std.exit(1)
	}
}

// Debug logs a debug message (shown only when level=debug)
func Debug(msg string) { emit(LevelDebug, msg, nil) }

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) { emit(LevelDebug, fmt.Sprintf(format, args...), nil) }

// Info logs an info message
func Info(msg string) { emit(LevelInfo, msg, nil) }

// Infof logs a formatted info message
func Infof(format string, args ...interface{}) { emit(LevelInfo, fmt.Sprintf(format, args...), nil) }

// Warn logs a warning
func Warn(msg string) { emit(LevelWarn, msg, nil) }

// Warnf logs a formatted warning
func Warnf(format string, args ...interface{}) { emit(LevelWarn, fmt.Sprintf(format, args...), nil) }

// Error logs an error message
func Error(msg string) { emit(LevelError, msg, nil) }

// Errorf logs a formatted error message
func Errorf(format string, args ...interface{}) { emit(LevelError, fmt.Sprintf(format, args...), nil) }

// Fatal logs the message and terminates the process
func Fatal(msg string) { emit(LevelFatal, msg, nil) }

// Fatalf logs the formatted message and terminates the process
func Fatalf(format string, args ...interface{}) { emit(LevelFatal, fmt.Sprintf(format, args...), nil) }

// FieldLogger carries structured fields into a log call
type FieldLogger struct {
	fields map[string]interface{}
}

// WithFields attaches structured fields to the next log call
func WithFields(fields map[string]interface{}) *FieldLogger {
	return &FieldLogger{fields: fields}
}

func (l *FieldLogger) Info(msg string)  { emit(LevelInfo, msg, l.fields) }
func (l *FieldLogger) Warn(msg string)  { emit(LevelWarn, msg, l.fields) }
func (l *FieldLogger) Error(msg string) { emit(LevelError, msg, l.fields) }

// Protocol helpers used by the transport servers

// HTTP logs one served request
func HTTP(method, path string, status, latencyMs int) {
	WithFields(map[string]interface{}{
		"protocol": "http",
		"method":   method,
		"path":     path,
		"status":   status,
		"latency":  latencyMs,
	}).Info(fmt.Sprintf("HTTP %s %s %d - %dms", method, path, status, latencyMs))
}

// WebSocket logs a study-room event
func WebSocket(courseID, event, userID string) {
	WithFields(map[string]interface{}{
		"protocol":  "websocket",
		"course_id": courseID,
		"event":     event,
		"user_id":   userID,
	}).Info(fmt.Sprintf("WebSocket [%s] %s", courseID, event))
}

// TCP logs a processed engagement frame
func TCP(eventType, courseID string, count int) {
	WithFields(map[string]interface{}{
		"protocol":   "tcp",
		"event_type": eventType,
		"course_id":  courseID,
		"count":      count,
	}).Info(fmt.Sprintf("TCP %s (course:%s, count:%d)", eventType, courseID, count))
}

// UDP logs an announcement broadcast
func UDP(notificationType string, packetBytes int) {
	WithFields(map[string]interface{}{
		"protocol": "udp",
		"type":     notificationType,
		"bytes":    packetBytes,
	}).Info(fmt.Sprintf("UDP broadcast %s (%d bytes)", notificationType, packetBytes))
}

// Request tracing

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores a request tag for downstream log calls
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithRequestID pulls the request tag back out of the context
func WithRequestID(ctx context.Context) *FieldLogger {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return WithFields(map[string]interface{}{"request_id": id})
	}
	return WithFields(nil)
}
