package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR", FATAL: "FATAL"}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel accepts the level names case-insensitively. An empty string is INFO.
func ParseLevel(s string) (LogLevel, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return INFO, nil
	}
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

var levelColors = map[LogLevel]*color.Color{
	DEBUG: color.New(color.FgCyan, color.Bold),
	INFO:  color.New(color.FgGreen, color.Bold),
	WARN:  color.New(color.FgYellow, color.Bold),
	ERROR: color.New(color.FgRed, color.Bold),
	FATAL: color.New(color.FgRed, color.Bold),
}

// LogEntry is one line of the JSON log file.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

type Logger struct {
	mu       sync.Mutex
	terminal io.Writer
	file     io.WriteCloser
	encoder  *json.Encoder
	minLevel LogLevel
	colored  bool
}

// NewLogger writes colored lines to stdout and JSON lines to <dir>/<name>-<date>.log.
func NewLogger(dir, name string, level LogLevel) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	fileName := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	l := &Logger{
		terminal: os.Stdout,
		file:     file,
		encoder:  json.NewEncoder(file),
		minLevel: level,
		colored:  true,
	}
	l.Info("LOGGER", fmt.Sprintf("Logging %s and above to %s", level, fileName))
	return l, nil
}

// NewWriterLogger logs uncolored lines to w only. Used by tests and CLI tools.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{terminal: w, minLevel: DEBUG}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWriterLogger(io.Discard)
}

func (l *Logger) log(level LogLevel, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}

	now := time.Now().UTC()
	category = strings.ToUpper(category)

	clock := now.Format("15:04:05")
	levelStr := fmt.Sprintf("%-5s", level)
	categoryStr := fmt.Sprintf("[%-11s]", category)
	if l.colored {
		clock = color.New(color.FgBlue).Sprint(clock)
		levelStr = levelColors[level].Sprint(levelStr)
		categoryStr = levelColors[level].Sprint(categoryStr)
	}
	fmt.Fprintf(l.terminal, "%s %s %s %s\n", clock, levelStr, categoryStr, message)

	if l.encoder != nil {
		_ = l.encoder.Encode(LogEntry{
			Timestamp: now.Format("2006-01-02T15:04:05.000Z"),
			Level:     level.String(),
			Category:  category,
			Message:   message,
		})
	}
}

func (l *Logger) Debug(category, message string) {
	l.log(DEBUG, category, message)
}

func (l *Logger) Info(category, message string) {
	l.log(INFO, category, message)
}

func (l *Logger) Warn(category, message string) {
	l.log(WARN, category, message)
}

func (l *Logger) Error(category, message string) {
	l.log(ERROR, category, message)
}

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Component helpers keep categories and message shapes consistent.
func (l *Logger) LogReservation(action, reservationID, message string) {
	l.Info("RESERVATION", fmt.Sprintf("[%s] %s - %s", action, reservationID, message))
}

func (l *Logger) LogInventory(action, attractionID, date, message string) {
	l.Info("INVENTORY", fmt.Sprintf("[%s] %s/%s - %s", action, attractionID, date, message))
}

func (l *Logger) LogEngagement(action, attractionID, userID, message string) {
	l.Info("ENGAGEMENT", fmt.Sprintf("[%s] %s by %s - %s", action, attractionID, userID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l.file != nil {
		l.Info("LOGGER", "Closing log file")
		l.file.Close()
	}
}
