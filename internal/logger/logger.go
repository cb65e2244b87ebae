package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is a logging severity.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
}

const colorReset = "\033[0m"

// Logger writes leveled, colorized lines to the console and, optionally,
// an uncolored mirror to a log file.
type Logger struct {
	mu         sync.Mutex
	level      Level
	console    io.Writer
	file       io.Writer
	fileHandle *os.File
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init initializes the default logger at the given level, console only.
func Init(levelStr string) {
	once.Do(func() {
		defaultLogger = &Logger{level: parseLevel(levelStr), console: os.Stdout}
	})
}

// InitWithFile initializes the default logger with both console and file
// output. The log file is created under logDir with a timestamp-based
// name: YYYY-MM-DD_HH-MM-SS_TZ.log. Console output is colorized; the
// file mirror is not.
func InitWithFile(levelStr string, logDir string) error {
	level := parseLevel(levelStr)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now()
	zone, _ := now.Zone()
	filename := fmt.Sprintf("%s_%s.log", now.Format("2006-01-02_15-04-05"), zone)
	logPath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	once.Do(func() {
		defaultLogger = &Logger{level: level, console: os.Stdout, file: file, fileHandle: file}
	})

	if defaultLogger.file == nil {
		defaultLogger.mu.Lock()
		defaultLogger.file = file
		defaultLogger.fileHandle = file
		defaultLogger.level = level
		defaultLogger.mu.Unlock()
	}

	Info("log file: %s", logPath)
	return nil
}

// Close closes the mirrored log file, if one is open.
func Close() {
	if defaultLogger == nil || defaultLogger.fileHandle == nil {
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.fileHandle.Close()
	defaultLogger.fileHandle = nil
	defaultLogger.file = nil
}

// GetLogFilePath returns the path of the mirrored log file, or "" if
// file logging isn't active.
func GetLogFilePath() string {
	if defaultLogger != nil && defaultLogger.fileHandle != nil {
		return defaultLogger.fileHandle.Name()
	}
	return ""
}

func parseLevel(levelStr string) Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	message := fmt.Sprintf(format, args...)
	levelName := levelNames[level]

	if l.console != nil {
		consoleOutput := fmt.Sprintf("%s[%s]%s %s", levelColors[level], levelName, colorReset, message)
		log.New(l.console, "", log.LstdFlags).Println(consoleOutput)
	}

	if l.file != nil {
		log.New(l.file, "", log.LstdFlags).Println(fmt.Sprintf("[%s] %s", levelName, message))
	}
}

// Debug logs a debug-level message, used for per-execution tracing under
// --verbose.
func Debug(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(DEBUG, format, args...)
}

// Info logs an info-level message.
func Info(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(INFO, format, args...)
}

// Warn logs a warning-level message, for degraded-but-recoverable paths.
func Warn(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(WARN, format, args...)
}

// Error logs an error-level message.
func Error(format string, args ...interface{}) {
	if defaultLogger == nil {
		Init("info")
	}
	defaultLogger.log(ERROR, format, args...)
}
