package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// New builds a logger for the given output format. Unknown formats fall back to text.
func New(format Format, writer io.Writer, level Level) Logger {
	if format == FormatJSON {
		return NewJSONLogger(writer, level)
	}
	return NewTextLogger(writer, level)
}

// NewJSONLogger creates a new JSON logger
func NewJSONLogger(writer io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		writer: writer,
		level:  level,
		fields: make([]Field, 0),
	}
}

// log is the internal logging method
func (l *JSONLogger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fieldMap := make(map[string]any)
	for _, f := range l.fields {
		fieldMap[f.Key] = f.Value
	}
	for _, f := range fields {
		fieldMap[f.Key] = f.Value
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}

	// Only include fields if there are any
	if len(fieldMap) > 0 {
		entry.Fields = fieldMap
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.writer, "[ERROR] Failed to marshal log entry: %v\n", err)
		return
	}

	l.writer.Write(data)
	l.writer.Write([]byte("\n"))
}

// Debug logs a debug-level message
func (l *JSONLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info-level message
func (l *JSONLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning-level message
func (l *JSONLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error-level message
func (l *JSONLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// With creates a child logger with the given fields pre-set
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &JSONLogger{
		writer: l.writer,
		level:  l.level,
		fields: newFields,
	}
}

// SetLevel sets the minimum log level
func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// NewTextLogger creates a logger writing "LEVEL message key=value ..." lines.
func NewTextLogger(writer io.Writer, level Level) *TextLogger {
	return &TextLogger{
		writer: writer,
		level:  level,
		fields: make([]Field, 0),
		mu:     &sync.Mutex{},
	}
}

func (l *TextLogger) log(level Level, msg string, fields ...Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-5s %s", level.String(), msg)
	for _, f := range l.fields {
		writeTextField(&sb, f)
	}
	for _, f := range fields {
		writeTextField(&sb, f)
	}
	sb.WriteByte('\n')
	io.WriteString(l.writer, sb.String())
}

func writeTextField(sb *strings.Builder, f Field) {
	var s string
	switch v := f.Value.(type) {
	case nil:
		s = "<nil>"
	case string:
		s = v
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
	default:
		s = fmt.Sprint(v)
	}
	fmt.Fprintf(sb, " %s=%s", f.Key, s)
}

// Debug logs a debug-level message
func (l *TextLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields...) }

// Info logs an info-level message
func (l *TextLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields...) }

// Warn logs a warning-level message
func (l *TextLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields...) }

// Error logs an error-level message
func (l *TextLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields...) }

// With creates a child logger sharing the writer and its lock.
func (l *TextLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	newFields := make([]Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	return &TextLogger{
		writer: l.writer,
		level:  l.level,
		fields: newFields,
		mu:     l.mu,
	}
}

// SetLevel sets the minimum log level
func (l *TextLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current log level
func (l *TextLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// StartTimer begins timing an operation
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		start:  time.Now(),
		fields: fields,
	}
}

// Elapsed returns the time since the timer started.
func (t *TimedOperation) Elapsed() time.Duration {
	return time.Since(t.start)
}

// End logs the operation with its duration
func (t *TimedOperation) End(extra ...Field) time.Duration {
	elapsed := time.Since(t.start)
	fields := append(append(t.fields[:len(t.fields):len(t.fields)], extra...), Latency(elapsed))
	t.logger.Info(t.msg, fields...)
	return elapsed
}

// EndError logs the operation as an error with its duration
func (t *TimedOperation) EndError(err error) time.Duration {
	elapsed := time.Since(t.start)
	t.logger.Error(t.msg, append(t.fields[:len(t.fields):len(t.fields)], Latency(elapsed), Error(err))...)
	return elapsed
}
