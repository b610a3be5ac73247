package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"error", ErrorLevel},
		{"invalid", InfoLevel}, // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFieldConstructors(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		f := String("key", "value")
		if f.Key != "key" || f.Value != "value" {
			t.Errorf("String() = %+v, want {Key:key Value:value}", f)
		}
	})

	t.Run("Int", func(t *testing.T) {
		f := Int("count", 42)
		if f.Key != "count" || f.Value != 42 {
			t.Errorf("Int() = %+v, want {Key:count Value:42}", f)
		}
	})

	t.Run("Float64", func(t *testing.T) {
		f := Float64("ratio", 3.14)
		if f.Key != "ratio" || f.Value != 3.14 {
			t.Errorf("Float64() = %+v", f)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		f := Bool("enabled", true)
		if f.Key != "enabled" || f.Value != true {
			t.Errorf("Bool() = %+v", f)
		}
	})

	t.Run("Duration", func(t *testing.T) {
		d := 5 * time.Second
		f := Duration("timeout", d)
		if f.Key != "timeout" || f.Value != "5s" {
			t.Errorf("Duration() = %+v", f)
		}
	})

	t.Run("Error", func(t *testing.T) {
		err := errors.New("test error")
		f := Error(err)
		if f.Key != "error" || f.Value != "test error" {
			t.Errorf("Error() = %+v", f)
		}
	})

	t.Run("Error_nil", func(t *testing.T) {
		f := Error(nil)
		if f.Key != "error" || f.Value != nil {
			t.Errorf("Error(nil) = %+v", f)
		}
	})

	t.Run("Any", func(t *testing.T) {
		data := map[string]int{"a": 1, "b": 2}
		f := Any("data", data)
		if f.Key != "data" {
			t.Errorf("Any() key = %v, want data", f.Key)
		}
	})
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("test message", String("key", "value"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "test message" {
		t.Errorf("Message = %v, want 'test message'", entry.Message)
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("Fields[key] = %v, want 'value'", entry.Fields["key"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel Level
		logFunc  func(Logger)
		expected string
	}{
		{
			name:     "Debug",
			logLevel: DebugLevel,
			logFunc:  func(l Logger) { l.Debug("debug msg") },
			expected: "DEBUG",
		},
		{
			name:     "Info",
			logLevel: InfoLevel,
			logFunc:  func(l Logger) { l.Info("info msg") },
			expected: "INFO",
		},
		{
			name:     "Warn",
			logLevel: WarnLevel,
			logFunc:  func(l Logger) { l.Warn("warn msg") },
			expected: "WARN",
		},
		{
			name:     "Error",
			logLevel: ErrorLevel,
			logFunc:  func(l Logger) { l.Error("error msg") },
			expected: "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, DebugLevel)

			tt.logFunc(logger)

			var entry LogEntry
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if entry.Level != tt.expected {
				t.Errorf("Level = %v, want %v", entry.Level, tt.expected)
			}
		})
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	// These should not be logged
	logger.Debug("debug message")
	logger.Info("info message")

	// These should be logged
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")

	// Should only have 2 log entries (WARN and ERROR)
	if len(lines) != 2 {
		t.Errorf("Expected 2 log entries, got %d", len(lines))
	}

	// Verify WARN entry
	var warnEntry LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &warnEntry); err != nil {
		t.Fatalf("Failed to unmarshal WARN entry: %v", err)
	}
	if warnEntry.Level != "WARN" {
		t.Errorf("First entry level = %v, want WARN", warnEntry.Level)
	}

	// Verify ERROR entry
	var errorEntry LogEntry
	if err := json.Unmarshal([]byte(lines[1]), &errorEntry); err != nil {
		t.Fatalf("Failed to unmarshal ERROR entry: %v", err)
	}
	if errorEntry.Level != "ERROR" {
		t.Errorf("Second entry level = %v, want ERROR", errorEntry.Level)
	}
}

func TestJSONLogger_MultipleFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("test",
		String("str", "hello"),
		Int("num", 42),
		Bool("flag", true),
	)

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if entry.Fields["str"] != "hello" {
		t.Errorf("str field = %v, want hello", entry.Fields["str"])
	}
	if entry.Fields["num"] != float64(42) { // JSON unmarshals numbers as float64
		t.Errorf("num field = %v, want 42", entry.Fields["num"])
	}
	if entry.Fields["flag"] != true {
		t.Errorf("flag field = %v, want true", entry.Fields["flag"])
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	// Create child logger with preset fields
	childLogger := logger.With(
		Component("reconcile"),
		String("version", "1.0"),
	)

	// Log with additional fields
	childLogger.Info("test message", Key("A1.body"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	// Check preset fields
	if entry.Fields["component"] != "reconcile" {
		t.Errorf("component field = %v, want reconcile", entry.Fields["component"])
	}
	if entry.Fields["version"] != "1.0" {
		t.Errorf("version field = %v, want 1.0", entry.Fields["version"])
	}

	// Check additional field
	if entry.Fields["key"] != "A1.body" {
		t.Errorf("key field = %v, want A1.body", entry.Fields["key"])
	}
}

func TestJSONLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	if logger.GetLevel() != InfoLevel {
		t.Errorf("Initial level = %v, want InfoLevel", logger.GetLevel())
	}

	logger.SetLevel(ErrorLevel)

	if logger.GetLevel() != ErrorLevel {
		t.Errorf("After SetLevel, level = %v, want ErrorLevel", logger.GetLevel())
	}

	// Debug and Info should not be logged
	logger.Debug("debug")
	logger.Info("info")

	if buf.Len() != 0 {
		t.Error("Expected no output for Debug/Info at ErrorLevel")
	}

	// Error should be logged
	logger.Error("error")

	if buf.Len() == 0 {
		t.Error("Expected output for Error at ErrorLevel")
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("message without fields")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	// When no fields are present, the fields key should be omitted
	if _, exists := entry["fields"]; exists {
		t.Error("Expected fields key to be omitted when empty")
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("benchmark message",
			String("key1", "value1"),
			Int("key2", 42),
		)
	}
}

func BenchmarkJSONLogger_InfoFiltered(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// This should be filtered out (not logged)
		logger.Info("benchmark message",
			String("key1", "value1"),
			Int("key2", 42),
		)
	}
}

func TestTextLogger_Line(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, InfoLevel)

	logger.Warn("duplicate key", Collection("blocks"), Key("A1"), String("note", "first wins"))

	got := buf.String()
	want := "WARN  duplicate key collection=blocks key=A1 note=\"first wins\"\n"
	if got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestTextLogger_WithAndFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, InfoLevel)
	child := logger.With(Kind("memory"))

	child.Debug("hidden")
	child.Info("inserting new element", Key("loc.A1"), Int("n", 3))

	got := buf.String()
	want := "INFO  inserting new element kind=memory key=loc.A1 n=3\n"
	if got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestNew_SelectsFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := New(FormatJSON, &buf, InfoLevel).(*JSONLogger); !ok {
		t.Error("New(json) should return a JSONLogger")
	}
	if _, ok := New(FormatText, &buf, InfoLevel).(*TextLogger); !ok {
		t.Error("New(text) should return a TextLogger")
	}
	if _, ok := New("bogus", &buf, InfoLevel).(*TextLogger); !ok {
		t.Error("New(unknown) should fall back to a TextLogger")
	}
}

func TestCaptureLogger(t *testing.T) {
	c := NewCaptureLogger()
	child := c.With(Collection("blocks"))

	child.Warn("duplicate key", Key("X"))
	c.Info("done")

	if got := c.CountLevel(WarnLevel); got != 1 {
		t.Errorf("CountLevel(Warn) = %d, want 1", got)
	}
	m := c.Matching(WarnLevel, "duplicate key")
	if len(m) != 1 {
		t.Fatalf("Matching() = %d entries, want 1", len(m))
	}
	if m[0].Fields["collection"] != "blocks" || m[0].Fields["key"] != "X" {
		t.Errorf("fields = %v", m[0].Fields)
	}
	if len(c.Entries()) != 2 {
		t.Errorf("Entries() = %d, want 2", len(c.Entries()))
	}
}

func TestStartTimer(t *testing.T) {
	c := NewCaptureLogger()
	timer := StartTimer(c, "merge collection", Collection("memories"))
	time.Sleep(time.Millisecond)
	if d := timer.End(Count(4)); d <= 0 {
		t.Errorf("End() duration = %v, want > 0", d)
	}

	entries := c.Matching(InfoLevel, "merge collection")
	if len(entries) != 1 {
		t.Fatalf("expected one timed entry, got %d", len(entries))
	}
	f := entries[0].Fields
	if f["collection"] != "memories" || f["count"] != 4 {
		t.Errorf("fields = %v", f)
	}
	if _, ok := f["latency"]; !ok {
		t.Error("latency field missing")
	}

	timer.EndError(errors.New("boom"))
	if got := c.CountLevel(ErrorLevel); got != 1 {
		t.Errorf("EndError should log one error, got %d", got)
	}
}

func TestDomainFields(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value string
	}{
		{Kind("sensor"), "kind", "sensor"},
		{Key("A1.body"), "key", "A1.body"},
		{SystemName("IB7"), "system_name", "IB7"},
		{Collection("blocks"), "collection", "blocks"},
		{Panel("3H layout"), "panel", "3H layout"},
		{Ident("TS12"), "ident", "TS12"},
		{RunID("abc"), "run_id", "abc"},
		{Path("/tmp/x.xml"), "path", "/tmp/x.xml"},
	}
	for _, tt := range tests {
		if tt.field.Key != tt.key || tt.field.Value != tt.value {
			t.Errorf("field = %+v, want {%s %s}", tt.field, tt.key, tt.value)
		}
	}
}
