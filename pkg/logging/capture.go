package logging

import "sync"

// CapturedEntry is one entry recorded by a CaptureLogger.
type CapturedEntry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

type captureStore struct {
	mu      sync.Mutex
	entries []CapturedEntry
}

// CaptureLogger records entries in memory. Children created by With share the record.
type CaptureLogger struct {
	store  *captureStore
	level  Level
	fields []Field
}

// NewCaptureLogger creates a recording logger at DebugLevel.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{store: &captureStore{}, level: DebugLevel}
}

func (c *CaptureLogger) log(level Level, msg string, fields ...Field) {
	if level < c.level {
		return
	}
	m := make(map[string]any, len(c.fields)+len(fields))
	for _, f := range c.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	c.store.mu.Lock()
	c.store.entries = append(c.store.entries, CapturedEntry{Level: level, Message: msg, Fields: m})
	c.store.mu.Unlock()
}

func (c *CaptureLogger) Debug(msg string, fields ...Field) { c.log(DebugLevel, msg, fields...) }
func (c *CaptureLogger) Info(msg string, fields ...Field)  { c.log(InfoLevel, msg, fields...) }
func (c *CaptureLogger) Warn(msg string, fields ...Field)  { c.log(WarnLevel, msg, fields...) }
func (c *CaptureLogger) Error(msg string, fields ...Field) { c.log(ErrorLevel, msg, fields...) }

func (c *CaptureLogger) With(fields ...Field) Logger {
	nf := make([]Field, len(c.fields)+len(fields))
	copy(nf, c.fields)
	copy(nf[len(c.fields):], fields)
	return &CaptureLogger{store: c.store, level: c.level, fields: nf}
}

func (c *CaptureLogger) SetLevel(level Level) { c.level = level }
func (c *CaptureLogger) GetLevel() Level      { return c.level }

// Entries returns a copy of everything recorded so far.
func (c *CaptureLogger) Entries() []CapturedEntry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]CapturedEntry, len(c.store.entries))
	copy(out, c.store.entries)
	return out
}

// Matching returns the recorded entries with the given level and message.
func (c *CaptureLogger) Matching(level Level, msg string) []CapturedEntry {
	var out []CapturedEntry
	for _, e := range c.Entries() {
		if e.Level == level && e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

// CountLevel returns how many entries were recorded at the given level.
func (c *CaptureLogger) CountLevel(level Level) int {
	n := 0
	for _, e := range c.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
