package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain field helpers
func Component(name string) Field {
	return String("component", name)
}

func Kind(kind string) Field {
	return String("kind", kind)
}

func Key(key string) Field {
	return String("key", key)
}

func SystemName(name string) Field {
	return String("system_name", name)
}

func Collection(tag string) Field {
	return String("collection", tag)
}

func Panel(name string) Field {
	return String("panel", name)
}

func Ident(id string) Field {
	return String("ident", id)
}

func RunID(id string) Field {
	return String("run_id", id)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

func Path(p string) Field {
	return String("path", p)
}
