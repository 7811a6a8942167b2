package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is a single structured key/value attached to a log entry.
type Field struct {
	key   string
	value interface{}
	apply func(ev *zerolog.Event)
}

// KeyValue exposes the field contents, mainly for tests.
func (f Field) KeyValue() (string, interface{}) { return f.key, f.value }

func String(key, value string) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Str(key, value) }}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}

func Int(key string, value int) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Int(key, value) }}
}

func Int64(key string, value int64) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Int64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Float64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Bool(key, value) }}
}

// Duration is logged in whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

func Time(key string, value time.Time) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Time(key, value) }}
}

func Error(err error) Field {
	return Field{key: "error", value: err, apply: func(ev *zerolog.Event) { ev.Err(err) }}
}

func Any(key string, value interface{}) Field {
	return Field{key: key, value: value, apply: func(ev *zerolog.Event) { ev.Interface(key, value) }}
}
