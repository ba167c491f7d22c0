package log

import (
	"fmt"
	"io"
	"strings"
)

// Config declares how a process-wide logger is built.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// Output overrides the destination; nil means stderr.
	Output io.Writer `json:"-" yaml:"-"`
}

// ApplyConfig builds a Logger from cfg. Format is "text" (default) or "json".
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		formatter = &TextFormatter{}
	case "json":
		formatter = &JSONFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	out := NewConsoleOutput()
	if cfg.Output != nil {
		out = NewWriterOutput(cfg.Output)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(out)), nil
}
