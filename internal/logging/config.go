package logging

import "time"

// Config tunes the router's buffering and sink selection. It mirrors the
// teacher codebase's logging.Config shape: a minimum severity, a bounded
// event queue, and a set of named sinks to enable.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	DropWarnInterval time.Duration
}

// DefaultConfig returns sane defaults for a production server process.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
	}
}

// HasSink reports whether name is in the enabled sink list.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}
