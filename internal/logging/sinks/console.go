package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/bizkut/cybrelink/internal/logging"
)

// Console renders events as a single human-readable line: a standard log
// date/time prefix, then "[severity] category tick=N session=N message",
// then any extra fields as JSON. It does not use an "ACTION type=...
// player=..." layout.
type Console struct {
	logger *log.Logger
}

// NewConsole constructs a console sink writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

// Write satisfies logging.Sink.
func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	extra := formatExtra(event.Extra)
	s.logger.Printf("[%s] %s tick=%d session=%d %s%s", event.Severity, event.Category, event.Tick, event.SessionID, event.Message, extra)
	return nil
}

// Close satisfies logging.Sink; console sinks hold no resources.
func (s *Console) Close(context.Context) error { return nil }

func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return fmt.Sprintf(" extra=%v", extra)
	}
	return fmt.Sprintf(" extra=%s", data)
}
