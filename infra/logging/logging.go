// Package logging builds the root structured logger. Structured logging
// is listed as an external collaborator in spec §1, but the ambient-stack
// rule means it is still implemented here with the teacher's own tool,
// log/slog, rather than left out.
package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON slog.Logger writing to stderr, the same handler
// shape used throughout the teacher's handler/service constructors
// (`*slog.Logger` injected via fx).
func New(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
