// Package safe wraps goroutine entry points with panic recovery.
package safe

import (
	"log/slog"
	"runtime/debug"
	"strings"
)

// Run executes fn and converts any panic into an error log with a
// trimmed stack trace. Every background goroutine in this project is
// spawned through Run so a single bad file or snapshot cannot take
// the process down.
func Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("stack", stackTrace()),
			)
		}
	}()

	fn()
}

// stackTrace drops the recovery frames off the top and caps the line
// count so one panic cannot flood the log.
func stackTrace() string {
	lines := strings.Split(string(debug.Stack()), "\n")

	const skip, max = 3, 20
	var formatted []string
	for i := skip; i < len(lines) && i < skip+max; i++ {
		if line := strings.TrimSpace(lines[i]); line != "" {
			formatted = append(formatted, line)
		}
	}
	if len(lines) > skip+max {
		formatted = append(formatted, "... (truncated)")
	}
	return strings.Join(formatted, "\n")
}
