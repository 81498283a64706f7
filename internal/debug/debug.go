// Package debug provides stage tracing that is switched on per call site.
package debug

import (
	"fmt"
	"log"
	"time"
)

// Header prints a stage header if tracing is enabled.
func Header(enabled bool, stage string) {
	if enabled {
		log.Printf("=== %s ===", stage)
	}
}

// Output prints a trace line if tracing is enabled.
func Output(enabled bool, format string, args ...interface{}) {
	if enabled {
		timestamp := time.Now().Format("15:04:05.000")
		log.Printf("[%s] %s", timestamp, fmt.Sprintf(format, args...))
	}
}

// Timing logs how long an operation took. Call the returned func when done:
//
//	defer debug.Timing(enabled, "match")()
func Timing(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	Output(enabled, "Starting: %s", operation)

	return func() {
		Output(enabled, "Completed: %s (took %v)", operation, time.Since(start))
	}
}
