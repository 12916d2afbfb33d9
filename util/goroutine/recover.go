// Package goroutine holds the panic-recovery helper every background
// goroutine in the service defers.
package goroutine

import (
	"fmt"
	"os"
	"runtime/debug"

	"go.uber.org/zap"
)

// Recover logs a recovered panic with its stack. Deferred at the top of
// service goroutines so a panic never takes the process down. Falls back to
// stderr when no logger is available.
func Recover(name string, logger *zap.SugaredLogger) {
	r := recover()
	if r == nil {
		return
	}
	stack := debug.Stack()

	if logger == nil {
		fmt.Fprintf(os.Stderr, "panic in goroutine %s: %v\n%s\n", name, r, stack)
		return
	}
	logger.Errorw("Goroutine panic recovered",
		"goroutine", name,
		"panic", r,
		"stack", string(stack))
}
