package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with its stack. Call it
// deferred at the top of goroutines and scheduled jobs. The panic is not
// re-raised.
//
//	func refresh() {
//	    defer observability.RecoverPanic(logger, "records gauge refresh")
//	    ...
//	}
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", fmt.Sprint(r)).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// Job wraps fn so that a panic is logged instead of killing the scheduler
func Job(logger *Logger, name string, fn func()) func() {
	return func() {
		defer RecoverPanic(logger, name)
		fn()
	}
}
