package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic, logs it with its stack and stores it in errp.
// It must be deferred directly by the function that may panic:
//
//	func task() (err error) {
//	    defer observability.RecoverPanic(logger, "merge Order", &err)
//	    ...
//	}
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, operation string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	logger.WithField("panic", fmt.Sprint(r)).
		WithField("stack", string(debug.Stack())).
		WithField("operation", operation).
		Error("panic recovered")
	if errp != nil {
		*errp = fmt.Errorf("panic in %s: %v", operation, r)
	}
}
