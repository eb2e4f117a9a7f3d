package observability

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager runs cleanup hooks (trace flush, metrics textfile) when a command
// finishes or the process is interrupted
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration
	mu      sync.Mutex
	funcs   []ShutdownFunc
	done    bool
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ShutdownManager{
		logger:  logger,
		timeout: timeout,
	}
}

// Register adds a hook. Hooks run in reverse registration order.
func (sm *ShutdownManager) Register(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, fn)
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM
func (sm *ShutdownManager) NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Shutdown runs every hook once, within the manager timeout. Later calls are no-ops.
func (sm *ShutdownManager) Shutdown(parent context.Context) error {
	sm.mu.Lock()
	if sm.done {
		sm.mu.Unlock()
		return nil
	}
	sm.done = true
	funcs := sm.funcs
	sm.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), sm.timeout)
	defer cancel()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			sm.logger.WithError(err).Errorf("Shutdown function %d failed", i)
			errs = append(errs, fmt.Errorf("shutdown function %d: %w", i, err))
		}
	}
	if ctx.Err() != nil {
		sm.logger.Warn("Shutdown timeout reached")
	}
	return errors.Join(errs...)
}
