package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/RevCBH/hpctui/internal/logger"
)

// notifySignals subscribes c to the signals that stop a session. Replaced in tests.
var notifySignals = func(c chan<- os.Signal) {
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
}

// SignalHandler stops a tracking session on SIGINT or SIGTERM. Shutdown
// callbacks run in registration order while the session context is still
// live, then the context is cancelled. Remote jobs are never touched.
type SignalHandler struct {
	cancel context.CancelFunc
	logger *slog.Logger

	signals  chan os.Signal
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu        sync.Mutex
	callbacks []func()
}

// NewSignalHandler creates a handler that cancels the session with cancel.
func NewSignalHandler(cancel context.CancelFunc, log *slog.Logger) *SignalHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &SignalHandler{
		cancel:  cancel,
		logger:  log,
		signals: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers fn to run when a signal arrives.
func (h *SignalHandler) OnShutdown(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, fn)
}

// Start listens until the first signal or Stop.
func (h *SignalHandler) Start() {
	notifySignals(h.signals)
	go h.run()
}

func (h *SignalHandler) run() {
	defer close(h.done)
	select {
	case sig := <-h.signals:
		h.logger.Info("received signal, stopping session", "signal", sig.String())
		h.shutdown()
	case <-h.stop:
	}
}

func (h *SignalHandler) shutdown() {
	h.mu.Lock()
	callbacks := slices.Clone(h.callbacks)
	h.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
	if h.cancel != nil {
		h.cancel()
	}
}

// Stop unsubscribes from signals and waits for a shutdown already in
// progress to finish. Start must have been called.
func (h *SignalHandler) Stop() {
	signal.Stop(h.signals)
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}
