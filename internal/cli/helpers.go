package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/stepmesh/internal/config"
	"github.com/aretw0/stepmesh/internal/logging"
	"github.com/aretw0/stepmesh/pkg/observability"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	sc := newSignalContext(parent)
	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go sc.wait()
	return sc
}

func newSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	return &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}
}

func (sc *SignalContext) wait() {
	defer signal.Stop(sc.sigCh)
	select {
	case sig := <-sc.sigCh:
		sc.mu.Lock()
		sc.sigVal = sig
		sc.mu.Unlock()
		sc.Cancel()
	case <-sc.Context.Done():
		// Context cancelled elsewhere
	}
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// signalOf returns the signal that cancelled ctx when ctx is a SignalContext.
func signalOf(ctx context.Context) os.Signal {
	if sc, ok := ctx.(*SignalContext); ok {
		return sc.Signal()
	}
	return nil
}

// NewLogger configures the application logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.NewWithWriter(w, level, cfg.Format)
}

// reportInterrupt tells the user a run was stopped and which signal stopped it, if any.
func (s *session) reportInterrupt(ctx context.Context, err error) {
	if !IsInterrupted(err) {
		return
	}
	sig := signalOf(ctx)
	s.logger.Warn("run interrupted", "signal", sig, "err", err)
	if s.opts.JSON {
		return
	}
	if sig != nil {
		s.printer.Warn("Interrupted by %s; partial results are listed above", sig)
		return
	}
	s.printer.Warn("Interrupted; partial results are listed above")
}

// IsInterrupted reports whether err comes from a cancelled run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// writeMetrics dumps the run metrics when a textfile is configured. Failures are only logged.
func writeMetrics(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics not written", "path", cfg.Metrics.Textfile, "err", err)
		return
	}
	logger.Debug("metrics written", "path", cfg.Metrics.Textfile)
}
