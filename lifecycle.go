package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// terminationNotifier is the optional surface of a thread handle that
// reports worker termination. The default thread manager implements it.
type terminationNotifier interface {
	OnTerminated(fn func(err error))
}

// LifecycleManager owns the post-initialization lifecycle of the worker set:
// graceful shutdown, exit cleanup, exception containment, and error restarts
// bounded by the configured restart budget.
type LifecycleManager struct {
	threads core.ThreadManager
	cleanup core.WorkerCleanup
	logger  telemetry.Logger

	cfg     core.LifecycleConfiguration
	workers map[core.WorkerType]*workerRuntime

	mu       sync.Mutex
	restarts map[core.WorkerType]int
	errors   map[core.WorkerType]int
	shutdown bool
}

func NewLifecycleManager(threads core.ThreadManager, cleanup core.WorkerCleanup, logger telemetry.Logger) *LifecycleManager {
	return &LifecycleManager{
		threads:  threads,
		cleanup:  cleanup,
		logger:   logger.WithModule("lifecycle"),
		restarts: make(map[core.WorkerType]int),
		errors:   make(map[core.WorkerType]int),
	}
}

// Setup binds the manager to the created workers and their configuration
func (m *LifecycleManager) Setup(cfg core.LifecycleConfiguration, workers map[core.WorkerType]*workerRuntime) error {
	if cfg.RestartOnError && cfg.MaxRestartAttempts < 0 {
		return core.ValidationError{
			Message: "lifecycle setup failed",
			Details: "max restart attempts cannot be negative",
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	m.cfg = cfg
	m.workers = workers
	return nil
}

// InstallShutdownHandlers registers termination callbacks on every thread
// handle that exposes them. Handles without the surface are skipped; the
// orchestrator surfaces that as a warning upstream.
func (m *LifecycleManager) InstallShutdownHandlers() error {
	if !m.cfg.GracefulShutdown {
		return nil
	}

	missing := 0
	for wt, rt := range m.workers {
		notifier, ok := rt.thread.(terminationNotifier)
		if !ok {
			missing++
			continue
		}
		wt, rt := wt, rt
		notifier.OnTerminated(func(err error) {
			m.handleTermination(wt, rt, err)
		})
	}

	if missing > 0 {
		return fmt.Errorf("%d thread(s) do not report termination", missing)
	}
	return nil
}

// InstallCleanupHandlers arms cleanup-on-exit; the cleanup itself runs in
// Shutdown
func (m *LifecycleManager) InstallCleanupHandlers() error {
	if m.cfg.CleanupOnExit && m.cleanup == nil {
		return fmt.Errorf("cleanup on exit requested without a cleanup service")
	}
	return nil
}

// SetupExceptionHandling verifies panic containment is available. Worker
// panics are recovered inside the thread manager and reported through the
// termination callbacks; nothing propagates to the orchestrator.
func (m *LifecycleManager) SetupExceptionHandling() error {
	if !m.cfg.ExceptionHandling {
		return nil
	}
	for _, rt := range m.workers {
		if _, ok := rt.thread.(terminationNotifier); !ok {
			return fmt.Errorf("exception handling requires termination reporting")
		}
	}
	return nil
}

// handleTermination reacts to a worker leaving its run loop. Clean exits are
// logged; errors count against the restart budget when restarts are enabled.
func (m *LifecycleManager) handleTermination(wt core.WorkerType, rt *workerRuntime, err error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	if err == nil {
		m.mu.Unlock()
		m.logger.Debug("Worker exited cleanly", telemetry.String("worker", string(wt)))
		return
	}

	m.errors[wt]++
	restart := m.cfg.RestartOnError && m.restarts[wt] < m.cfg.MaxRestartAttempts
	if restart {
		m.restarts[wt]++
	}
	attempt := m.restarts[wt]
	m.mu.Unlock()

	if !restart {
		m.logger.Error("Worker terminated with error",
			telemetry.String("worker", string(wt)), telemetry.Err(err))
		return
	}

	m.logger.Warn("Restarting worker after error",
		telemetry.String("worker", string(wt)),
		telemetry.Int("attempt", attempt),
		telemetry.Int("budget", m.cfg.MaxRestartAttempts),
		telemetry.Err(err))

	if startErr := m.threads.StartThread(context.Background(), rt.thread, rt.config.Timeout); startErr != nil {
		m.logger.Error("Worker restart failed",
			telemetry.String("worker", string(wt)), telemetry.Err(startErr))
	}
}

// RestartCount returns how many times the worker has been restarted
func (m *LifecycleManager) RestartCount(wt core.WorkerType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts[wt]
}

// ErrorCount returns how many errored terminations the worker has had
func (m *LifecycleManager) ErrorCount(wt core.WorkerType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[wt]
}

// Shutdown stops every worker thread, bounded per thread by the configured
// shutdown timeout, then runs exit cleanup when armed. Stop errors are
// collected, not short-circuited: every worker gets its stop attempt.
func (m *LifecycleManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	var firstErr error
	for wt, rt := range m.workers {
		if ctx.Err() != nil {
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			break
		}
		if err := m.threads.StopThread(rt.thread, m.cfg.ShutdownTimeout); err != nil {
			m.logger.Warn("Worker stop failed",
				telemetry.String("worker", string(wt)), telemetry.Err(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("stopping %s worker: %w", wt, err)
			}
		}
	}

	if m.cfg.CleanupOnExit && m.cleanup != nil {
		for wt, rt := range m.workers {
			if err := m.cleanup.CleanupWorker(rt.worker, wt); err != nil {
				m.logger.Warn("Worker exit cleanup failed",
					telemetry.String("worker", string(wt)), telemetry.Err(err))
				if firstErr == nil {
					firstErr = fmt.Errorf("cleaning up %s worker: %w", wt, err)
				}
			}
		}
		m.cleanup.ForceGarbageCollection()
	}

	m.logger.Info("Worker set shut down", telemetry.Int("workers", len(m.workers)))
	return firstErr
}
