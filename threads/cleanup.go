package threads

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	"github.com/shirou/gopsutil/v3/process"
)

const stopTimeout = 5 * time.Second

// CleanupService implements core.WorkerCleanup over the thread manager
type CleanupService struct {
	manager   *Manager
	connector *Connector
	logger    telemetry.Logger
}

func NewCleanupService(manager *Manager, connector *Connector, logger telemetry.Logger) *CleanupService {
	return &CleanupService{
		manager:   manager,
		connector: connector,
		logger:    logger.WithModule("cleanup"),
	}
}

// CleanupExistingWorkers stops and releases every live thread hosting a
// worker of the given types. Every thread gets its stop attempt; the first
// error is returned after the sweep.
func (s *CleanupService) CleanupExistingWorkers(workerTypes []core.WorkerType) error {
	var firstErr error
	cleaned := 0

	for _, wt := range workerTypes {
		for _, thread := range s.manager.ThreadsByType(wt) {
			if err := s.teardown(thread); err != nil {
				s.logger.Warn("Stale worker cleanup failed",
					telemetry.String("thread", thread.Name()), telemetry.Err(err))
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			cleaned++
		}
	}

	if cleaned > 0 {
		s.logger.Info("Stale workers cleaned up", telemetry.Int("count", cleaned))
	}
	return firstErr
}

// CleanupWorker stops and releases the thread hosting the worker. A worker
// with no live thread is already clean.
func (s *CleanupService) CleanupWorker(worker core.Worker, workerType core.WorkerType) error {
	if s.connector != nil {
		if err := s.connector.DisconnectWorkerSignals(worker); err != nil {
			s.logger.Warn("Signal disconnect during cleanup failed",
				telemetry.String("worker", worker.Name()), telemetry.Err(err))
		}
	}

	thread := s.manager.ThreadFor(worker)
	if thread == nil {
		return nil
	}
	if err := s.teardown(thread); err != nil {
		return fmt.Errorf("cleaning up %s worker: %w", workerType, err)
	}
	return nil
}

func (s *CleanupService) teardown(thread *Thread) error {
	if err := s.manager.StopThread(thread, stopTimeout); err != nil {
		return err
	}
	return s.manager.CleanupThread(thread)
}

// ForceGarbageCollection runs a full collection and returns freed memory to
// the OS
func (s *CleanupService) ForceGarbageCollection() {
	runtime.GC()
	debug.FreeOSMemory()
}

// GetMemoryUsage returns the process resident set size in MB
func (s *CleanupService) GetMemoryUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / (1024 * 1024), nil
}
