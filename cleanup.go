package orchestrator

import (
	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// CleanupCoordinator wraps the WorkerCleanup port with logging and the
// post-cleanup memory reclamation pass. Cleanup failures are reported, never
// fatal; stale workers degrade a fresh run but must not block it.
type CleanupCoordinator struct {
	port   core.WorkerCleanup
	logger telemetry.Logger
}

func NewCleanupCoordinator(port core.WorkerCleanup, logger telemetry.Logger) *CleanupCoordinator {
	return &CleanupCoordinator{port: port, logger: logger.WithModule("cleanup")}
}

// CleanupExisting tears down leftover workers of the given types and runs a
// garbage collection pass afterwards
func (c *CleanupCoordinator) CleanupExisting(workerTypes []core.WorkerType) error {
	before, _ := c.port.GetMemoryUsage()

	if err := c.port.CleanupExistingWorkers(workerTypes); err != nil {
		c.logger.Warn("Cleanup of existing workers failed", telemetry.Err(err))
		return core.CleanupError{Message: "cleanup of existing workers failed", Err: err}
	}

	c.port.ForceGarbageCollection()

	if after, err := c.port.GetMemoryUsage(); err == nil {
		c.logger.Debug("Existing workers cleaned up",
			telemetry.Int("worker_types", len(workerTypes)),
			telemetry.Float64("memory_before_mb", before),
			telemetry.Float64("memory_after_mb", after))
	}

	return nil
}
