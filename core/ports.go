package core

import (
	"context"
	"time"
)

// ThreadHandle identifies an execution unit a worker runs on. The concrete
// unit is an implementation detail of the ThreadManager; the default
// implementation uses goroutines.
type ThreadHandle interface {
	ID() string
	Name() string
	State() ThreadState
}

// WorkerFactory creates worker instances by type
type WorkerFactory interface {
	CreateVADWorker() (Worker, error)
	CreateModelWorker(modelName, quantization string) (Worker, error)
	CreateLLMWorker(modelName, quantization string) (Worker, error)
	CreateListenerWorker() (Worker, error)
	CreateVisualizerWorker() (Worker, error)
}

// ThreadManager assigns workers to execution units and controls them
type ThreadManager interface {
	CreateThread(name string) (ThreadHandle, error)
	MoveWorkerToThread(worker Worker, thread ThreadHandle) error

	// StartThread starts the unit and waits for its start acknowledgement,
	// bounded by timeout
	StartThread(ctx context.Context, thread ThreadHandle, timeout time.Duration) error

	StopThread(thread ThreadHandle, timeout time.Duration) error
	IsThreadRunning(thread ThreadHandle) bool
	CleanupThread(thread ThreadHandle) error
}

// SignalConnector wires a worker's output signals to their handlers
type SignalConnector interface {
	ConnectWorkerSignals(worker Worker, workerType WorkerType) error
	DisconnectWorkerSignals(worker Worker) error
}

// WorkerCleanup stops and reclaims workers left over from previous runs
type WorkerCleanup interface {
	CleanupExistingWorkers(workerTypes []WorkerType) error
	CleanupWorker(worker Worker, workerType WorkerType) error

	// ForceGarbageCollection triggers an advisory memory-reclamation pass
	ForceGarbageCollection()

	// GetMemoryUsage returns the process resident memory in MB
	GetMemoryUsage() (float64, error)
}

// DependencyValidator validates per-worker dependencies and computes the
// initialization order
type DependencyValidator interface {
	ValidateWorkerDependencies(workerType WorkerType, config WorkerConfiguration) error
	InitializationOrder(workerTypes []WorkerType) ([]WorkerType, error)
	CheckSystemRequirements(workerType WorkerType) error
}

// ProgressCallback receives phase transitions with an overall percentage.
// Returning false requests a cooperative cancellation of the run.
type ProgressCallback func(phase InitializationPhase, percentage int) bool
