package core

import "time"

// WorkerConfiguration holds the immutable per-worker configuration for one
// orchestration request. It is created once per request and never mutated.
type WorkerConfiguration struct {
	WorkerType WorkerType
	Enabled    bool

	// ModelName and Quantization are required for transcriber workers
	ModelName    string
	Quantization string

	// LLMModelName and LLMQuantization are required for LLM workers
	LLMModelName    string
	LLMQuantization string

	AutoStart        bool
	Timeout          time.Duration
	RetryCount       int
	CleanupOnFailure bool
	CustomParameters map[string]any
}

// CoordinationConfiguration describes how workers are wired together after
// creation. The dependency map must be acyclic.
type CoordinationConfiguration struct {
	Mode CoordinationMode

	// Dependencies maps a worker type to the worker types it depends on
	Dependencies map[WorkerType][]WorkerType

	// SynchronizationPoints names the barriers workers can rendezvous at
	SynchronizationPoints []string

	// CommunicationChannels maps a producing worker to a consuming worker
	CommunicationChannels map[WorkerType]WorkerType

	// SharedResources names resources workers acquire under mutual exclusion
	SharedResources []string

	// DeadlockDetection enables the advisory acquisition audit. The audit
	// reports long waits as warnings; it does not prevent deadlocks.
	DeadlockDetection bool
}

// LifecycleConfiguration controls per-worker teardown and containment hooks
type LifecycleConfiguration struct {
	GracefulShutdown   bool
	CleanupOnExit      bool
	ExceptionHandling  bool
	RestartOnError     bool
	MaxRestartAttempts int
	ShutdownTimeout    time.Duration
}

// MonitoringConfiguration controls health checks, performance tracking
// and alerting for started workers
type MonitoringConfiguration struct {
	HealthChecks        bool
	HealthCheckInterval time.Duration
	PerformanceTracking bool

	// AlertThresholds maps a metric name to the value above which an alert
	// fires, e.g. "error_count" -> 3
	AlertThresholds map[string]float64
}
