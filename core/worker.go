package core

import "context"

// Worker represents a background worker managed by the orchestrator
type Worker interface {
	Name() string
	Type() WorkerType

	// Run processes signals until the input channel closes or the context
	// is cancelled. Implementations must not close the output channel;
	// the execution unit that owns the worker does that.
	Run(ctx context.Context, input <-chan Signal, output chan<- Signal) error
}

// HealthChecker is implemented by workers that can report their own health.
// Workers without it are considered healthy while their thread runs.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Warmer is implemented by workers with blocking startup work, such as model
// loading. Warmup runs before the worker's start is acknowledged, so slow
// startups count against the start timeout.
type Warmer interface {
	Warmup(ctx context.Context) error
}
