package orchestrator

import (
	"time"

	"github.com/creastat/orchestrator/core"
)

// RequestBuilder constructs orchestration requests with a fluent API
type RequestBuilder struct {
	req Request
}

// NewRequest creates a builder with dependency-based initialization and
// sensible defaults
func NewRequest() *RequestBuilder {
	return &RequestBuilder{
		req: Request{
			Strategy:             core.StrategyDependencyBased,
			CleanupExisting:      true,
			ValidateDependencies: true,
			Coordination:         core.CoordinationConfiguration{Mode: core.ModeIndependent},
			Lifecycle: core.LifecycleConfiguration{
				GracefulShutdown:  true,
				CleanupOnExit:     true,
				ExceptionHandling: true,
				ShutdownTimeout:   10 * time.Second,
			},
		},
	}
}

// AddWorker adds a worker configuration. Zero Timeout is defaulted to 30s.
func (b *RequestBuilder) AddWorker(config core.WorkerConfiguration) *RequestBuilder {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	b.req.Configurations = append(b.req.Configurations, config)
	return b
}

// WithStrategy selects the initialization strategy
func (b *RequestBuilder) WithStrategy(strategy core.InitializationStrategy) *RequestBuilder {
	b.req.Strategy = strategy
	return b
}

// WithCoordination sets the coordination configuration
func (b *RequestBuilder) WithCoordination(cfg core.CoordinationConfiguration) *RequestBuilder {
	b.req.Coordination = cfg
	return b
}

// WithLifecycle sets the lifecycle configuration
func (b *RequestBuilder) WithLifecycle(cfg core.LifecycleConfiguration) *RequestBuilder {
	b.req.Lifecycle = cfg
	return b
}

// WithMonitoring sets the monitoring configuration
func (b *RequestBuilder) WithMonitoring(cfg core.MonitoringConfiguration) *RequestBuilder {
	b.req.Monitoring = cfg
	return b
}

// WithCleanupExisting toggles the pre-run cleanup of leftover workers
func (b *RequestBuilder) WithCleanupExisting(enabled bool) *RequestBuilder {
	b.req.CleanupExisting = enabled
	return b
}

// WithDependencyValidation toggles the up-front dependency and system checks
func (b *RequestBuilder) WithDependencyValidation(enabled bool) *RequestBuilder {
	b.req.ValidateDependencies = enabled
	return b
}

// WithProgress installs the progress callback
func (b *RequestBuilder) WithProgress(fn core.ProgressCallback) *RequestBuilder {
	b.req.Progress = fn
	return b
}

// Build validates and returns the request
func (b *RequestBuilder) Build() (Request, error) {
	if err := validateRequest(b.req); err != nil {
		return Request{}, err
	}
	return b.req, nil
}
