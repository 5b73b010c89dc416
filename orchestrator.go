package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	"github.com/google/uuid"
)

// Request describes one orchestration run. It is immutable for the duration
// of the run.
type Request struct {
	Configurations []core.WorkerConfiguration
	Strategy       core.InitializationStrategy
	Coordination   core.CoordinationConfiguration
	Lifecycle      core.LifecycleConfiguration
	Monitoring     core.MonitoringConfiguration

	// CleanupExisting stops and reclaims workers left over from a previous
	// run before initialization starts
	CleanupExisting bool

	// ValidateDependencies runs per-worker dependency and system checks
	// before any worker is created
	ValidateDependencies bool

	// Progress receives phase transitions; returning false cancels the run
	Progress core.ProgressCallback
}

// Response is the aggregated outcome of an orchestration run. It is always
// complete: partial failures are reported here, never as a bare error.
type Response struct {
	Result                  core.InitializationResult
	WorkerStatuses          []core.WorkerInitializationStatus
	SuccessfulWorkers       []core.WorkerType
	FailedWorkers           []core.WorkerType
	Warnings                []string
	ErrorMessage            string
	TotalInitializationTime time.Duration
	CleanupPerformed        bool
	DependenciesValidated   bool

	// Coordination, Lifecycle and Monitoring are the post-creation service
	// handles; nil when their setup failed or no worker was created
	Coordination *Coordination
	Lifecycle    *LifecycleManager
	Monitoring   *MonitoringService
}

// Config wires the collaborator ports into an Orchestrator
type Config struct {
	Factory      core.WorkerFactory
	Threads      core.ThreadManager
	Signals      core.SignalConnector
	Cleanup      core.WorkerCleanup
	Dependencies core.DependencyValidator // nil selects the default validator
	Logger       telemetry.Logger
}

// Orchestrator drives the worker initialization state machine
type Orchestrator struct {
	factory     core.WorkerFactory
	threads     core.ThreadManager
	signals     core.SignalConnector
	cleanupPort core.WorkerCleanup
	cleanup     *CleanupCoordinator
	deps        core.DependencyValidator
	logger      telemetry.Logger
}

// New creates an orchestrator over the given ports
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Factory == nil {
		return nil, fmt.Errorf("orchestrator requires a worker factory")
	}
	if cfg.Threads == nil {
		return nil, fmt.Errorf("orchestrator requires a thread manager")
	}
	if cfg.Signals == nil {
		return nil, fmt.Errorf("orchestrator requires a signal connector")
	}
	if cfg.Cleanup == nil {
		return nil, fmt.Errorf("orchestrator requires a worker cleanup service")
	}
	if cfg.Dependencies == nil {
		cfg.Dependencies = NewDependencyValidator(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.New(telemetry.Config{Level: "info"})
	}

	return &Orchestrator{
		factory:     cfg.Factory,
		threads:     cfg.Threads,
		signals:     cfg.Signals,
		cleanupPort: cfg.Cleanup,
		cleanup:     NewCleanupCoordinator(cfg.Cleanup, cfg.Logger),
		deps:        cfg.Dependencies,
		logger:      cfg.Logger,
	}, nil
}

// workerRuntime tracks a created worker and its execution unit for the
// remainder of the run
type workerRuntime struct {
	worker core.Worker
	thread core.ThreadHandle
	config core.WorkerConfiguration
}

// initOutcome aggregates the per-worker initialization loop results
type initOutcome struct {
	statuses  []core.WorkerInitializationStatus
	created   map[core.WorkerType]*workerRuntime
	warnings  []string
	cancelled bool
}

// Initialize runs the full orchestration state machine: validate, clean up,
// create and start workers in dependency order, wire coordination, install
// lifecycle hooks and activate monitoring. It always returns a complete
// response; per-worker failures never abort the batch.
func (o *Orchestrator) Initialize(ctx context.Context, req Request) *Response {
	start := time.Now()
	logger := o.logger.WithModule("orchestrator")
	resp := &Response{Result: core.ResultFailed}

	if req.Strategy == "" {
		req.Strategy = core.StrategyDependencyBased
	}

	logger.Info("Starting worker initialization",
		telemetry.Int("worker_count", len(req.Configurations)),
		telemetry.String("strategy", string(req.Strategy)),
		telemetry.Bool("cleanup_existing", req.CleanupExisting))

	if !o.checkProgress(ctx, req, core.PhaseInitializing, 0) {
		return o.finishCancelled(resp, req, start)
	}

	if !o.checkProgress(ctx, req, core.PhaseValidatingConfiguration, 5) {
		return o.finishCancelled(resp, req, start)
	}

	if err := validateRequest(req); err != nil {
		logger.Error("Request validation failed", telemetry.Err(err))
		resp.ErrorMessage = err.Error()
		resp.TotalInitializationTime = time.Since(start)
		return resp
	}

	dependencies := o.dependencyGraph(req)

	if req.ValidateDependencies {
		for _, config := range req.Configurations {
			if !config.Enabled {
				continue
			}
			if err := o.deps.ValidateWorkerDependencies(config.WorkerType, config); err != nil {
				logger.Error("Dependency validation failed",
					telemetry.String("worker", string(config.WorkerType)), telemetry.Err(err))
				resp.Result = core.ResultDependencyFailed
				resp.ErrorMessage = fmt.Sprintf("dependency validation failed for %s: %v", config.WorkerType, err)
				resp.TotalInitializationTime = time.Since(start)
				return resp
			}
			if err := o.deps.CheckSystemRequirements(config.WorkerType); err != nil {
				logger.Error("System requirements check failed",
					telemetry.String("worker", string(config.WorkerType)), telemetry.Err(err))
				resp.Result = core.ResultDependencyFailed
				resp.ErrorMessage = err.Error()
				resp.TotalInitializationTime = time.Since(start)
				return resp
			}
		}
		resp.DependenciesValidated = true
	}

	if !o.checkProgress(ctx, req, core.PhaseCleaningUpExisting, 10) {
		return o.finishCancelled(resp, req, start)
	}

	requestedTypes := make([]core.WorkerType, 0, len(req.Configurations))
	for _, config := range req.Configurations {
		requestedTypes = append(requestedTypes, config.WorkerType)
	}

	if req.CleanupExisting {
		if err := o.cleanup.CleanupExisting(requestedTypes); err != nil {
			resp.Warnings = append(resp.Warnings, err.Error())
		} else {
			resp.CleanupPerformed = true
		}
	}

	order, err := o.initializationOrder(req, requestedTypes, dependencies)
	if err != nil {
		logger.Error("Dependency resolution failed", telemetry.Err(err))
		resp.Result = core.ResultDependencyFailed
		resp.ErrorMessage = err.Error()
		resp.TotalInitializationTime = time.Since(start)
		return resp
	}

	configs := make(map[core.WorkerType]core.WorkerConfiguration, len(req.Configurations))
	for _, config := range req.Configurations {
		configs[config.WorkerType] = config
	}

	var outcome initOutcome
	if req.Strategy == core.StrategyParallel {
		outcome = o.initializeParallel(ctx, req, order, configs, dependencies)
	} else {
		outcome = o.initializeSequential(ctx, req, order, configs, dependencies)
	}

	resp.WorkerStatuses = outcome.statuses
	resp.Warnings = append(resp.Warnings, outcome.warnings...)
	for _, status := range outcome.statuses {
		if status.Initialized {
			resp.SuccessfulWorkers = append(resp.SuccessfulWorkers, status.WorkerType)
		} else {
			resp.FailedWorkers = append(resp.FailedWorkers, status.WorkerType)
		}
	}

	if outcome.cancelled {
		logger.Warn("Worker initialization cancelled",
			telemetry.Int("successful", len(resp.SuccessfulWorkers)),
			telemetry.Int("pending", len(resp.FailedWorkers)))
		resp.Result = core.ResultCancelled
		resp.ErrorMessage = core.ErrCancelled.Error()
		resp.TotalInitializationTime = time.Since(start)
		return resp
	}

	if len(outcome.created) > 0 {
		o.setupCoordination(ctx, req, order, dependencies, outcome.created, resp)
		o.setupLifecycle(req, outcome.created, resp)
		o.setupMonitoring(req, outcome.created, resp)
	}

	if !o.checkProgress(ctx, req, core.PhaseVerifyingInitialization, 95) {
		resp.Result = core.ResultCancelled
		resp.ErrorMessage = core.ErrCancelled.Error()
		resp.TotalInitializationTime = time.Since(start)
		return resp
	}

	for wt, rt := range outcome.created {
		if rt.config.AutoStart && rt.thread != nil && !o.threads.IsThreadRunning(rt.thread) {
			resp.Warnings = append(resp.Warnings,
				fmt.Sprintf("%s worker reported started but its thread is not running", wt))
		}
	}

	if len(resp.FailedWorkers) == 0 {
		resp.Result = core.ResultSuccess
	} else if len(resp.SuccessfulWorkers) > 0 {
		resp.Result = core.ResultPartialSuccess
	} else {
		resp.Result = core.ResultFailed
		resp.ErrorMessage = "all worker initializations failed"
	}

	if !o.checkProgress(ctx, req, core.PhaseCompleted, 100) {
		resp.Result = core.ResultCancelled
		resp.ErrorMessage = core.ErrCancelled.Error()
	}

	resp.TotalInitializationTime = time.Since(start)

	logger.Info("Worker initialization completed",
		telemetry.String("result", string(resp.Result)),
		telemetry.Int("successful", len(resp.SuccessfulWorkers)),
		telemetry.Int("failed", len(resp.FailedWorkers)),
		telemetry.Int("warnings", len(resp.Warnings)),
		telemetry.Int("duration_ms", int(resp.TotalInitializationTime.Milliseconds())))

	return resp
}

// initializeSequential walks the resolved order synchronously. A worker whose
// dependency already failed is not attempted: it is recorded as
// DEPENDENCY_FAILED and counts as failed for the overall classification.
func (o *Orchestrator) initializeSequential(ctx context.Context, req Request, order []core.WorkerType, configs map[core.WorkerType]core.WorkerConfiguration, dependencies map[core.WorkerType][]core.WorkerType) initOutcome {
	outcome := initOutcome{created: make(map[core.WorkerType]*workerRuntime)}

	enabled := enabledInOrder(order, configs)
	progressPerWorker := 0
	if len(enabled) > 0 {
		progressPerWorker = 70 / len(enabled)
	}

	failed := make(map[core.WorkerType]bool)

	for i, wt := range enabled {
		percentage := 15 + i*progressPerWorker

		if !o.checkProgress(ctx, req, core.PhaseCreatingWorker, percentage) {
			for _, remaining := range enabled[i:] {
				outcome.statuses = append(outcome.statuses, core.WorkerInitializationStatus{
					WorkerType:   remaining,
					Result:       core.ResultCancelled,
					ErrorMessage: core.ErrCancelled.Error(),
				})
			}
			outcome.cancelled = true
			return outcome
		}

		config := configs[wt]

		if dep, blocked := failedDependency(wt, dependencies, failed); blocked {
			outcome.statuses = append(outcome.statuses, core.WorkerInitializationStatus{
				WorkerType:   wt,
				Result:       core.ResultDependencyFailed,
				ErrorMessage: fmt.Sprintf("dependency %s failed", dep),
			})
			failed[wt] = true
			continue
		}

		status, rt := o.initializeWorker(ctx, config)
		outcome.statuses = append(outcome.statuses, status)

		if status.Initialized {
			outcome.created[wt] = rt
			continue
		}

		failed[wt] = true
		if rt != nil {
			if config.CleanupOnFailure {
				if err := o.cleanupPort.CleanupWorker(rt.worker, wt); err != nil {
					outcome.warnings = append(outcome.warnings,
						fmt.Sprintf("cleanup after %s worker failure: %v", wt, err))
				}
			} else {
				outcome.warnings = append(outcome.warnings,
					fmt.Sprintf("%s worker failed but cleanup was skipped", wt))
			}
		}
	}

	return outcome
}

// initializeWorker runs the per-worker sub-phases: create (with retries),
// create thread, move, connect signals, and start when auto-start is set.
// Any step failing short-circuits this worker to FAILED; the error never
// escapes into the batch.
func (o *Orchestrator) initializeWorker(ctx context.Context, config core.WorkerConfiguration) (core.WorkerInitializationStatus, *workerRuntime) {
	start := time.Now()
	logger := o.logger.WithModule("orchestrator")
	status := core.WorkerInitializationStatus{
		WorkerType: config.WorkerType,
		Result:     core.ResultFailed,
	}

	logger.Debug("Initializing worker", telemetry.String("worker", string(config.WorkerType)))

	worker, err := o.createWorker(ctx, config)
	if err != nil {
		status.ErrorMessage = core.CreationError{Worker: config.WorkerType, Err: err}.Error()
		logger.Error("Worker creation failed",
			telemetry.String("worker", string(config.WorkerType)), telemetry.Err(err))
		return status, nil
	}
	status.WorkerID = uuid.NewString()
	rt := &workerRuntime{worker: worker, config: config}

	thread, err := o.threads.CreateThread(string(config.WorkerType) + "_thread")
	if err != nil {
		status.ErrorMessage = core.ThreadError{Worker: config.WorkerType, Op: "creating", Err: err}.Error()
		return status, rt
	}
	rt.thread = thread
	status.ThreadID = thread.ID()

	if err := o.threads.MoveWorkerToThread(worker, thread); err != nil {
		status.ErrorMessage = core.ThreadError{Worker: config.WorkerType, Op: "assigning", Err: err}.Error()
		return status, rt
	}

	if err := o.signals.ConnectWorkerSignals(worker, config.WorkerType); err != nil {
		status.ErrorMessage = core.SignalError{Worker: config.WorkerType, Err: err}.Error()
		return status, rt
	}

	if config.AutoStart {
		if err := o.threads.StartThread(ctx, thread, config.Timeout); err != nil {
			status.ErrorMessage = core.ThreadError{Worker: config.WorkerType, Op: "starting", Err: err}.Error()
			return status, rt
		}
		status.Started = true
	}

	status.Initialized = true
	status.Result = core.ResultSuccess
	status.InitializationTime = time.Since(start)

	if mb, err := o.cleanupPort.GetMemoryUsage(); err == nil {
		status.MemoryUsageMB = mb
	}

	logger.Debug("Worker initialized",
		telemetry.String("worker", string(config.WorkerType)),
		telemetry.Bool("started", status.Started),
		telemetry.Int("duration_ms", int(status.InitializationTime.Milliseconds())))

	return status, rt
}

// createWorker builds the worker instance, retrying creation up to
// RetryCount times with exponential backoff. Retries cover creation only;
// thread and signal steps are not retried.
func (o *Orchestrator) createWorker(ctx context.Context, config core.WorkerConfiguration) (core.Worker, error) {
	logger := o.logger.WithModule("orchestrator")
	backoff := 100 * time.Millisecond
	var lastErr error

	for attempt := 0; attempt <= config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}

		worker, err := o.buildWorker(config)
		if err == nil {
			return worker, nil
		}
		lastErr = err
		logger.Warn("Worker creation attempt failed",
			telemetry.String("worker", string(config.WorkerType)),
			telemetry.Int("attempt", attempt+1),
			telemetry.Err(err))
	}

	return nil, lastErr
}

func (o *Orchestrator) buildWorker(config core.WorkerConfiguration) (core.Worker, error) {
	switch config.WorkerType {
	case core.WorkerTypeVAD:
		return o.factory.CreateVADWorker()
	case core.WorkerTypeTranscriber:
		return o.factory.CreateModelWorker(config.ModelName, config.Quantization)
	case core.WorkerTypeLLM:
		return o.factory.CreateLLMWorker(config.LLMModelName, config.LLMQuantization)
	case core.WorkerTypeListener:
		return o.factory.CreateListenerWorker()
	case core.WorkerTypeVisualizer:
		return o.factory.CreateVisualizerWorker()
	default:
		return nil, fmt.Errorf("unknown worker type %q", config.WorkerType)
	}
}

// setupCoordination wires cross-worker dependencies, synchronization points
// and communication channels. Failures here degrade coordination only; they
// become warnings, never a failed run.
func (o *Orchestrator) setupCoordination(ctx context.Context, req Request, order []core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType, created map[core.WorkerType]*workerRuntime, resp *Response) {
	service := NewCoordinationService(o.logger)
	coord, err := service.Setup(ctx, req.Coordination, created, order)
	if err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("coordination setup failed: %v", err))
		return
	}

	if _, err := coord.EstablishDependencies(dependencies); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("establishing dependencies failed: %v", err))
	}
	if _, err := coord.CreateSynchronizationPoints(req.Coordination.SynchronizationPoints); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("creating synchronization points failed: %v", err))
	}
	if _, err := coord.SetupCommunicationChannels(req.Coordination.CommunicationChannels); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("setting up communication channels failed: %v", err))
	}

	resp.Coordination = coord
}

// setupLifecycle installs shutdown, cleanup and exception-containment hooks.
// Install failures are warnings.
func (o *Orchestrator) setupLifecycle(req Request, created map[core.WorkerType]*workerRuntime, resp *Response) {
	manager := NewLifecycleManager(o.threads, o.cleanupPort, o.logger)
	if err := manager.Setup(req.Lifecycle, created); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("lifecycle setup failed: %v", err))
		return
	}

	if err := manager.InstallShutdownHandlers(); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("installing shutdown handlers failed: %v", err))
	}
	if err := manager.InstallCleanupHandlers(); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("installing cleanup handlers failed: %v", err))
	}
	if err := manager.SetupExceptionHandling(); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("setting up exception handling failed: %v", err))
	}

	resp.Lifecycle = manager
}

// setupMonitoring activates health checks, performance tracking and alerts.
// Monitoring failures degrade observability only.
func (o *Orchestrator) setupMonitoring(req Request, created map[core.WorkerType]*workerRuntime, resp *Response) {
	service := NewMonitoringService(o.threads, o.logger)
	if err := service.Setup(req.Monitoring, created); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("monitoring setup failed: %v", err))
		return
	}

	if req.Monitoring.HealthChecks {
		if err := service.EnableHealthChecks(); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("enabling health checks failed: %v", err))
		}
	}
	if req.Monitoring.PerformanceTracking {
		if err := service.SetupPerformanceTracking(); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("setting up performance tracking failed: %v", err))
		}
	}
	if err := service.ConfigureAlerts(req.Monitoring.AlertThresholds); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("configuring alerts failed: %v", err))
	}

	resp.Monitoring = service
}

// initializationOrder resolves the order the per-worker loop walks.
// Sequential strategy keeps declaration order; the others resolve the
// dependency graph.
func (o *Orchestrator) initializationOrder(req Request, requestedTypes []core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType) ([]core.WorkerType, error) {
	if req.Strategy == core.StrategySequential {
		return requestedTypes, nil
	}

	if len(req.Coordination.Dependencies) > 0 {
		return ResolveOrder(requestedTypes, dependencies)
	}

	order, err := o.deps.InitializationOrder(requestedTypes)
	if err != nil {
		return nil, err
	}
	if err := verifyOrder(order, dependencies); err != nil {
		return nil, err
	}
	return order, nil
}

// dependencyGraph picks the graph used for resolution and the
// failed-dependency skip policy: the request's declared map when present,
// the validator's graph otherwise.
func (o *Orchestrator) dependencyGraph(req Request) map[core.WorkerType][]core.WorkerType {
	if len(req.Coordination.Dependencies) > 0 {
		return req.Coordination.Dependencies
	}
	if v, ok := o.deps.(*DefaultDependencyValidator); ok {
		return v.Dependencies()
	}
	return DefaultDependencies
}

// checkProgress reports a phase transition and folds context cancellation
// into the cooperative cancellation path
func (o *Orchestrator) checkProgress(ctx context.Context, req Request, phase core.InitializationPhase, percentage int) bool {
	if ctx.Err() != nil {
		return false
	}
	if req.Progress == nil {
		return true
	}
	return req.Progress(phase, percentage)
}

// finishCancelled marks every enabled worker as cancelled when the run was
// aborted before the per-worker loop started
func (o *Orchestrator) finishCancelled(resp *Response, req Request, start time.Time) *Response {
	for _, config := range req.Configurations {
		if !config.Enabled {
			continue
		}
		resp.WorkerStatuses = append(resp.WorkerStatuses, core.WorkerInitializationStatus{
			WorkerType:   config.WorkerType,
			Result:       core.ResultCancelled,
			ErrorMessage: core.ErrCancelled.Error(),
		})
		resp.FailedWorkers = append(resp.FailedWorkers, config.WorkerType)
	}
	resp.Result = core.ResultCancelled
	resp.ErrorMessage = core.ErrCancelled.Error()
	resp.TotalInitializationTime = time.Since(start)
	return resp
}

// enabledInOrder filters the resolved order down to enabled, configured types
func enabledInOrder(order []core.WorkerType, configs map[core.WorkerType]core.WorkerConfiguration) []core.WorkerType {
	var enabled []core.WorkerType
	for _, wt := range order {
		config, ok := configs[wt]
		if !ok || !config.Enabled {
			continue
		}
		enabled = append(enabled, wt)
	}
	return enabled
}

// failedDependency reports the first enabled dependency of wt that already
// failed. Disabled or unrequested dependencies do not gate their dependents.
func failedDependency(wt core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType, failed map[core.WorkerType]bool) (core.WorkerType, bool) {
	for _, dep := range dependencies[wt] {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}
