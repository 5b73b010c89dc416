package core

// WorkerType categorizes the background workers the orchestrator manages
type WorkerType string

const (
	WorkerTypeVAD         WorkerType = "vad"         // Voice activity detection
	WorkerTypeTranscriber WorkerType = "transcriber" // Speech-to-text model
	WorkerTypeLLM         WorkerType = "llm"         // LLM post-processing
	WorkerTypeListener    WorkerType = "listener"    // Hotkey listener
	WorkerTypeVisualizer  WorkerType = "visualizer"  // Audio level visualizer
)

// AllWorkerTypes lists every known worker type in declaration order
var AllWorkerTypes = []WorkerType{
	WorkerTypeVAD,
	WorkerTypeTranscriber,
	WorkerTypeLLM,
	WorkerTypeListener,
	WorkerTypeVisualizer,
}

// InitializationResult classifies the outcome of an orchestration run
// or of a single worker within it
type InitializationResult string

const (
	ResultSuccess          InitializationResult = "success"
	ResultPartialSuccess   InitializationResult = "partial_success"
	ResultFailed           InitializationResult = "failed"
	ResultCancelled        InitializationResult = "cancelled"
	ResultDependencyFailed InitializationResult = "dependency_failed"
)

// InitializationStrategy determines how the orchestrator orders worker startup
type InitializationStrategy string

const (
	// StrategyDependencyBased initializes workers in topological order of
	// the declared dependency graph (default)
	StrategyDependencyBased InitializationStrategy = "dependency_based"

	// StrategySequential initializes workers in declaration order,
	// skipping dependency resolution
	StrategySequential InitializationStrategy = "sequential"

	// StrategyParallel initializes workers concurrently; a worker still
	// waits for its declared dependencies to reach a terminal state
	StrategyParallel InitializationStrategy = "parallel"
)

// InitializationPhase identifies where an orchestration run currently is.
// Phases are reported through the progress callback.
type InitializationPhase string

const (
	PhaseInitializing            InitializationPhase = "initializing"
	PhaseValidatingConfiguration InitializationPhase = "validating_configuration"
	PhaseCleaningUpExisting      InitializationPhase = "cleaning_up_existing"
	PhaseCreatingWorker          InitializationPhase = "creating_worker"
	PhaseCreatingThread          InitializationPhase = "creating_thread"
	PhaseMovingToThread          InitializationPhase = "moving_to_thread"
	PhaseConnectingSignals       InitializationPhase = "connecting_signals"
	PhaseStartingWorker          InitializationPhase = "starting_worker"
	PhaseVerifyingInitialization InitializationPhase = "verifying_initialization"
	PhaseCompleted               InitializationPhase = "completed"
)

// CoordinationMode defines how started workers exchange work with each other
type CoordinationMode string

const (
	// ModeIndependent runs workers without any cross-worker wiring
	ModeIndependent CoordinationMode = "independent"

	// ModeSequential chains workers in resolved order, each feeding the next
	ModeSequential CoordinationMode = "sequential"

	// ModeParallel runs workers side by side, synchronized at declared points
	ModeParallel CoordinationMode = "parallel"

	// ModePipeline chains workers like ModeSequential but with buffered
	// hand-off channels between every pair
	ModePipeline CoordinationMode = "pipeline"

	// ModeProducerConsumer connects declared producer/consumer pairs through
	// a shared buffered channel
	ModeProducerConsumer CoordinationMode = "producer_consumer"
)

// ThreadState tracks the lifecycle of a worker's execution unit
type ThreadState string

const (
	ThreadStateCreated  ThreadState = "created"
	ThreadStateStarting ThreadState = "starting"
	ThreadStateRunning  ThreadState = "running"
	ThreadStateStopping ThreadState = "stopping"
	ThreadStateStopped  ThreadState = "stopped"
	ThreadStateError    ThreadState = "error"
)
