package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

func testLogger() telemetry.Logger {
	return telemetry.New(telemetry.Config{Level: "error"})
}

// fakeWorker blocks until its context is cancelled
type fakeWorker struct {
	name string
	wt   core.WorkerType
}

func (w *fakeWorker) Name() string          { return w.name }
func (w *fakeWorker) Type() core.WorkerType { return w.wt }
func (w *fakeWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	<-ctx.Done()
	return ctx.Err()
}

// fakeFactory builds fakeWorkers and records per-type call counts
type fakeFactory struct {
	mu         sync.Mutex
	calls      map[core.WorkerType]int
	transient  map[core.WorkerType]int // fail this many attempts, then succeed
	failAlways map[core.WorkerType]bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		calls:      make(map[core.WorkerType]int),
		transient:  make(map[core.WorkerType]int),
		failAlways: make(map[core.WorkerType]bool),
	}
}

func (f *fakeFactory) create(wt core.WorkerType) (core.Worker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[wt]++
	if f.failAlways[wt] {
		return nil, fmt.Errorf("%s backend unavailable", wt)
	}
	if f.transient[wt] > 0 {
		f.transient[wt]--
		return nil, fmt.Errorf("%s transient failure", wt)
	}
	return &fakeWorker{name: string(wt), wt: wt}, nil
}

func (f *fakeFactory) callCount(wt core.WorkerType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[wt]
}

func (f *fakeFactory) CreateVADWorker() (core.Worker, error) {
	return f.create(core.WorkerTypeVAD)
}
func (f *fakeFactory) CreateModelWorker(modelName, quantization string) (core.Worker, error) {
	return f.create(core.WorkerTypeTranscriber)
}
func (f *fakeFactory) CreateLLMWorker(modelName, quantization string) (core.Worker, error) {
	return f.create(core.WorkerTypeLLM)
}
func (f *fakeFactory) CreateListenerWorker() (core.Worker, error) {
	return f.create(core.WorkerTypeListener)
}
func (f *fakeFactory) CreateVisualizerWorker() (core.Worker, error) {
	return f.create(core.WorkerTypeVisualizer)
}

type fakeThreadHandle struct {
	id   string
	name string
}

func (t *fakeThreadHandle) ID() string              { return t.id }
func (t *fakeThreadHandle) Name() string            { return t.name }
func (t *fakeThreadHandle) State() core.ThreadState { return core.ThreadStateRunning }

// fakeThreads records thread operations; startErr fails StartThread for the
// named thread
type fakeThreads struct {
	mu       sync.Mutex
	sequence int
	running  map[string]bool
	startErr map[string]error
}

func newFakeThreads() *fakeThreads {
	return &fakeThreads{
		running:  make(map[string]bool),
		startErr: make(map[string]error),
	}
}

func (m *fakeThreads) CreateThread(name string) (core.ThreadHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence++
	return &fakeThreadHandle{id: fmt.Sprintf("thread-%d", m.sequence), name: name}, nil
}

func (m *fakeThreads) MoveWorkerToThread(worker core.Worker, thread core.ThreadHandle) error {
	return nil
}

func (m *fakeThreads) StartThread(ctx context.Context, thread core.ThreadHandle, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.startErr[thread.Name()]; err != nil {
		return err
	}
	m.running[thread.ID()] = true
	return nil
}

func (m *fakeThreads) StopThread(thread core.ThreadHandle, timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[thread.ID()] = false
	return nil
}

func (m *fakeThreads) IsThreadRunning(thread core.ThreadHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running[thread.ID()]
}

func (m *fakeThreads) CleanupThread(thread core.ThreadHandle) error { return nil }

type fakeSignals struct {
	mu       sync.Mutex
	connects []core.WorkerType
}

func (s *fakeSignals) ConnectWorkerSignals(worker core.Worker, workerType core.WorkerType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects = append(s.connects, workerType)
	return nil
}

func (s *fakeSignals) DisconnectWorkerSignals(worker core.Worker) error { return nil }

type fakeCleanup struct {
	mu          sync.Mutex
	existingErr error
	existing    [][]core.WorkerType
	cleaned     []core.WorkerType
	gcRuns      int
}

func (c *fakeCleanup) CleanupExistingWorkers(workerTypes []core.WorkerType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.existing = append(c.existing, workerTypes)
	return c.existingErr
}

func (c *fakeCleanup) CleanupWorker(worker core.Worker, workerType core.WorkerType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleaned = append(c.cleaned, workerType)
	return nil
}

func (c *fakeCleanup) ForceGarbageCollection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gcRuns++
}

func (c *fakeCleanup) GetMemoryUsage() (float64, error) { return 42.5, nil }

func newTestOrchestrator(t *testing.T, factory *fakeFactory) (*Orchestrator, *fakeThreads, *fakeCleanup) {
	t.Helper()
	threads := newFakeThreads()
	cleanup := &fakeCleanup{}
	o, err := New(Config{
		Factory: factory,
		Threads: threads,
		Signals: &fakeSignals{},
		Cleanup: cleanup,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return o, threads, cleanup
}

func workerConfig(wt core.WorkerType) core.WorkerConfiguration {
	config := core.WorkerConfiguration{
		WorkerType: wt,
		Enabled:    true,
		AutoStart:  true,
		Timeout:    time.Second,
	}
	switch wt {
	case core.WorkerTypeTranscriber:
		config.ModelName = "whisper-base"
		config.Quantization = "int8"
	case core.WorkerTypeLLM:
		config.LLMModelName = "llama-3b"
		config.LLMQuantization = "q4"
	}
	return config
}

func allConfigs() []core.WorkerConfiguration {
	configs := make([]core.WorkerConfiguration, 0, len(core.AllWorkerTypes))
	for _, wt := range core.AllWorkerTypes {
		configs = append(configs, workerConfig(wt))
	}
	return configs
}

func statusFor(t *testing.T, resp *Response, wt core.WorkerType) core.WorkerInitializationStatus {
	t.Helper()
	for _, status := range resp.WorkerStatuses {
		if status.WorkerType == wt {
			return status
		}
	}
	t.Fatalf("no status recorded for %s", wt)
	return core.WorkerInitializationStatus{}
}

func TestInitializeAllSuccess(t *testing.T) {
	factory := newFakeFactory()
	o, _, cleanup := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{
		Configurations:       allConfigs(),
		CleanupExisting:      true,
		ValidateDependencies: true,
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", resp.Result, resp.ErrorMessage)
	}
	if len(resp.SuccessfulWorkers) != len(core.AllWorkerTypes) {
		t.Fatalf("expected %d successful workers, got %d", len(core.AllWorkerTypes), len(resp.SuccessfulWorkers))
	}
	if len(resp.FailedWorkers) != 0 {
		t.Fatalf("unexpected failed workers: %v", resp.FailedWorkers)
	}
	if !resp.CleanupPerformed {
		t.Fatal("expected cleanup to run")
	}
	if !resp.DependenciesValidated {
		t.Fatal("expected dependency validation to run")
	}
	if resp.Coordination == nil || resp.Lifecycle == nil || resp.Monitoring == nil {
		t.Fatal("expected coordination, lifecycle and monitoring handles")
	}
	if cleanup.gcRuns == 0 {
		t.Fatal("expected a garbage collection pass after cleanup")
	}

	for _, wt := range core.AllWorkerTypes {
		status := statusFor(t, resp, wt)
		if !status.Initialized || !status.Started {
			t.Fatalf("%s worker not fully initialized: %+v", wt, status)
		}
		if status.WorkerID == "" || status.ThreadID == "" {
			t.Fatalf("%s worker missing identifiers", wt)
		}
		if status.MemoryUsageMB != 42.5 {
			t.Fatalf("%s worker memory not sampled", wt)
		}
	}

	// Dependency order: every dependency initializes before its dependents
	position := make(map[core.WorkerType]int)
	for i, status := range resp.WorkerStatuses {
		position[status.WorkerType] = i
	}
	for wt, deps := range DefaultDependencies {
		for _, dep := range deps {
			if position[dep] > position[wt] {
				t.Fatalf("%s initialized before its dependency %s", wt, dep)
			}
		}
	}
}

func TestInitializePartialSuccess(t *testing.T) {
	factory := newFakeFactory()
	factory.failAlways[core.WorkerTypeLLM] = true
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{Configurations: allConfigs()})

	if resp.Result != core.ResultPartialSuccess {
		t.Fatalf("expected partial success, got %s", resp.Result)
	}
	if len(resp.FailedWorkers) != 1 || resp.FailedWorkers[0] != core.WorkerTypeLLM {
		t.Fatalf("expected only llm to fail, got %v", resp.FailedWorkers)
	}

	status := statusFor(t, resp, core.WorkerTypeLLM)
	if status.Result != core.ResultFailed {
		t.Fatalf("expected llm failed, got %s", status.Result)
	}
	if !strings.Contains(status.ErrorMessage, "backend unavailable") {
		t.Fatalf("unexpected error message: %s", status.ErrorMessage)
	}

	// Nothing depends on the LLM worker, so everyone else succeeds
	for _, wt := range []core.WorkerType{core.WorkerTypeVAD, core.WorkerTypeTranscriber, core.WorkerTypeListener, core.WorkerTypeVisualizer} {
		if !statusFor(t, resp, wt).Initialized {
			t.Fatalf("%s worker should have initialized", wt)
		}
	}
}

func TestInitializeDependencyFailureSkipsDependents(t *testing.T) {
	factory := newFakeFactory()
	factory.failAlways[core.WorkerTypeVAD] = true
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{Configurations: allConfigs()})

	if resp.Result != core.ResultFailed {
		t.Fatalf("expected failed, got %s", resp.Result)
	}
	if resp.ErrorMessage != "all worker initializations failed" {
		t.Fatalf("unexpected error message: %s", resp.ErrorMessage)
	}

	for _, wt := range []core.WorkerType{core.WorkerTypeTranscriber, core.WorkerTypeLLM, core.WorkerTypeListener, core.WorkerTypeVisualizer} {
		status := statusFor(t, resp, wt)
		if status.Result != core.ResultDependencyFailed {
			t.Fatalf("expected %s to be dependency_failed, got %s", wt, status.Result)
		}
		if !strings.Contains(status.ErrorMessage, "dependency") {
			t.Fatalf("%s error should name the failed dependency: %s", wt, status.ErrorMessage)
		}
		// Skipped dependents never reach the factory
		if factory.callCount(wt) != 0 {
			t.Fatalf("factory called %d times for skipped worker %s", factory.callCount(wt), wt)
		}
	}
}

func TestInitializeRetriesTransientCreationFailures(t *testing.T) {
	factory := newFakeFactory()
	factory.transient[core.WorkerTypeVAD] = 2
	o, _, _ := newTestOrchestrator(t, factory)

	config := workerConfig(core.WorkerTypeVAD)
	config.RetryCount = 3

	resp := o.Initialize(context.Background(), Request{
		Configurations: []core.WorkerConfiguration{config},
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success after retries, got %s", resp.Result)
	}
	if got := factory.callCount(core.WorkerTypeVAD); got != 3 {
		t.Fatalf("expected 3 creation attempts, got %d", got)
	}
}

func TestInitializeRetryBudgetExhausted(t *testing.T) {
	factory := newFakeFactory()
	factory.transient[core.WorkerTypeVAD] = 5
	o, _, _ := newTestOrchestrator(t, factory)

	config := workerConfig(core.WorkerTypeVAD)
	config.RetryCount = 1

	resp := o.Initialize(context.Background(), Request{
		Configurations: []core.WorkerConfiguration{config},
	})

	if resp.Result != core.ResultFailed {
		t.Fatalf("expected failed, got %s", resp.Result)
	}
	if got := factory.callCount(core.WorkerTypeVAD); got != 2 {
		t.Fatalf("expected 2 creation attempts, got %d", got)
	}
}

func TestInitializeCancelledMidway(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	creating := 0
	resp := o.Initialize(context.Background(), Request{
		Configurations: allConfigs(),
		Progress: func(phase core.InitializationPhase, percentage int) bool {
			if phase == core.PhaseCreatingWorker {
				creating++
				return creating < 3
			}
			return true
		},
	})

	if resp.Result != core.ResultCancelled {
		t.Fatalf("expected cancelled, got %s", resp.Result)
	}
	if len(resp.SuccessfulWorkers) != 2 {
		t.Fatalf("expected 2 workers before cancellation, got %d", len(resp.SuccessfulWorkers))
	}

	cancelled := 0
	for _, status := range resp.WorkerStatuses {
		if status.Result == core.ResultCancelled {
			cancelled++
			if status.ErrorMessage == "" {
				t.Fatalf("cancelled %s worker has no error message", status.WorkerType)
			}
		}
	}
	if cancelled != 3 {
		t.Fatalf("expected 3 cancelled workers, got %d", cancelled)
	}
}

func TestInitializeContextCancelled(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := o.Initialize(ctx, Request{Configurations: allConfigs()})

	if resp.Result != core.ResultCancelled {
		t.Fatalf("expected cancelled, got %s", resp.Result)
	}
	if len(resp.WorkerStatuses) != len(core.AllWorkerTypes) {
		t.Fatalf("expected every enabled worker marked cancelled, got %d statuses", len(resp.WorkerStatuses))
	}
	for _, status := range resp.WorkerStatuses {
		if status.Result != core.ResultCancelled {
			t.Fatalf("%s worker not marked cancelled: %s", status.WorkerType, status.Result)
		}
	}
	if factory.callCount(core.WorkerTypeVAD) != 0 {
		t.Fatal("no worker should have been created")
	}
}

func TestInitializeCyclicDependencies(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{
		Configurations: []core.WorkerConfiguration{
			workerConfig(core.WorkerTypeVAD),
			workerConfig(core.WorkerTypeLLM),
		},
		Coordination: core.CoordinationConfiguration{
			Dependencies: map[core.WorkerType][]core.WorkerType{
				core.WorkerTypeVAD: {core.WorkerTypeLLM},
				core.WorkerTypeLLM: {core.WorkerTypeVAD},
			},
		},
	})

	if resp.Result != core.ResultDependencyFailed {
		t.Fatalf("expected dependency_failed, got %s", resp.Result)
	}
	if !strings.Contains(resp.ErrorMessage, "->") {
		t.Fatalf("error should name the cycle: %s", resp.ErrorMessage)
	}
	if factory.callCount(core.WorkerTypeVAD)+factory.callCount(core.WorkerTypeLLM) != 0 {
		t.Fatal("no worker should be created when the graph is cyclic")
	}
	if len(resp.WorkerStatuses) != 0 {
		t.Fatalf("expected no worker statuses, got %d", len(resp.WorkerStatuses))
	}
}

func TestInitializeValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "no configurations",
			req:  Request{},
			want: "no worker configurations",
		},
		{
			name: "duplicate worker type",
			req: Request{Configurations: []core.WorkerConfiguration{
				workerConfig(core.WorkerTypeVAD),
				workerConfig(core.WorkerTypeVAD),
			}},
			want: "duplicate configuration",
		},
		{
			name: "unknown strategy",
			req: Request{
				Configurations: []core.WorkerConfiguration{workerConfig(core.WorkerTypeVAD)},
				Strategy:       "quantum",
			},
			want: "unknown initialization strategy",
		},
		{
			name: "transcriber without model",
			req: Request{Configurations: []core.WorkerConfiguration{{
				WorkerType: core.WorkerTypeTranscriber,
				Enabled:    true,
				Timeout:    time.Second,
			}}},
			want: "model name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newFakeFactory()
			o, _, _ := newTestOrchestrator(t, factory)

			resp := o.Initialize(context.Background(), tt.req)
			if resp.Result != core.ResultFailed {
				t.Fatalf("expected failed, got %s", resp.Result)
			}
			if !strings.Contains(resp.ErrorMessage, tt.want) {
				t.Fatalf("error %q does not mention %q", resp.ErrorMessage, tt.want)
			}
			if factory.callCount(core.WorkerTypeVAD) != 0 {
				t.Fatal("validation failure must not create workers")
			}
		})
	}
}

func TestInitializeStartFailure(t *testing.T) {
	factory := newFakeFactory()
	o, threads, cleanup := newTestOrchestrator(t, factory)
	threads.startErr["vad_thread"] = errors.New("start deadline exceeded")

	config := workerConfig(core.WorkerTypeVAD)
	config.CleanupOnFailure = true

	resp := o.Initialize(context.Background(), Request{
		Configurations: []core.WorkerConfiguration{config},
	})

	if resp.Result != core.ResultFailed {
		t.Fatalf("expected failed, got %s", resp.Result)
	}
	status := statusFor(t, resp, core.WorkerTypeVAD)
	if status.Started {
		t.Fatal("worker must not be marked started")
	}
	if !strings.Contains(status.ErrorMessage, "starting") {
		t.Fatalf("error should name the failing step: %s", status.ErrorMessage)
	}
	if len(cleanup.cleaned) != 1 || cleanup.cleaned[0] != core.WorkerTypeVAD {
		t.Fatalf("expected failed worker to be cleaned up, got %v", cleanup.cleaned)
	}
}

func TestInitializeCleanupFailureIsWarning(t *testing.T) {
	factory := newFakeFactory()
	threads := newFakeThreads()
	cleanup := &fakeCleanup{existingErr: errors.New("stale thread is stuck")}
	o, err := New(Config{
		Factory: factory,
		Threads: threads,
		Signals: &fakeSignals{},
		Cleanup: cleanup,
		Logger:  testLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp := o.Initialize(context.Background(), Request{
		Configurations:  allConfigs(),
		CleanupExisting: true,
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("cleanup failure must not fail the run, got %s", resp.Result)
	}
	if resp.CleanupPerformed {
		t.Fatal("cleanup must not be marked performed")
	}
	found := false
	for _, warning := range resp.Warnings {
		if strings.Contains(warning, "stale thread is stuck") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cleanup warning, got %v", resp.Warnings)
	}
}

func TestInitializeSequentialStrategyKeepsDeclarationOrder(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{
		Configurations: []core.WorkerConfiguration{
			workerConfig(core.WorkerTypeVisualizer),
			workerConfig(core.WorkerTypeVAD),
		},
		Strategy: core.StrategySequential,
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success, got %s", resp.Result)
	}
	if resp.WorkerStatuses[0].WorkerType != core.WorkerTypeVisualizer {
		t.Fatalf("sequential strategy must keep declaration order, got %s first", resp.WorkerStatuses[0].WorkerType)
	}
}

func TestInitializeParallelStrategy(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{
		Configurations: allConfigs(),
		Strategy:       core.StrategyParallel,
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success, got %s (%s)", resp.Result, resp.ErrorMessage)
	}
	if len(resp.SuccessfulWorkers) != len(core.AllWorkerTypes) {
		t.Fatalf("expected all workers, got %d", len(resp.SuccessfulWorkers))
	}
}

func TestInitializeParallelSkipsDependentsOfFailure(t *testing.T) {
	factory := newFakeFactory()
	factory.failAlways[core.WorkerTypeVAD] = true
	o, _, _ := newTestOrchestrator(t, factory)

	resp := o.Initialize(context.Background(), Request{
		Configurations: allConfigs(),
		Strategy:       core.StrategyParallel,
	})

	if resp.Result != core.ResultFailed {
		t.Fatalf("expected failed, got %s", resp.Result)
	}
	for _, wt := range []core.WorkerType{core.WorkerTypeTranscriber, core.WorkerTypeLLM, core.WorkerTypeListener, core.WorkerTypeVisualizer} {
		if factory.callCount(wt) != 0 {
			t.Fatalf("factory called for %s despite failed dependency", wt)
		}
		status := statusFor(t, resp, wt)
		if status.Result != core.ResultDependencyFailed {
			t.Fatalf("expected %s dependency_failed, got %s", wt, status.Result)
		}
	}
}

func TestInitializeDisabledWorkersAreSkipped(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	configs := allConfigs()
	for i := range configs {
		if configs[i].WorkerType == core.WorkerTypeLLM {
			configs[i].Enabled = false
		}
	}

	resp := o.Initialize(context.Background(), Request{Configurations: configs})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success, got %s", resp.Result)
	}
	if factory.callCount(core.WorkerTypeLLM) != 0 {
		t.Fatal("disabled worker must not be created")
	}
	for _, status := range resp.WorkerStatuses {
		if status.WorkerType == core.WorkerTypeLLM {
			t.Fatal("disabled worker must not get a status")
		}
	}
}

func TestInitializeProgressPhases(t *testing.T) {
	factory := newFakeFactory()
	o, _, _ := newTestOrchestrator(t, factory)

	type report struct {
		phase core.InitializationPhase
		pct   int
	}
	var reports []report

	resp := o.Initialize(context.Background(), Request{
		Configurations:  allConfigs(),
		CleanupExisting: true,
		Progress: func(phase core.InitializationPhase, percentage int) bool {
			reports = append(reports, report{phase, percentage})
			return true
		},
	})

	if resp.Result != core.ResultSuccess {
		t.Fatalf("expected success, got %s", resp.Result)
	}

	if reports[0].phase != core.PhaseInitializing || reports[0].pct != 0 {
		t.Fatalf("first report should be initializing at 0, got %+v", reports[0])
	}
	last := reports[len(reports)-1]
	if last.phase != core.PhaseCompleted || last.pct != 100 {
		t.Fatalf("last report should be completed at 100, got %+v", last)
	}

	prev := -1
	creating := 0
	for _, r := range reports {
		if r.pct < prev {
			t.Fatalf("progress went backwards: %d after %d", r.pct, prev)
		}
		prev = r.pct
		if r.phase == core.PhaseCreatingWorker {
			creating++
			if r.pct < 15 || r.pct > 85 {
				t.Fatalf("per-worker progress outside window: %d", r.pct)
			}
		}
	}
	if creating != len(core.AllWorkerTypes) {
		t.Fatalf("expected one creating_worker report per worker, got %d", creating)
	}
}
