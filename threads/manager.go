// Package threads runs workers on managed goroutines: start acknowledgement
// bounded by a timeout, panic containment, runtime metrics, and restart of
// stopped threads.
package threads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	"github.com/google/uuid"
)

const defaultBufferSize = 64

// Config tunes the thread manager
type Config struct {
	// MaxThreads caps the number of live threads; zero means unlimited
	MaxThreads int

	// BufferSize sizes each thread's signal channels
	BufferSize int

	Logger telemetry.Logger
}

// Manager implements core.ThreadManager over goroutines
type Manager struct {
	cfg    Config
	logger telemetry.Logger

	mu      sync.Mutex
	threads map[string]*Thread
}

func NewManager(cfg Config) *Manager {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.New(telemetry.Config{Level: "info"})
	}
	return &Manager{
		cfg:     cfg,
		logger:  cfg.Logger.WithModule("threads"),
		threads: make(map[string]*Thread),
	}
}

// Thread is a goroutine-backed execution unit for one worker
type Thread struct {
	id   string
	name string

	input  chan core.Signal
	output chan core.Signal

	mu         sync.Mutex
	state      core.ThreadState
	worker     core.Worker
	workerType core.WorkerType
	cancel     context.CancelFunc
	done       chan struct{}
	metrics    core.ThreadMetrics
	callbacks  []func(err error)
	cleaned    bool
}

// ID returns the thread's unique identifier
func (t *Thread) ID() string { return t.id }

// Name returns the thread name
func (t *Thread) Name() string { return t.name }

// State returns the thread's lifecycle state
func (t *Thread) State() core.ThreadState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Feed returns the channel feeding signals into the worker
func (t *Thread) Feed() chan<- core.Signal { return t.input }

// Signals returns the channel carrying the worker's output signals
func (t *Thread) Signals() <-chan core.Signal { return t.output }

// Metrics returns a snapshot of the thread's runtime metrics
func (t *Thread) Metrics() core.ThreadMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// OnTerminated registers a callback invoked each time the worker's run loop
// exits, with the error it exited with (nil on clean exit)
func (t *Thread) OnTerminated(fn func(err error)) {
	t.mu.Lock()
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}

// CreateThread allocates a thread in the created state
func (m *Manager) CreateThread(name string) (core.ThreadHandle, error) {
	if name == "" {
		return nil, fmt.Errorf("thread name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxThreads > 0 && len(m.threads) >= m.cfg.MaxThreads {
		return nil, fmt.Errorf("thread limit of %d reached", m.cfg.MaxThreads)
	}

	t := &Thread{
		id:     uuid.NewString(),
		name:   name,
		state:  core.ThreadStateCreated,
		input:  make(chan core.Signal, m.cfg.BufferSize),
		output: make(chan core.Signal, m.cfg.BufferSize),
	}
	m.threads[t.id] = t

	m.logger.Debug("Thread created",
		telemetry.String("thread", name), telemetry.String("id", t.id))
	return t, nil
}

// MoveWorkerToThread assigns a worker to a created thread. A thread hosts
// exactly one worker for its lifetime.
func (m *Manager) MoveWorkerToThread(worker core.Worker, thread core.ThreadHandle) error {
	t, err := m.resolve(thread)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.worker != nil {
		return fmt.Errorf("thread %s already hosts worker %s", t.name, t.worker.Name())
	}
	if t.state != core.ThreadStateCreated {
		return fmt.Errorf("cannot assign worker to %s thread", t.state)
	}

	t.worker = worker
	t.workerType = worker.Type()
	return nil
}

// StartThread launches the worker's run loop and waits for its start
// acknowledgement, bounded by timeout. Workers implementing core.Warmer are
// warmed up before the acknowledgement. Stopped and errored threads restart.
func (m *Manager) StartThread(ctx context.Context, thread core.ThreadHandle, timeout time.Duration) error {
	t, err := m.resolve(thread)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.worker == nil {
		t.mu.Unlock()
		return fmt.Errorf("thread %s has no worker assigned", t.name)
	}
	switch t.state {
	case core.ThreadStateCreated:
	case core.ThreadStateStopped, core.ThreadStateError:
		t.metrics.RestartCount++
	default:
		t.mu.Unlock()
		return fmt.Errorf("cannot start %s thread", t.state)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	t.state = core.ThreadStateStarting
	t.cancel = cancel
	t.done = make(chan struct{})
	t.metrics.StartTime = time.Now()
	t.metrics.StopTime = time.Time{}
	done := t.done
	worker := t.worker
	t.mu.Unlock()

	ack := make(chan error, 1)

	go func() {
		runErr := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker panic: %v", r)
				}
			}()

			if warmer, ok := worker.(core.Warmer); ok {
				if err := warmer.Warmup(runCtx); err != nil {
					ack <- err
					return err
				}
			}
			ack <- nil

			t.mu.Lock()
			t.state = core.ThreadStateRunning
			t.mu.Unlock()

			return worker.Run(runCtx, t.input, t.output)
		}()
		t.finish(runErr)
		close(done)
	}()

	select {
	case err := <-ack:
		if err != nil {
			cancel()
			return fmt.Errorf("starting thread %s: %w", t.name, err)
		}
		m.logger.Debug("Thread started", telemetry.String("thread", t.name))
		return nil
	case <-time.After(timeout):
		cancel()
		return fmt.Errorf("thread %s did not acknowledge start within %s", t.name, timeout)
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

// finish records the run loop's exit and notifies termination callbacks
func (t *Thread) finish(runErr error) {
	t.mu.Lock()
	t.metrics.StopTime = time.Now()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		t.state = core.ThreadStateError
		t.metrics.ErrorCount++
		t.metrics.LastError = runErr.Error()
		t.metrics.LastErrorTime = time.Now()
	} else {
		t.state = core.ThreadStateStopped
		runErr = nil
	}
	callbacks := make([]func(error), len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(runErr)
	}
}

// StopThread cancels the worker's run loop and waits for it to exit, bounded
// by timeout. Stopping a never-started thread is a no-op.
func (m *Manager) StopThread(thread core.ThreadHandle, timeout time.Duration) error {
	t, err := m.resolve(thread)
	if err != nil {
		return err
	}

	t.mu.Lock()
	switch t.state {
	case core.ThreadStateStarting, core.ThreadStateRunning:
	default:
		t.mu.Unlock()
		return nil
	}
	t.state = core.ThreadStateStopping
	cancel := t.cancel
	done := t.done
	t.mu.Unlock()

	cancel()

	select {
	case <-done:
		m.logger.Debug("Thread stopped", telemetry.String("thread", t.name))
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("thread %s did not stop within %s", t.name, timeout)
	}
}

// IsThreadRunning reports whether the worker's run loop is active
func (m *Manager) IsThreadRunning(thread core.ThreadHandle) bool {
	t, err := m.resolve(thread)
	if err != nil {
		return false
	}
	state := t.State()
	return state == core.ThreadStateStarting || state == core.ThreadStateRunning
}

// CleanupThread releases a stopped thread. Cleanup is idempotent: cleaning
// an already-cleaned thread is a no-op.
func (m *Manager) CleanupThread(thread core.ThreadHandle) error {
	t, err := m.resolve(thread)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if t.cleaned {
		t.mu.Unlock()
		return nil
	}
	switch t.state {
	case core.ThreadStateStarting, core.ThreadStateRunning, core.ThreadStateStopping:
		t.mu.Unlock()
		return fmt.Errorf("cannot clean up %s thread %s", t.state, t.name)
	}
	t.cleaned = true
	t.mu.Unlock()

	m.mu.Lock()
	delete(m.threads, t.id)
	m.mu.Unlock()

	m.logger.Debug("Thread cleaned up", telemetry.String("thread", t.name))
	return nil
}

// ThreadsByType returns the live threads hosting workers of the given type
func (m *Manager) ThreadsByType(wt core.WorkerType) []*Thread {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Thread
	for _, t := range m.threads {
		t.mu.Lock()
		match := t.workerType == wt && t.worker != nil
		t.mu.Unlock()
		if match {
			out = append(out, t)
		}
	}
	return out
}

// ThreadFor returns the live thread hosting the given worker, or nil
func (m *Manager) ThreadFor(worker core.Worker) *Thread {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.threads {
		t.mu.Lock()
		match := t.worker == worker
		t.mu.Unlock()
		if match {
			return t
		}
	}
	return nil
}

func (m *Manager) resolve(thread core.ThreadHandle) (*Thread, error) {
	t, ok := thread.(*Thread)
	if !ok {
		return nil, fmt.Errorf("foreign thread handle %T", thread)
	}
	return t, nil
}
