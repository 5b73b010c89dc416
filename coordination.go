package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// signalBus is the optional channel surface of a thread handle. Threads that
// expose it can be wired into pipelines and producer/consumer pairs.
type signalBus interface {
	Feed() chan<- core.Signal
	Signals() <-chan core.Signal
}

// SyncPoint is a reusable rendezvous barrier: Wait blocks until every
// participant has arrived, then the barrier resets for the next round.
type SyncPoint struct {
	name         string
	participants int

	mu      sync.Mutex
	arrived int
	release chan struct{}
}

// NewSyncPoint creates a barrier for the given number of participants
func NewSyncPoint(name string, participants int) *SyncPoint {
	if participants < 1 {
		participants = 1
	}
	return &SyncPoint{
		name:         name,
		participants: participants,
		release:      make(chan struct{}),
	}
}

// Name returns the synchronization point name
func (s *SyncPoint) Name() string {
	return s.name
}

// Wait blocks until all participants arrive or the context is cancelled.
// A cancelled waiter withdraws its arrival so the barrier does not trip
// with a missing participant.
func (s *SyncPoint) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.arrived++
	release := s.release
	if s.arrived == s.participants {
		s.arrived = 0
		s.release = make(chan struct{})
		close(release)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		s.mu.Lock()
		if s.release == release {
			s.arrived--
		}
		s.mu.Unlock()
		return ctx.Err()
	case <-release:
		return nil
	}
}

// SharedResource serializes access to a named resource shared across workers
type SharedResource struct {
	name string
	sem  chan struct{}
}

func NewSharedResource(name string) *SharedResource {
	return &SharedResource{name: name, sem: make(chan struct{}, 1)}
}

// Name returns the resource name
func (r *SharedResource) Name() string {
	return r.name
}

// Acquire takes the resource, blocking until it is free or ctx is cancelled
func (r *SharedResource) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.sem <- struct{}{}:
		return nil
	}
}

// Release returns the resource. Releasing an unheld resource is a no-op.
func (r *SharedResource) Release() {
	select {
	case <-r.sem:
	default:
	}
}

// Coordination is the run-scoped coordination handle: dependency edges,
// synchronization points, shared resources and the channel pumps wired
// between workers.
type Coordination struct {
	mode              core.CoordinationMode
	order             []core.WorkerType
	logger            telemetry.Logger
	deadlockDetection bool

	workers map[core.WorkerType]*workerRuntime

	mu           sync.Mutex
	dependencies map[core.WorkerType][]core.WorkerType
	syncPoints   map[string]*SyncPoint
	resources    map[string]*SharedResource
	channels     map[core.WorkerType]core.WorkerType

	ctx    context.Context
	cancel context.CancelFunc
	pumps  sync.WaitGroup
}

// CoordinationService builds Coordination handles
type CoordinationService struct {
	logger telemetry.Logger
}

func NewCoordinationService(logger telemetry.Logger) *CoordinationService {
	return &CoordinationService{logger: logger.WithModule("coordination")}
}

// Setup creates the coordination handle for the created workers and applies
// the mode's default wiring. Pipeline mode chains the created workers along
// the initialization order; the other modes wire nothing up front.
func (s *CoordinationService) Setup(ctx context.Context, cfg core.CoordinationConfiguration, workers map[core.WorkerType]*workerRuntime, order []core.WorkerType) (*Coordination, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = core.ModeIndependent
	}
	switch mode {
	case core.ModeIndependent, core.ModeSequential, core.ModeParallel, core.ModePipeline, core.ModeProducerConsumer:
	default:
		return nil, core.ValidationError{
			Message: "coordination setup failed",
			Details: fmt.Sprintf("unknown coordination mode %q", mode),
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	coord := &Coordination{
		mode:              mode,
		order:             order,
		logger:            s.logger,
		deadlockDetection: cfg.DeadlockDetection,
		workers:           workers,
		dependencies:      make(map[core.WorkerType][]core.WorkerType),
		syncPoints:        make(map[string]*SyncPoint),
		resources:         make(map[string]*SharedResource),
		channels:          make(map[core.WorkerType]core.WorkerType),
		ctx:               runCtx,
		cancel:            cancel,
	}

	for _, name := range cfg.SharedResources {
		coord.resources[name] = NewSharedResource(name)
	}

	if mode == core.ModePipeline {
		var chain []core.WorkerType
		for _, wt := range order {
			if _, ok := workers[wt]; ok {
				chain = append(chain, wt)
			}
		}
		for i := 0; i+1 < len(chain); i++ {
			if err := coord.wireChannel(chain[i], chain[i+1]); err != nil {
				s.logger.Warn("Pipeline wiring skipped",
					telemetry.String("from", string(chain[i])),
					telemetry.String("to", string(chain[i+1])),
					telemetry.Err(err))
			}
		}
	}

	s.logger.Debug("Coordination configured",
		telemetry.String("mode", string(mode)),
		telemetry.Int("workers", len(workers)))

	return coord, nil
}

// Mode returns the coordination mode in effect
func (c *Coordination) Mode() core.CoordinationMode {
	return c.mode
}

// EstablishDependencies records the dependency edges among created workers
// and returns the recorded subgraph. Edges to workers that were not created
// are dropped.
func (c *Coordination) EstablishDependencies(dependencies map[core.WorkerType][]core.WorkerType) (map[core.WorkerType][]core.WorkerType, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for wt := range c.workers {
		for _, dep := range dependencies[wt] {
			if _, ok := c.workers[dep]; !ok {
				continue
			}
			c.dependencies[wt] = append(c.dependencies[wt], dep)
		}
	}
	return c.dependencies, nil
}

// CreateSynchronizationPoints creates one reusable barrier per name, sized
// to the number of created workers
func (c *Coordination) CreateSynchronizationPoints(names []string) (map[string]*SyncPoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		if name == "" {
			return nil, core.ValidationError{
				Message: "synchronization point creation failed",
				Details: "synchronization point name cannot be empty",
			}
		}
		if _, exists := c.syncPoints[name]; exists {
			continue
		}
		c.syncPoints[name] = NewSyncPoint(name, len(c.workers))
	}
	return c.syncPoints, nil
}

// SyncPoint returns the named barrier, or nil when it was never created
func (c *Coordination) SyncPoint(name string) *SyncPoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncPoints[name]
}

// Resource returns the named shared resource, or nil
func (c *Coordination) Resource(name string) *SharedResource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resources[name]
}

// SetupCommunicationChannels wires the declared producer to consumer pairs
// and audits the combined channel and dependency graph for cycles. Pairs
// naming workers that were not created are skipped with a warning.
func (c *Coordination) SetupCommunicationChannels(pairs map[core.WorkerType]core.WorkerType) (int, error) {
	wired := 0
	for from, to := range pairs {
		if err := c.wireChannel(from, to); err != nil {
			c.logger.Warn("Communication channel skipped",
				telemetry.String("from", string(from)),
				telemetry.String("to", string(to)),
				telemetry.Err(err))
			continue
		}
		wired++
	}

	if c.deadlockDetection {
		c.auditDeadlocks()
	}
	return wired, nil
}

// wireChannel starts a pump forwarding the producer's output signals into
// the consumer's input
func (c *Coordination) wireChannel(from, to core.WorkerType) error {
	producer, ok := c.workers[from]
	if !ok {
		return fmt.Errorf("producer %s was not created", from)
	}
	consumer, ok := c.workers[to]
	if !ok {
		return fmt.Errorf("consumer %s was not created", to)
	}

	src, ok := producer.thread.(signalBus)
	if !ok {
		return fmt.Errorf("%s thread does not expose signal channels", from)
	}
	dst, ok := consumer.thread.(signalBus)
	if !ok {
		return fmt.Errorf("%s thread does not expose signal channels", to)
	}

	c.mu.Lock()
	c.channels[from] = to
	c.mu.Unlock()

	c.pumps.Add(1)
	go func() {
		defer c.pumps.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case signal, open := <-src.Signals():
				if !open {
					return
				}
				select {
				case <-c.ctx.Done():
					return
				case dst.Feed() <- signal:
				}
			}
		}
	}()

	return nil
}

// auditDeadlocks walks the channel graph for cycles and logs a warning per
// cycle found. Detection is advisory: a cyclic topology can be intentional.
func (c *Coordination) auditDeadlocks() {
	c.mu.Lock()
	channels := make(map[core.WorkerType]core.WorkerType, len(c.channels))
	for from, to := range c.channels {
		channels[from] = to
	}
	c.mu.Unlock()

	visited := make(map[core.WorkerType]bool)
	for start := range channels {
		if visited[start] {
			continue
		}
		slow := start
		path := []core.WorkerType{start}
		seen := map[core.WorkerType]bool{start: true}
		for {
			visited[slow] = true
			next, ok := channels[slow]
			if !ok {
				break
			}
			if seen[next] {
				path = append(path, next)
				c.logger.Warn("Potential deadlock in communication channels",
					telemetry.String("cycle", joinTypes(path)))
				break
			}
			seen[next] = true
			path = append(path, next)
			slow = next
		}
	}
}

// Stop cancels all channel pumps and waits for them to drain
func (c *Coordination) Stop() {
	c.cancel()
	c.pumps.Wait()
}

func joinTypes(types []core.WorkerType) string {
	out := ""
	for i, wt := range types {
		if i > 0 {
			out += " -> "
		}
		out += string(wt)
	}
	return out
}
