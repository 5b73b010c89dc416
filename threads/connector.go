package threads

import (
	"fmt"
	"sync"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// SignalHandler consumes one signal emitted by a worker
type SignalHandler func(signal core.Signal)

// Connector implements core.SignalConnector. It pumps each connected
// worker's output channel into the handlers registered for its worker type.
// A panicking handler is contained and logged; the pump keeps running.
type Connector struct {
	manager *Manager
	logger  telemetry.Logger

	mu       sync.Mutex
	handlers map[core.WorkerType][]SignalHandler
	pumps    map[core.Worker]chan struct{}
}

func NewConnector(manager *Manager, logger telemetry.Logger) *Connector {
	return &Connector{
		manager:  manager,
		logger:   logger.WithModule("signals"),
		handlers: make(map[core.WorkerType][]SignalHandler),
		pumps:    make(map[core.Worker]chan struct{}),
	}
}

// Register adds a handler for signals from workers of the given type.
// Handlers registered after a worker connected still receive its signals.
func (c *Connector) Register(wt core.WorkerType, handler SignalHandler) {
	c.mu.Lock()
	c.handlers[wt] = append(c.handlers[wt], handler)
	c.mu.Unlock()
}

// ConnectWorkerSignals starts the pump from the worker's thread output to
// the registered handlers. The worker must already be assigned to a thread.
func (c *Connector) ConnectWorkerSignals(worker core.Worker, workerType core.WorkerType) error {
	thread := c.manager.ThreadFor(worker)
	if thread == nil {
		return fmt.Errorf("worker %s is not assigned to a thread", worker.Name())
	}

	c.mu.Lock()
	if _, connected := c.pumps[worker]; connected {
		c.mu.Unlock()
		return fmt.Errorf("worker %s signals already connected", worker.Name())
	}
	stop := make(chan struct{})
	c.pumps[worker] = stop
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case signal, open := <-thread.Signals():
				if !open {
					return
				}
				c.dispatch(workerType, signal)
			}
		}
	}()

	c.logger.Debug("Worker signals connected",
		telemetry.String("worker", worker.Name()),
		telemetry.String("type", string(workerType)))
	return nil
}

// DisconnectWorkerSignals stops the worker's pump. Disconnecting a worker
// that was never connected is a no-op.
func (c *Connector) DisconnectWorkerSignals(worker core.Worker) error {
	c.mu.Lock()
	stop, connected := c.pumps[worker]
	if connected {
		delete(c.pumps, worker)
	}
	c.mu.Unlock()

	if connected {
		close(stop)
	}
	return nil
}

func (c *Connector) dispatch(workerType core.WorkerType, signal core.Signal) {
	c.mu.Lock()
	handlers := make([]SignalHandler, len(c.handlers[workerType]))
	copy(handlers, c.handlers[workerType])
	c.mu.Unlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("Signal handler panicked",
						telemetry.String("type", string(workerType)),
						telemetry.String("signal", string(signal.SignalType())),
						telemetry.String("panic", fmt.Sprint(r)))
				}
			}()
			handler(signal)
		}()
	}
}
