package workers

import (
	"context"
	"encoding/json"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	"github.com/creastat/orchestrator/protocol"
	"github.com/gorilla/websocket"
)

// VisualizerConfig holds visualizer worker configuration
type VisualizerConfig struct {
	Conn      *websocket.Conn
	SessionID string
	Logger    telemetry.Logger
}

// VisualizerWorker streams level, transcript and text signals to a
// WebSocket client as JSON wire messages. A failed write drains the input
// without failing the worker; a closed client must not take the capture
// chain down with it.
type VisualizerWorker struct {
	config VisualizerConfig
}

// NewVisualizerWorker creates a visualizer worker
func NewVisualizerWorker(config VisualizerConfig) *VisualizerWorker {
	return &VisualizerWorker{config: config}
}

// Name returns the worker name
func (w *VisualizerWorker) Name() string {
	return "visualizer"
}

// Type returns the worker type
func (w *VisualizerWorker) Type() core.WorkerType {
	return core.WorkerTypeVisualizer
}

// Run implements the Worker interface
func (w *VisualizerWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())
	logger.Info("Starting visualizer worker", telemetry.String("session_id", w.config.SessionID))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case signal, ok := <-input:
			if !ok {
				logger.Info("Visualizer input closed")
				return nil
			}

			msg := protocol.SignalToMessage(signal, w.config.SessionID)
			if msg == nil {
				continue
			}

			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("Failed to marshal wire message",
					telemetry.Err(err), telemetry.String("type", string(msg.Type)))
				continue
			}

			if err := w.config.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Error("Failed to write to WebSocket",
					telemetry.Err(err), telemetry.String("session_id", w.config.SessionID))
				return w.drain(ctx, input, logger)
			}

			logger.Trace("Sent wire message", telemetry.String("type", string(msg.Type)))
		}
	}
}

// drain discards remaining signals after the client is gone so upstream
// workers are not blocked. The input channel stays open for the thread's
// lifetime, so cancellation must remain an exit path.
func (w *VisualizerWorker) drain(ctx context.Context, input <-chan core.Signal, logger telemetry.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-input:
			if !ok {
				logger.Info("Visualizer input closed")
				return nil
			}
		}
	}
}
