package workers

import (
	"context"
	"strings"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// ListenerConfig holds listener worker configuration
type ListenerConfig struct {
	// Combination is the hotkey that toggles capture, e.g. "ctrl+shift+space"
	Combination string

	Logger telemetry.Logger
}

// ListenerWorker gates the capture chain on a hotkey. A press of the
// configured combination toggles capture; while capture is off, audio and
// transcript signals are dropped. The toggle itself is forwarded so
// downstream consumers can show the capture state.
type ListenerWorker struct {
	config ListenerConfig

	capturing bool
}

// NewListenerWorker creates a listener worker
func NewListenerWorker(config ListenerConfig) *ListenerWorker {
	config.Combination = normalizeCombination(config.Combination)
	return &ListenerWorker{config: config}
}

// Name returns the worker name
func (w *ListenerWorker) Name() string {
	return "listener"
}

// Type returns the worker type
func (w *ListenerWorker) Type() core.WorkerType {
	return core.WorkerTypeListener
}

// Capturing reports whether the gate is currently open
func (w *ListenerWorker) Capturing() bool {
	return w.capturing
}

// Run implements the Worker interface
func (w *ListenerWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())
	logger.Info("Starting listener worker", telemetry.String("hotkey", w.config.Combination))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case signal, ok := <-input:
			if !ok {
				logger.Info("Listener input closed")
				return nil
			}

			if hotkey, ok := signal.(core.HotkeySignal); ok {
				if !hotkey.Pressed || normalizeCombination(hotkey.Combination) != w.config.Combination {
					continue
				}
				w.capturing = !w.capturing
				logger.Info("Capture toggled", telemetry.Bool("capturing", w.capturing))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case output <- core.HotkeySignal{Combination: w.config.Combination, Pressed: w.capturing}:
				}
				continue
			}

			if !w.capturing {
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case output <- signal:
			}
		}
	}
}

// normalizeCombination lowercases and strips spaces so "Ctrl + Shift+Space"
// matches "ctrl+shift+space"
func normalizeCombination(combination string) string {
	return strings.ToLower(strings.ReplaceAll(combination, " ", ""))
}
