// Package workers implements the background workers the orchestrator
// manages: voice activity detection, transcription, LLM post-processing,
// hotkey listening and level visualization.
package workers

import (
	"fmt"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	providers "github.com/creastat/providers/core"
	"github.com/gorilla/websocket"
)

// FactoryConfig holds the shared collaborators workers are built from
type FactoryConfig struct {
	STT providers.STTProvider
	LLM providers.LLMProvider

	// Conn receives the visualizer's wire messages
	Conn      *websocket.Conn
	SessionID string

	SampleRate int
	Language   string

	// Hotkey is the combination the listener toggles on
	Hotkey string

	Logger telemetry.Logger
}

// Factory implements core.WorkerFactory
type Factory struct {
	cfg FactoryConfig
}

// NewFactory creates a worker factory. Sample rate defaults to 16kHz and
// the hotkey to ctrl+shift+space.
func NewFactory(cfg FactoryConfig) *Factory {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Hotkey == "" {
		cfg.Hotkey = "ctrl+shift+space"
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.New(telemetry.Config{Level: "info"})
	}
	return &Factory{cfg: cfg}
}

// CreateVADWorker creates the voice activity detection worker
func (f *Factory) CreateVADWorker() (core.Worker, error) {
	return NewVADWorker(VADConfig{
		SampleRate: f.cfg.SampleRate,
		Logger:     f.cfg.Logger,
	}), nil
}

// CreateModelWorker creates the transcription worker over the configured
// STT provider
func (f *Factory) CreateModelWorker(modelName, quantization string) (core.Worker, error) {
	if f.cfg.STT == nil {
		return nil, fmt.Errorf("no STT provider configured")
	}
	return NewTranscriberWorker(TranscriberConfig{
		Provider:     f.cfg.STT,
		ModelName:    modelName,
		Quantization: quantization,
		Language:     f.cfg.Language,
		SampleRate:   f.cfg.SampleRate,
		Logger:       f.cfg.Logger,
	}), nil
}

// CreateLLMWorker creates the LLM post-processing worker
func (f *Factory) CreateLLMWorker(modelName, quantization string) (core.Worker, error) {
	if f.cfg.LLM == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}
	return NewLLMWorker(LLMConfig{
		Provider:     f.cfg.LLM,
		ModelName:    modelName,
		Quantization: quantization,
		Logger:       f.cfg.Logger,
	}), nil
}

// CreateListenerWorker creates the hotkey listener worker
func (f *Factory) CreateListenerWorker() (core.Worker, error) {
	return NewListenerWorker(ListenerConfig{
		Combination: f.cfg.Hotkey,
		Logger:      f.cfg.Logger,
	}), nil
}

// CreateVisualizerWorker creates the WebSocket visualizer worker
func (f *Factory) CreateVisualizerWorker() (core.Worker, error) {
	if f.cfg.Conn == nil {
		return nil, fmt.Errorf("no WebSocket connection configured")
	}
	return NewVisualizerWorker(VisualizerConfig{
		Conn:      f.cfg.Conn,
		SessionID: f.cfg.SessionID,
		Logger:    f.cfg.Logger,
	}), nil
}
