package workers

import (
	"context"
	"strings"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	providers "github.com/creastat/providers/core"
)

const defaultSystemPrompt = "You clean up raw speech transcriptions: fix punctuation, casing and obvious " +
	"transcription mistakes without changing the meaning. Reply with the corrected text only."

// LLMConfig holds LLM worker configuration
type LLMConfig struct {
	Provider     providers.LLMProvider
	ModelName    string
	Quantization string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    *int
	Logger       telemetry.Logger
}

// LLMWorker post-processes final transcripts through the LLM provider.
// Each final TranscriptSignal becomes one streaming completion; deltas are
// emitted as TextSignals. Interim transcripts are ignored.
type LLMWorker struct {
	config LLMConfig
}

// NewLLMWorker creates an LLM worker
func NewLLMWorker(config LLMConfig) *LLMWorker {
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	return &LLMWorker{config: config}
}

// Name returns the worker name
func (w *LLMWorker) Name() string {
	return "llm"
}

// Type returns the worker type
func (w *LLMWorker) Type() core.WorkerType {
	return core.WorkerTypeLLM
}

// Health reports the LLM provider's health
func (w *LLMWorker) Health(ctx context.Context) error {
	return w.config.Provider.HealthCheck(ctx)
}

// Run implements the Worker interface
func (w *LLMWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())
	logger.Info("Starting LLM worker", telemetry.String("model", w.config.ModelName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case signal, ok := <-input:
			if !ok {
				logger.Info("LLM input closed")
				return nil
			}

			transcript, ok := signal.(core.TranscriptSignal)
			if !ok || !transcript.IsFinal {
				continue
			}
			text := strings.TrimSpace(transcript.Text)
			if text == "" {
				continue
			}

			if err := w.postProcess(ctx, text, output); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("Transcript post-processing failed", telemetry.Err(err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case output <- core.ErrorSignal{Err: err, Retryable: true}:
				}
			}
		}
	}
}

func (w *LLMWorker) postProcess(ctx context.Context, text string, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())

	req := providers.ChatRequest{
		Model: w.config.ModelName,
		Messages: []providers.Message{
			{Role: "system", Content: w.config.SystemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: w.config.Temperature,
		MaxTokens:   w.config.MaxTokens,
	}

	stream, err := w.config.Provider.StreamChatCompletion(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	var fullResponse string
	for {
		chunk, err := stream.Receive(ctx)
		if err != nil {
			return err
		}
		if chunk == nil || chunk.Done {
			break
		}
		if chunk.Content == "" {
			continue
		}

		fullResponse += chunk.Content
		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- core.TextSignal{Delta: chunk.Content, Content: fullResponse}:
		}
	}

	logger.Debug("Transcript post-processed",
		telemetry.String("input", text),
		telemetry.String("output", fullResponse))
	return nil
}
