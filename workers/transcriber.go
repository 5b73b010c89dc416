package workers

import (
	"context"
	"io"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
	providers "github.com/creastat/providers/core"
)

// TranscriberConfig holds transcriber worker configuration
type TranscriberConfig struct {
	Provider     providers.STTProvider
	ModelName    string
	Quantization string
	Language     string
	SampleRate   int
	Logger       telemetry.Logger
}

// TranscriberWorker transcribes detected speech segments. Each SpeechSignal
// opens one streaming transcription; chunks are emitted as
// TranscriptSignals. A failed segment emits a retryable ErrorSignal and the
// worker moves on to the next segment.
type TranscriberWorker struct {
	config TranscriberConfig
}

// NewTranscriberWorker creates a transcriber worker
func NewTranscriberWorker(config TranscriberConfig) *TranscriberWorker {
	if config.Language == "" {
		config.Language = "en"
	}
	return &TranscriberWorker{config: config}
}

// Name returns the worker name
func (w *TranscriberWorker) Name() string {
	return "transcriber"
}

// Type returns the worker type
func (w *TranscriberWorker) Type() core.WorkerType {
	return core.WorkerTypeTranscriber
}

// Warmup probes the STT provider so a dead backend fails the worker's start
// instead of its first segment
func (w *TranscriberWorker) Warmup(ctx context.Context) error {
	return w.config.Provider.HealthCheck(ctx)
}

// Health reports the STT provider's health
func (w *TranscriberWorker) Health(ctx context.Context) error {
	return w.config.Provider.HealthCheck(ctx)
}

// Run implements the Worker interface
func (w *TranscriberWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())
	logger.Info("Starting transcriber worker",
		telemetry.String("provider", w.config.Provider.Name()),
		telemetry.String("model", w.config.ModelName),
		telemetry.String("quantization", w.config.Quantization))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case signal, ok := <-input:
			if !ok {
				logger.Info("Transcriber input closed")
				return nil
			}

			speech, ok := signal.(core.SpeechSignal)
			if !ok {
				continue
			}

			if err := w.transcribeSegment(ctx, speech, output); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("Segment transcription failed", telemetry.Err(err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case output <- core.ErrorSignal{Err: err, Retryable: true}:
				}
			}
		}
	}
}

func (w *TranscriberWorker) transcribeSegment(ctx context.Context, speech core.SpeechSignal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())

	sampleRate := speech.SampleRate
	if sampleRate == 0 {
		sampleRate = w.config.SampleRate
	}

	req := providers.STTRequest{
		Language:   w.config.Language,
		Encoding:   "pcm16",
		SampleRate: sampleRate,
		Options: map[string]any{
			"model":        w.config.ModelName,
			"quantization": w.config.Quantization,
		},
	}

	stream, err := w.config.Provider.StreamTranscribe(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Send(ctx, speech.Data); err != nil {
		return err
	}
	// Empty chunk signals end-of-stream to the provider
	if err := stream.Send(ctx, []byte{}); err != nil {
		return err
	}

	chunkCount := 0
	for {
		chunk, err := stream.Receive(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if chunk == nil || chunk.Done {
			break
		}
		if chunk.Text == "" {
			continue
		}

		chunkCount++
		logger.Debug("Received transcript chunk",
			telemetry.String("text", chunk.Text),
			telemetry.Bool("is_final", chunk.IsFinal))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case output <- core.TranscriptSignal{
			Text:       chunk.Text,
			IsFinal:    chunk.IsFinal,
			Confidence: chunk.Confidence,
		}:
		}
	}

	logger.Debug("Segment transcribed",
		telemetry.Int("chunks", chunkCount),
		telemetry.Int("duration_ms", speech.DurationMs))
	return nil
}
