package workers

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// VADConfig holds VAD worker configuration
type VADConfig struct {
	SampleRate int

	// Threshold is the normalized RMS level above which a frame counts as
	// speech; zero selects the default
	Threshold float64

	// HangoverFrames is how many silent frames keep an active segment open
	HangoverFrames int

	Logger telemetry.Logger
}

// VADWorker detects speech in the incoming audio stream with an energy
// gate. Every audio frame produces a LevelSignal; contiguous frames above
// the threshold are buffered and emitted as one SpeechSignal when the
// segment closes.
type VADWorker struct {
	config VADConfig

	segment []byte
	active  bool
	silent  int
}

// NewVADWorker creates a VAD worker
func NewVADWorker(config VADConfig) *VADWorker {
	if config.Threshold <= 0 {
		config.Threshold = 0.015
	}
	if config.HangoverFrames <= 0 {
		config.HangoverFrames = 8
	}
	return &VADWorker{config: config}
}

// Name returns the worker name
func (w *VADWorker) Name() string {
	return "vad"
}

// Type returns the worker type
func (w *VADWorker) Type() core.WorkerType {
	return core.WorkerTypeVAD
}

// Run implements the Worker interface
func (w *VADWorker) Run(ctx context.Context, input <-chan core.Signal, output chan<- core.Signal) error {
	logger := w.config.Logger.WithModule(w.Name())
	logger.Info("Starting VAD worker",
		telemetry.Int("sample_rate", w.config.SampleRate),
		telemetry.Float64("threshold", w.config.Threshold))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case signal, ok := <-input:
			if !ok {
				// Flush any segment still open when the stream ends
				if w.active {
					if err := w.emitSegment(ctx, output); err != nil {
						return err
					}
				}
				logger.Info("VAD input closed")
				return nil
			}

			audio, ok := signal.(core.AudioSignal)
			if !ok {
				continue
			}

			peak, rms := measureFrame(audio.Data)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case output <- core.LevelSignal{Peak: peak, RMS: rms}:
			}

			if rms >= w.config.Threshold {
				w.active = true
				w.silent = 0
				w.segment = append(w.segment, audio.Data...)
				continue
			}

			if !w.active {
				continue
			}

			w.silent++
			w.segment = append(w.segment, audio.Data...)
			if w.silent >= w.config.HangoverFrames {
				if err := w.emitSegment(ctx, output); err != nil {
					return err
				}
			}
		}
	}
}

func (w *VADWorker) emitSegment(ctx context.Context, output chan<- core.Signal) error {
	data := w.segment
	w.segment = nil
	w.active = false
	w.silent = 0

	if len(data) == 0 {
		return nil
	}

	durationMs := 0
	if w.config.SampleRate > 0 {
		// 16-bit mono samples
		durationMs = len(data) / 2 * 1000 / w.config.SampleRate
	}

	w.config.Logger.WithModule(w.Name()).Debug("Speech segment detected",
		telemetry.Int("bytes", len(data)),
		telemetry.Int("duration_ms", durationMs))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- core.SpeechSignal{Data: data, SampleRate: w.config.SampleRate, DurationMs: durationMs}:
		return nil
	}
}

// measureFrame computes peak and RMS over little-endian 16-bit samples,
// normalized to [0, 1]
func measureFrame(data []byte) (peak, rms float64) {
	samples := len(data) / 2
	if samples == 0 {
		return 0, 0
	}

	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := float64(int16(binary.LittleEndian.Uint16(data[i:]))) / 32768.0
		if abs := math.Abs(sample); abs > peak {
			peak = abs
		}
		sumSquares += sample * sample
	}
	return peak, math.Sqrt(sumSquares / float64(samples))
}
