package orchestrator

import (
	"fmt"

	"github.com/creastat/orchestrator/core"
)

// validateRequest performs up-front validation of an orchestration request.
// Any error here is fatal: no worker is created.
func validateRequest(req Request) error {
	if len(req.Configurations) == 0 {
		return core.ValidationError{
			Message: "request validation failed",
			Details: "no worker configurations provided",
		}
	}

	seen := make(map[core.WorkerType]bool, len(req.Configurations))
	for _, config := range req.Configurations {
		if err := validateConfiguration(config); err != nil {
			return err
		}
		if seen[config.WorkerType] {
			return core.ValidationError{
				Message: "request validation failed",
				Details: fmt.Sprintf("duplicate configuration for %s worker", config.WorkerType),
			}
		}
		seen[config.WorkerType] = true
	}

	switch req.Strategy {
	case "", core.StrategyDependencyBased, core.StrategySequential, core.StrategyParallel:
	default:
		return core.ValidationError{
			Message: "request validation failed",
			Details: fmt.Sprintf("unknown initialization strategy %q", req.Strategy),
		}
	}

	return nil
}

// validateConfiguration checks the invariants on a single worker configuration
func validateConfiguration(config core.WorkerConfiguration) error {
	if !knownWorkerType(config.WorkerType) {
		return core.ValidationError{
			Message: "configuration validation failed",
			Details: fmt.Sprintf("unknown worker type %q", config.WorkerType),
		}
	}
	if config.Timeout <= 0 {
		return core.ValidationError{
			Message: "configuration validation failed",
			Details: fmt.Sprintf("%s worker timeout must be positive", config.WorkerType),
		}
	}
	if config.RetryCount < 0 {
		return core.ValidationError{
			Message: "configuration validation failed",
			Details: fmt.Sprintf("%s worker retry count cannot be negative", config.WorkerType),
		}
	}

	switch config.WorkerType {
	case core.WorkerTypeTranscriber:
		if config.ModelName == "" || config.Quantization == "" {
			return core.ValidationError{
				Message: "configuration validation failed",
				Details: "transcriber worker requires a model name and quantization level",
			}
		}
	case core.WorkerTypeLLM:
		if config.LLMModelName == "" || config.LLMQuantization == "" {
			return core.ValidationError{
				Message: "configuration validation failed",
				Details: "llm worker requires a model name and quantization level",
			}
		}
	}

	return nil
}

func knownWorkerType(wt core.WorkerType) bool {
	for _, known := range core.AllWorkerTypes {
		if wt == known {
			return true
		}
	}
	return false
}
