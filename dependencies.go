package orchestrator

import (
	"fmt"

	"github.com/creastat/orchestrator/core"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultDependencies is the application's built-in worker dependency graph:
// the transcriber segments on VAD output, the LLM post-processes transcripts,
// the listener gates the capture chain, and the visualizer renders what the
// listener lets through.
var DefaultDependencies = map[core.WorkerType][]core.WorkerType{
	core.WorkerTypeVAD:         nil,
	core.WorkerTypeTranscriber: {core.WorkerTypeVAD},
	core.WorkerTypeLLM:         {core.WorkerTypeTranscriber},
	core.WorkerTypeListener:    {core.WorkerTypeVAD, core.WorkerTypeTranscriber},
	core.WorkerTypeVisualizer:  {core.WorkerTypeListener},
}

// minimumAvailableMB is the advisory memory floor per worker type, checked
// against currently available system memory
var minimumAvailableMB = map[core.WorkerType]uint64{
	core.WorkerTypeVAD:         64,
	core.WorkerTypeTranscriber: 512,
	core.WorkerTypeLLM:         1024,
	core.WorkerTypeListener:    16,
	core.WorkerTypeVisualizer:  32,
}

// DefaultDependencyValidator implements core.DependencyValidator over a
// declared dependency graph, defaulting to DefaultDependencies.
type DefaultDependencyValidator struct {
	dependencies map[core.WorkerType][]core.WorkerType

	// availableMemoryMB overrides the system probe in tests; zero means
	// query the host
	availableMemoryMB uint64
}

// NewDependencyValidator creates a validator over the given graph. A nil
// graph selects DefaultDependencies.
func NewDependencyValidator(dependencies map[core.WorkerType][]core.WorkerType) *DefaultDependencyValidator {
	if dependencies == nil {
		dependencies = DefaultDependencies
	}
	return &DefaultDependencyValidator{dependencies: dependencies}
}

// Dependencies returns the graph this validator resolves against
func (v *DefaultDependencyValidator) Dependencies() map[core.WorkerType][]core.WorkerType {
	return v.dependencies
}

// ValidateWorkerDependencies checks the per-worker configuration invariants
// and that every declared dependency is a known worker type
func (v *DefaultDependencyValidator) ValidateWorkerDependencies(workerType core.WorkerType, config core.WorkerConfiguration) error {
	if config.WorkerType != workerType {
		return core.ValidationError{
			Message: "dependency validation failed",
			Details: fmt.Sprintf("configuration for %s handed to %s validation", config.WorkerType, workerType),
		}
	}
	if err := validateConfiguration(config); err != nil {
		return err
	}
	for _, dep := range v.dependencies[workerType] {
		if !knownWorkerType(dep) {
			return core.DependencyError{
				Message: fmt.Sprintf("%s worker depends on unknown worker type %q", workerType, dep),
			}
		}
	}
	return nil
}

// InitializationOrder returns a topological order of the requested types
func (v *DefaultDependencyValidator) InitializationOrder(workerTypes []core.WorkerType) ([]core.WorkerType, error) {
	return ResolveOrder(workerTypes, v.dependencies)
}

// CheckSystemRequirements verifies the host has enough available memory for
// the worker type. Model-backed workers need the largest floors.
func (v *DefaultDependencyValidator) CheckSystemRequirements(workerType core.WorkerType) error {
	required := minimumAvailableMB[workerType]
	if required == 0 {
		return nil
	}

	availableMB := v.availableMemoryMB
	if availableMB == 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			// Probe failure is not a requirements failure
			return nil
		}
		availableMB = vm.Available / (1024 * 1024)
	}

	if availableMB < required {
		return core.ValidationError{
			Message: "system requirements not met",
			Details: fmt.Sprintf("%s worker needs %dMB available memory, have %dMB", workerType, required, availableMB),
		}
	}
	return nil
}
