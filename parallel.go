package orchestrator

import (
	"context"

	"github.com/creastat/orchestrator/core"
)

// depGate publishes a worker's terminal outcome to its dependents. ok is
// written before done is closed, so readers that observe the close see it.
type depGate struct {
	done chan struct{}
	ok   bool
}

// initializeParallel launches one goroutine per enabled worker. Each
// goroutine blocks on the gates of its enabled dependencies; a failed gate
// turns the dependent into DEPENDENCY_FAILED without calling the factory.
// Status mutation stays confined to this goroutine via the results channel.
func (o *Orchestrator) initializeParallel(ctx context.Context, req Request, order []core.WorkerType, configs map[core.WorkerType]core.WorkerConfiguration, dependencies map[core.WorkerType][]core.WorkerType) initOutcome {
	outcome := initOutcome{created: make(map[core.WorkerType]*workerRuntime)}

	enabled := enabledInOrder(order, configs)
	progressPerWorker := 0
	if len(enabled) > 0 {
		progressPerWorker = 70 / len(enabled)
	}

	gates := make(map[core.WorkerType]*depGate, len(enabled))
	for _, wt := range enabled {
		gates[wt] = &depGate{done: make(chan struct{})}
	}

	type result struct {
		status core.WorkerInitializationStatus
		rt     *workerRuntime
	}
	results := make(chan result, len(enabled))

	launched := 0
	for i, wt := range enabled {
		percentage := 15 + i*progressPerWorker

		if !o.checkProgress(ctx, req, core.PhaseCreatingWorker, percentage) {
			// Launched workers only depend on earlier (already launched)
			// types, so closing the remaining gates cannot mislead them.
			for _, remaining := range enabled[i:] {
				close(gates[remaining].done)
				outcome.statuses = append(outcome.statuses, core.WorkerInitializationStatus{
					WorkerType:   remaining,
					Result:       core.ResultCancelled,
					ErrorMessage: core.ErrCancelled.Error(),
				})
			}
			outcome.cancelled = true
			break
		}

		launched++
		go func(wt core.WorkerType, config core.WorkerConfiguration) {
			gate := gates[wt]

			for _, dep := range dependencies[wt] {
				depGate, gated := gates[dep]
				if !gated {
					continue
				}
				select {
				case <-ctx.Done():
					close(gate.done)
					results <- result{status: core.WorkerInitializationStatus{
						WorkerType:   wt,
						Result:       core.ResultCancelled,
						ErrorMessage: core.ErrCancelled.Error(),
					}}
					return
				case <-depGate.done:
					if !depGate.ok {
						close(gate.done)
						results <- result{status: core.WorkerInitializationStatus{
							WorkerType:   wt,
							Result:       core.ResultDependencyFailed,
							ErrorMessage: "dependency " + string(dep) + " failed",
						}}
						return
					}
				}
			}

			status, rt := o.initializeWorker(ctx, config)
			gate.ok = status.Initialized
			close(gate.done)
			results <- result{status: status, rt: rt}
		}(wt, configs[wt])
	}

	for i := 0; i < launched; i++ {
		res := <-results
		outcome.statuses = append(outcome.statuses, res.status)
		if res.status.Initialized {
			outcome.created[res.status.WorkerType] = res.rt
			continue
		}
		if res.status.Result == core.ResultCancelled {
			outcome.cancelled = true
		}
		if res.rt != nil {
			config := configs[res.status.WorkerType]
			if config.CleanupOnFailure {
				if err := o.cleanupPort.CleanupWorker(res.rt.worker, res.status.WorkerType); err != nil {
					outcome.warnings = append(outcome.warnings,
						"cleanup after "+string(res.status.WorkerType)+" worker failure: "+err.Error())
				}
			} else {
				outcome.warnings = append(outcome.warnings,
					string(res.status.WorkerType)+" worker failed but cleanup was skipped")
			}
		}
	}

	return outcome
}
