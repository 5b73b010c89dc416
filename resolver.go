package orchestrator

import (
	"fmt"

	"github.com/creastat/orchestrator/core"
)

// ResolveOrder computes a topological initialization order for the requested
// worker types over the given dependency graph. Dependencies outside the
// requested set are ignored. On a cycle it returns a DependencyError naming
// the offending cycle.
func ResolveOrder(workerTypes []core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType) ([]core.WorkerType, error) {
	requested := make(map[core.WorkerType]bool, len(workerTypes))
	for _, wt := range workerTypes {
		requested[wt] = true
	}

	// Indegree counts only edges inside the requested set
	indegree := make(map[core.WorkerType]int, len(workerTypes))
	dependents := make(map[core.WorkerType][]core.WorkerType)
	for _, wt := range workerTypes {
		indegree[wt] = 0
	}
	for _, wt := range workerTypes {
		for _, dep := range dependencies[wt] {
			if dep == wt {
				return nil, core.DependencyError{
					Message: "dependency resolution failed",
					Cycle:   []core.WorkerType{wt, wt},
				}
			}
			if !requested[dep] {
				continue
			}
			indegree[wt]++
			dependents[dep] = append(dependents[dep], wt)
		}
	}

	// Kahn's algorithm. The ready queue is seeded and appended in
	// declaration order so resolution is deterministic.
	var ready []core.WorkerType
	for _, wt := range workerTypes {
		if indegree[wt] == 0 {
			ready = append(ready, wt)
		}
	}

	order := make([]core.WorkerType, 0, len(workerTypes))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(order) != len(workerTypes) {
		cycle := findCycle(workerTypes, dependencies, requested)
		return nil, core.DependencyError{
			Message: "dependency resolution failed",
			Cycle:   cycle,
		}
	}

	return order, nil
}

// findCycle walks the graph depth-first and returns one cycle, closed with
// its starting node so the error reads a -> b -> a.
func findCycle(workerTypes []core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType, requested map[core.WorkerType]bool) []core.WorkerType {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[core.WorkerType]int, len(workerTypes))

	var stack []core.WorkerType
	var cycle []core.WorkerType

	var visit func(wt core.WorkerType) bool
	visit = func(wt core.WorkerType) bool {
		state[wt] = inStack
		stack = append(stack, wt)

		for _, dep := range dependencies[wt] {
			if !requested[dep] {
				continue
			}
			switch state[dep] {
			case inStack:
				// Back edge found; slice the cycle out of the stack
				for i, s := range stack {
					if s == dep {
						cycle = append(cycle, stack[i:]...)
						cycle = append(cycle, dep)
						return true
					}
				}
			case unvisited:
				if visit(dep) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[wt] = done
		return false
	}

	for _, wt := range workerTypes {
		if state[wt] == unvisited && visit(wt) {
			return cycle
		}
	}
	return nil
}

// verifyOrder checks that every dependency precedes its dependents. Used by
// the orchestrator as a guard against a misbehaving DependencyValidator port.
func verifyOrder(order []core.WorkerType, dependencies map[core.WorkerType][]core.WorkerType) error {
	position := make(map[core.WorkerType]int, len(order))
	for i, wt := range order {
		position[wt] = i
	}
	for _, wt := range order {
		for _, dep := range dependencies[wt] {
			depPos, ok := position[dep]
			if !ok {
				continue
			}
			if depPos > position[wt] {
				return core.DependencyError{
					Message: fmt.Sprintf("initialization order places %s before its dependency %s", wt, dep),
				}
			}
		}
	}
	return nil
}
