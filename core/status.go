package core

import "time"

// WorkerInitializationStatus records the outcome of a single worker's
// initialization. The orchestrator is the only writer; once the worker
// reaches a terminal result the record is never mutated again.
type WorkerInitializationStatus struct {
	WorkerType         WorkerType
	Result             InitializationResult
	Initialized        bool
	Started            bool
	ErrorMessage       string
	InitializationTime time.Duration
	WorkerID           string
	ThreadID           string
	MemoryUsageMB      float64
}

// ThreadMetrics tracks runtime metrics for a worker's execution unit
type ThreadMetrics struct {
	StartTime     time.Time
	StopTime      time.Time
	RestartCount  int
	ErrorCount    int
	LastError     string
	LastErrorTime time.Time
}

// Uptime returns how long the thread has been running, or the total run
// time if it already stopped. Zero if the thread never started.
func (m ThreadMetrics) Uptime() time.Duration {
	if m.StartTime.IsZero() {
		return 0
	}
	end := m.StopTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(m.StartTime)
}
