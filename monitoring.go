package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/creastat/infra/telemetry"
	"github.com/creastat/orchestrator/core"
)

// metricsProvider is the optional surface of a thread handle that exposes
// runtime metrics. The default thread manager implements it.
type metricsProvider interface {
	Metrics() core.ThreadMetrics
}

// Alert reports a monitored metric crossing its configured threshold
type Alert struct {
	Worker    core.WorkerType
	Metric    string
	Value     float64
	Threshold float64
	Time      time.Time
}

// MonitoringService watches the running worker set: periodic health checks,
// performance tracking from thread metrics, and threshold alerts.
type MonitoringService struct {
	threads core.ThreadManager
	logger  telemetry.Logger

	cfg     core.MonitoringConfiguration
	workers map[core.WorkerType]*workerRuntime

	mu         sync.Mutex
	healthy    map[core.WorkerType]bool
	thresholds map[string]float64
	onAlert    func(Alert)
	alerted    map[string]bool

	cancel  context.CancelFunc
	stopped sync.WaitGroup
}

func NewMonitoringService(threads core.ThreadManager, logger telemetry.Logger) *MonitoringService {
	return &MonitoringService{
		threads: threads,
		logger:  logger.WithModule("monitoring"),
		healthy: make(map[core.WorkerType]bool),
		alerted: make(map[string]bool),
	}
}

// Setup binds the service to the created workers
func (s *MonitoringService) Setup(cfg core.MonitoringConfiguration, workers map[core.WorkerType]*workerRuntime) error {
	// The interval also paces performance tracking, so it is defaulted even
	// when health checks stay off
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 5 * time.Second
	}
	s.cfg = cfg
	s.workers = workers
	for wt := range workers {
		s.healthy[wt] = true
	}
	return nil
}

// OnAlert registers the callback invoked when a threshold is crossed. Each
// worker and metric pair alerts once until the value drops back under.
func (s *MonitoringService) OnAlert(fn func(Alert)) {
	s.mu.Lock()
	s.onAlert = fn
	s.mu.Unlock()
}

// EnableHealthChecks starts the periodic sampling loop. Workers that
// implement core.HealthChecker are probed directly; the rest are judged by
// whether their thread is still running.
func (s *MonitoringService) EnableHealthChecks() error {
	return s.startSampler()
}

// SetupPerformanceTracking verifies the thread handles expose metrics and
// starts the sampling loop, so tracking runs even when health checks are
// disabled.
func (s *MonitoringService) SetupPerformanceTracking() error {
	for _, rt := range s.workers {
		if _, ok := rt.thread.(metricsProvider); !ok {
			s.logger.Warn("Thread does not expose metrics",
				telemetry.String("thread", rt.thread.Name()))
		}
	}
	return s.startSampler()
}

// startSampler starts the shared sampling loop once; health checking and
// performance tracking each run only when their configuration flag is set
func (s *MonitoringService) startSampler() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		ticker := time.NewTicker(s.cfg.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.cfg.HealthChecks {
					s.checkHealth(ctx)
				}
				if s.cfg.PerformanceTracking {
					s.trackPerformance()
				}
			}
		}
	}()
	return nil
}

// ConfigureAlerts installs the metric thresholds. Known metrics are
// error_count and restart_count, read from thread metrics.
func (s *MonitoringService) ConfigureAlerts(thresholds map[string]float64) error {
	s.mu.Lock()
	s.thresholds = thresholds
	s.mu.Unlock()
	return nil
}

// Healthy reports the last health check verdict for the worker
func (s *MonitoringService) Healthy(wt core.WorkerType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthy[wt]
}

// CheckNow runs one health check pass immediately
func (s *MonitoringService) CheckNow(ctx context.Context) {
	s.checkHealth(ctx)
	if s.cfg.PerformanceTracking {
		s.trackPerformance()
	}
}

func (s *MonitoringService) checkHealth(ctx context.Context) {
	for wt, rt := range s.workers {
		var healthy bool
		if checker, ok := rt.worker.(core.HealthChecker); ok {
			healthy = checker.Health(ctx) == nil
		} else {
			healthy = s.threads.IsThreadRunning(rt.thread)
		}

		s.mu.Lock()
		was := s.healthy[wt]
		s.healthy[wt] = healthy
		s.mu.Unlock()

		if was && !healthy {
			s.logger.Warn("Worker became unhealthy", telemetry.String("worker", string(wt)))
		} else if !was && healthy {
			s.logger.Info("Worker recovered", telemetry.String("worker", string(wt)))
		}
	}
}

func (s *MonitoringService) trackPerformance() {
	for wt, rt := range s.workers {
		provider, ok := rt.thread.(metricsProvider)
		if !ok {
			continue
		}
		metrics := provider.Metrics()

		s.logger.Trace("Worker performance",
			telemetry.String("worker", string(wt)),
			telemetry.Int("uptime_ms", int(metrics.Uptime().Milliseconds())),
			telemetry.Int("errors", metrics.ErrorCount),
			telemetry.Int("restarts", metrics.RestartCount))

		s.evaluateThreshold(wt, "error_count", float64(metrics.ErrorCount))
		s.evaluateThreshold(wt, "restart_count", float64(metrics.RestartCount))
	}
}

func (s *MonitoringService) evaluateThreshold(wt core.WorkerType, metric string, value float64) {
	s.mu.Lock()
	threshold, configured := s.thresholds[metric]
	key := string(wt) + "/" + metric
	crossed := configured && value > threshold
	fire := crossed && !s.alerted[key]
	s.alerted[key] = crossed
	onAlert := s.onAlert
	s.mu.Unlock()

	if !fire {
		return
	}

	alert := Alert{Worker: wt, Metric: metric, Value: value, Threshold: threshold, Time: time.Now()}
	s.logger.Warn("Alert threshold crossed",
		telemetry.String("worker", string(wt)),
		telemetry.String("metric", metric),
		telemetry.Float64("value", value),
		telemetry.Float64("threshold", threshold))
	if onAlert != nil {
		onAlert(alert)
	}
}

// Stop halts the sampling loop
func (s *MonitoringService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.stopped.Wait()
	}
}
