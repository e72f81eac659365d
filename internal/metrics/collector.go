// Package metrics provides internal metrics collection for the
// orchestration engine. This package is internal and should not be
// imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Collector exposes the engine's prometheus metrics. A nil *Collector is
// valid and records nothing, so callers never guard their call sites.
type Collector struct {
	executionsTotal  *prometheus.CounterVec
	stepsTotal       *prometheus.CounterVec
	retriesTotal     prometheus.Counter
	activeExecutions prometheus.Gauge
	stepDuration     *prometheus.HistogramVec
	tokensUsed       prometheus.Counter

	logger *zap.Logger
}

// NewCollector creates a collector and registers its metrics on reg.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of workflow executions by terminal status",
		},
		[]string{"status"},
	)
	c.stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_steps_total",
			Help:      "Total number of executed steps by terminal status",
		},
		[]string{"status"},
	)
	c.retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_retries_total",
			Help:      "Total number of step retry attempts",
		},
	)
	c.activeExecutions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_executions",
			Help:      "Number of currently tracked workflow executions",
		},
	)
	c.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Agent step duration in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	c.tokensUsed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total tokens consumed by agent invocations",
		},
	)

	reg.MustRegister(
		c.executionsTotal,
		c.stepsTotal,
		c.retriesTotal,
		c.activeExecutions,
		c.stepDuration,
		c.tokensUsed,
	)
	return c
}

// ExecutionStarted bumps the active-executions gauge.
func (c *Collector) ExecutionStarted() {
	if c == nil {
		return
	}
	c.activeExecutions.Inc()
}

// ExecutionFinished records a terminal execution status.
func (c *Collector) ExecutionFinished(status string, tokens int) {
	if c == nil {
		return
	}
	c.activeExecutions.Dec()
	c.executionsTotal.WithLabelValues(status).Inc()
	c.tokensUsed.Add(float64(tokens))
}

// StepFinished records a terminal step status with its duration.
func (c *Collector) StepFinished(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stepsTotal.WithLabelValues(status).Inc()
	c.stepDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RetryRecorded counts one step retry attempt.
func (c *Collector) RetryRecorded() {
	if c == nil {
		return
	}
	c.retriesTotal.Inc()
}
